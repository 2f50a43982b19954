package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/delivery"
)

// DeliveryRepo implements delivery.Repository against PostgreSQL.
type DeliveryRepo struct{ db *sql.DB }

// NewDeliveryRepo creates a Postgres-backed delivery repository.
func NewDeliveryRepo(db *sql.DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

var _ delivery.Repository = (*DeliveryRepo)(nil)

func (r *DeliveryRepo) Sender(ctx context.Context, id string) (*domain.SenderIdentity, error) {
	si, err := scanSender(r.db.QueryRowContext(ctx,
		`SELECT `+senderColumns+` FROM sender_identities WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, delivery.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sender: %w", err)
	}
	return &si, nil
}

func (r *DeliveryRepo) Recipient(ctx context.Context, id string) (*domain.Recipient, error) {
	rec, err := scanRecipient(r.db.QueryRowContext(ctx, `
		SELECT `+recipientColumns+`
		FROM recipients r
		LEFT JOIN recipient_categories rc ON rc.recipient_id = r.id
		WHERE r.id = $1
		GROUP BY r.id`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, delivery.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recipient: %w", err)
	}
	return &rec, nil
}

func (r *DeliveryRepo) Campaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns c
		LEFT JOIN campaign_categories cc ON cc.campaign_id = c.id
		WHERE c.id = $1
		GROUP BY c.id`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, delivery.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return &c, nil
}

func (r *DeliveryRepo) DeactivateSender(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sender_identities
		SET is_active = false, refresh_token = NULL, updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate sender: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return delivery.ErrNotFound
	}
	return nil
}

func (r *DeliveryRepo) CreateEmailLog(ctx context.Context, l *domain.EmailLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_logs (id, campaign_id, sender_id, recipient_id, unsubscribe_token, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.CampaignID, l.SenderID, l.RecipientID, l.UnsubscribeToken, string(l.Status), l.CreatedAt)
	if err != nil {
		return fmt.Errorf("create email log: %w", err)
	}
	return nil
}

func (r *DeliveryRepo) UpdateEmailLog(ctx context.Context, id string, status domain.EmailLogStatus, messageID, errMsg string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_logs
		SET status = $2, message_id = NULLIF($3, ''), error = NULLIF($4, ''), updated_at = NOW()
		WHERE id = $1`, id, string(status), messageID, errMsg)
	if err != nil {
		return fmt.Errorf("update email log: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return delivery.ErrNotFound
	}
	return nil
}
