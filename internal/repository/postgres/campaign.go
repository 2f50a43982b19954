package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) Get(ctx context.Context, accountID, id string) (*domain.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns c
		LEFT JOIN campaign_categories cc ON cc.campaign_id = c.id
		WHERE c.id = $1 AND c.account_id = $2
		GROUP BY c.id`, id, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return &c, nil
}

func (r *CampaignRepo) List(ctx context.Context, accountID string, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	countQ := `SELECT COUNT(*) FROM campaigns c WHERE c.account_id = $1`
	args := []interface{}{accountID}
	if f.Active != nil {
		countQ += ` AND c.is_active = $2`
		args = append(args, *f.Active)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	q := `
		SELECT ` + campaignColumns + `
		FROM campaigns c
		LEFT JOIN campaign_categories cc ON cc.campaign_id = c.id
		WHERE c.account_id = $1`
	idx := 2
	if f.Active != nil {
		q += ` AND c.is_active = $2`
		idx++
	}
	q += fmt.Sprintf(" GROUP BY c.id ORDER BY c.created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO campaigns (id, account_id, sender_id, name, template_html, is_active, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $7)`,
		c.ID, c.AccountID, c.SenderID, c.Name, c.TemplateHTML, c.Active, c.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}

	for _, code := range c.Categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (code) VALUES ($1) ON CONFLICT DO NOTHING`, code,
		); err != nil {
			return fmt.Errorf("insert category %s: %w", code, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO campaign_categories (campaign_id, category_code) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			c.ID, code,
		); err != nil {
			return fmt.Errorf("tag campaign %s: %w", code, err)
		}
	}
	return tx.Commit()
}

func (r *CampaignRepo) SetActive(ctx context.Context, accountID, id string, active bool) error {
	return r.update(ctx, `UPDATE campaigns SET is_active = $3, updated_at = NOW() WHERE id = $1 AND account_id = $2`,
		id, accountID, active)
}

func (r *CampaignRepo) SetSender(ctx context.Context, accountID, id, senderID string) error {
	return r.update(ctx, `UPDATE campaigns SET sender_id = $3, updated_at = NOW() WHERE id = $1 AND account_id = $2`,
		id, accountID, senderID)
}

func (r *CampaignRepo) SenderAccount(ctx context.Context, senderID string) (string, error) {
	var accountID string
	err := r.db.QueryRowContext(ctx,
		`SELECT account_id FROM sender_identities WHERE id = $1`, senderID,
	).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", campaign.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get sender account: %w", err)
	}
	return accountID, nil
}

func (r *CampaignRepo) update(ctx context.Context, q string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update campaign rows affected: %w", err)
	}
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}
