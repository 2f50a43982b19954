package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/allocation"
)

// AllocationSource implements allocation.Source against PostgreSQL.
type AllocationSource struct{ db *sql.DB }

// NewAllocationSource creates a Postgres-backed allocation source.
func NewAllocationSource(db *sql.DB) *AllocationSource { return &AllocationSource{db: db} }

var _ allocation.Source = (*AllocationSource)(nil)

func (s *AllocationSource) ActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns c
		LEFT JOIN campaign_categories cc ON cc.campaign_id = c.id
		WHERE c.is_active = true AND c.sender_id IS NOT NULL
		GROUP BY c.id
		ORDER BY c.created_at, c.id`)
	if err != nil {
		return nil, fmt.Errorf("query active campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *AllocationSource) EligibleRecipients(ctx context.Context, q allocation.RecipientQuery) ([]domain.Recipient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recipientColumns+`
		FROM recipients r
		LEFT JOIN recipient_categories rc ON rc.recipient_id = r.id
		WHERE r.exposure_count < $1
		  AND r.created_at >= $2
		  AND COALESCE(r.email, '') <> ''
		GROUP BY r.id
		ORDER BY r.created_at, r.id`, q.MaxExposure, q.CreatedSince)
	if err != nil {
		return nil, fmt.Errorf("query eligible recipients: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipient
	for rows.Next() {
		r, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *AllocationSource) ActiveSenders(ctx context.Context, accountID string) ([]domain.SenderIdentity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+senderColumns+`
		FROM sender_identities
		WHERE account_id = $1 AND is_active = true
		ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query senders for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var out []domain.SenderIdentity
	for rows.Next() {
		si, err := scanSender(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sender: %w", err)
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

func (s *AllocationSource) SuppressedPairs(ctx context.Context) (domain.PairSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sender_id, recipient_id FROM suppressions`)
	if err != nil {
		return nil, fmt.Errorf("query suppressions: %w", err)
	}
	return scanPairs(rows, "suppression")
}

func (s *AllocationSource) ContactedPairs(ctx context.Context) (domain.PairSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sender_id, recipient_id FROM first_contacts`)
	if err != nil {
		return nil, fmt.Errorf("query first contacts: %w", err)
	}
	return scanPairs(rows, "first contact")
}
