package postgres

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/outreach-engine/internal/domain"
)

const campaignColumns = `
	c.id, c.account_id, COALESCE(c.sender_id::text, ''), c.name, c.template_html, c.is_active, c.created_at,
	COALESCE(array_agg(cc.category_code ORDER BY cc.category_code) FILTER (WHERE cc.category_code IS NOT NULL), '{}')`

const recipientColumns = `
	r.id, r.name, COALESCE(r.email, ''), r.exposure_count, r.created_at,
	COALESCE(array_agg(rc.category_code ORDER BY rc.category_code) FILTER (WHERE rc.category_code IS NOT NULL), '{}')`

const senderColumns = `id, account_id, email, COALESCE(refresh_token, ''), is_active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCampaign(s scanner) (domain.Campaign, error) {
	var c domain.Campaign
	var cats pq.StringArray
	err := s.Scan(&c.ID, &c.AccountID, &c.SenderID, &c.Name, &c.TemplateHTML, &c.Active, &c.CreatedAt, &cats)
	c.Categories = []string(cats)
	return c, err
}

func scanRecipient(s scanner) (domain.Recipient, error) {
	var r domain.Recipient
	var cats pq.StringArray
	err := s.Scan(&r.ID, &r.Name, &r.Email, &r.ExposureCount, &r.CreatedAt, &cats)
	r.Categories = []string(cats)
	return r, err
}

func scanSender(s scanner) (domain.SenderIdentity, error) {
	var si domain.SenderIdentity
	err := s.Scan(&si.ID, &si.AccountID, &si.Email, &si.RefreshToken, &si.Active, &si.CreatedAt)
	return si, err
}

func scanPairs(rows *sql.Rows, what string) (domain.PairSet, error) {
	defer rows.Close()
	out := domain.PairSet{}
	for rows.Next() {
		var senderID, recipientID string
		if err := rows.Scan(&senderID, &recipientID); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		out.Add(senderID, recipientID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return out, nil
}
