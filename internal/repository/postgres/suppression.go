package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/suppression"
)

// SuppressionRepo implements suppression.Repository against PostgreSQL.
type SuppressionRepo struct{ db *sql.DB }

// NewSuppressionRepo creates a Postgres-backed suppression repository.
func NewSuppressionRepo(db *sql.DB) *SuppressionRepo { return &SuppressionRepo{db: db} }

func (r *SuppressionRepo) IsSuppressed(ctx context.Context, senderID, recipientID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM suppressions WHERE sender_id = $1 AND recipient_id = $2)`,
		senderID, recipientID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check suppression: %w", err)
	}
	return exists, nil
}

func (r *SuppressionRepo) Suppress(ctx context.Context, s *domain.Suppression) (bool, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO suppressions (id, sender_id, recipient_id, reason, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (sender_id, recipient_id) DO NOTHING
	`, s.ID, s.SenderID, s.RecipientID, string(s.Reason))
	if err != nil {
		return false, fmt.Errorf("suppress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("suppress rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SuppressionRepo) List(ctx context.Context, f suppression.ListFilter) ([]domain.Suppression, int, error) {
	where := ` WHERE ($1 = '' OR sender_id::text = $1) AND ($2 = '' OR reason = $2)`

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM suppressions`+where, f.SenderID, f.Reason,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count suppressions: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = total
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, reason, created_at
		FROM suppressions`+where+`
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, f.SenderID, f.Reason, limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list suppressions: %w", err)
	}
	defer rows.Close()

	var out []domain.Suppression
	for rows.Next() {
		var s domain.Suppression
		var reason string
		if err := rows.Scan(&s.ID, &s.SenderID, &s.RecipientID, &reason, &s.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan suppression: %w", err)
		}
		s.Reason = domain.SuppressionReason(reason)
		out = append(out, s)
	}
	return out, total, rows.Err()
}
