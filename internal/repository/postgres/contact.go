package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// ContactRepo implements contact.Repository against PostgreSQL.
type ContactRepo struct{ db *sql.DB }

// NewContactRepo creates a Postgres-backed contact repository.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

// InsertFirstContact inserts the pair and bumps the exposure count in one
// statement. The update only sees a row when the insert did not conflict.
func (r *ContactRepo) InsertFirstContact(ctx context.Context, senderID, recipientID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		WITH ins AS (
			INSERT INTO first_contacts (sender_id, recipient_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
			RETURNING recipient_id
		)
		UPDATE recipients
		SET exposure_count = exposure_count + 1
		WHERE id IN (SELECT recipient_id FROM ins)
	`, senderID, recipientID)
	if err != nil {
		return false, fmt.Errorf("insert first contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert first contact rows affected: %w", err)
	}
	return n > 0, nil
}
