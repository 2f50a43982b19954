package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/service/ingest"
)

// RecipientRepo implements ingest.Repository against PostgreSQL.
type RecipientRepo struct{ db *sql.DB }

// NewRecipientRepo creates a Postgres-backed recipient repository.
func NewRecipientRepo(db *sql.DB) *RecipientRepo { return &RecipientRepo{db: db} }

var _ ingest.Repository = (*RecipientRepo)(nil)

// UpsertRecipients writes all companies in one transaction. Each company
// runs under its own savepoint so a bad row is rolled back and counted
// without aborting the batch. Existing rows keep their id, created_at and
// exposure count; an empty e-mail never overwrites a known one.
func (r *RecipientRepo) UpsertRecipients(ctx context.Context, companies []domain.RegistryCompany) (ingest.UpsertResult, error) {
	var res ingest.UpsertResult
	if len(companies) == 0 {
		return res, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin upsert recipients: %w", err)
	}
	defer tx.Rollback()

	for _, c := range companies {
		if _, err := tx.ExecContext(ctx, `SAVEPOINT recipient_upsert`); err != nil {
			return ingest.UpsertResult{}, fmt.Errorf("savepoint: %w", err)
		}
		if err := upsertRecipient(ctx, tx, c); err != nil {
			logger.Warn("recipient upsert failed",
				"component", "postgres", "registry_number", c.RegistryNumber, "error", err)
			if _, rerr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT recipient_upsert`); rerr != nil {
				return ingest.UpsertResult{}, fmt.Errorf("rollback to savepoint: %w", rerr)
			}
			res.Failed++
			continue
		}
		if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT recipient_upsert`); err != nil {
			return ingest.UpsertResult{}, fmt.Errorf("release savepoint: %w", err)
		}
		res.Saved++
	}

	if err := tx.Commit(); err != nil {
		return ingest.UpsertResult{}, fmt.Errorf("commit upsert recipients: %w", err)
	}
	return res, nil
}

func upsertRecipient(ctx context.Context, tx *sql.Tx, c domain.RegistryCompany) error {
	var id string
	err := tx.QueryRowContext(ctx, `
		INSERT INTO recipients (id, name, email, registry_number, registered_at, registry_data)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		ON CONFLICT (registry_number) DO UPDATE SET
			name          = EXCLUDED.name,
			email         = COALESCE(EXCLUDED.email, recipients.email),
			registered_at = EXCLUDED.registered_at,
			registry_data = EXCLUDED.registry_data
		RETURNING id
	`, uuid.NewString(), c.Name, c.Email, c.RegistryNumber, c.RegisteredAt, nullJSON(c.Raw)).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert recipient: %w", err)
	}

	if len(c.Categories) == 0 {
		return nil
	}
	codes := c.CategoryCodes()
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO categories (code, name)
		SELECT * FROM unnest($1::text[], $2::text[])
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
	`, pq.Array(codes), pq.Array(names)); err != nil {
		return fmt.Errorf("upsert categories: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM recipient_categories
		WHERE recipient_id = $1 AND NOT (category_code = ANY($2::text[]))
	`, id, pq.Array(codes)); err != nil {
		return fmt.Errorf("prune recipient categories: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recipient_categories (recipient_id, category_code)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING
	`, id, pq.Array(codes)); err != nil {
		return fmt.Errorf("link recipient categories: %w", err)
	}
	return nil
}

// nullJSON passes raw JSON as text so the driver does not send it as bytea.
func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
