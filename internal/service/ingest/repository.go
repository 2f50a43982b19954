package ingest

import (
	"context"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Repository persists ingested companies as recipients.
type Repository interface {
	// UpsertRecipients inserts or refreshes recipients keyed on the
	// register number. A failure on one company does not abort the others;
	// it is counted in UpsertResult.Failed.
	UpsertRecipients(ctx context.Context, companies []domain.RegistryCompany) (UpsertResult, error)
}

// UpsertResult counts the outcome of one bulk upsert.
type UpsertResult struct {
	Saved  int `json:"saved"`
	Failed int `json:"failed"`
}

// Registry reads the court register.
type Registry interface {
	// Bulletin lists the register numbers published on day.
	Bulletin(ctx context.Context, day time.Time) ([]string, error)
	// Company returns the parsed current extract for a register number.
	Company(ctx context.Context, number string) (*domain.RegistryCompany, error)
}
