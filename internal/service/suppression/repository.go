package suppression

import (
	"context"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Repository defines the data access contract for suppressions.
type Repository interface {
	// IsSuppressed returns true if the pair is suppressed.
	IsSuppressed(ctx context.Context, senderID, recipientID string) (bool, error)

	// Suppress inserts the entry unless the pair already exists, in which
	// case the existing record is preserved. Reports whether a row was added.
	Suppress(ctx context.Context, s *domain.Suppression) (bool, error)

	// List returns suppression entries matching the filter and the total
	// number of matches.
	List(ctx context.Context, filter ListFilter) ([]domain.Suppression, int, error)
}

// ListFilter controls pagination and filtering for suppression lists.
type ListFilter struct {
	SenderID string
	Reason   string
	Limit    int
	Offset   int
}
