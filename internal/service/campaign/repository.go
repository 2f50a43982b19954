package campaign

import (
	"context"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Repository defines the data access contract for campaigns.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, accountID, id string) (*domain.Campaign, error)

	// List returns campaigns matching the given filter, ordered by created_at DESC.
	List(ctx context.Context, accountID string, filter ListFilter) ([]domain.Campaign, int, error)

	// Create inserts a new campaign together with its category tags.
	Create(ctx context.Context, c *domain.Campaign) error

	// SetActive flips the active flag. Returns ErrNotFound if it doesn't exist.
	SetActive(ctx context.Context, accountID, id string, active bool) error

	// SetSender assigns the sender identity. Returns ErrNotFound if it doesn't exist.
	SetSender(ctx context.Context, accountID, id, senderID string) error

	// SenderAccount returns the account owning the sender identity, or
	// ErrNotFound.
	SenderAccount(ctx context.Context, senderID string) (string, error)
}

// ListFilter controls pagination and filtering for campaign lists.
type ListFilter struct {
	Active *bool
	Limit  int
	Offset int
}
