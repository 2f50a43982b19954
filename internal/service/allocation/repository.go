package allocation

import (
	"context"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Source supplies the read models the engine plans over.
type Source interface {
	// ActiveCampaigns returns active campaigns that have a sender identity
	// assigned, with their category tags.
	ActiveCampaigns(ctx context.Context) ([]domain.Campaign, error)

	// EligibleRecipients returns contactable recipients created at or after
	// q.CreatedSince whose exposure count is below q.MaxExposure.
	EligibleRecipients(ctx context.Context, q RecipientQuery) ([]domain.Recipient, error)

	// ActiveSenders returns the active sender identities of one account.
	ActiveSenders(ctx context.Context, accountID string) ([]domain.SenderIdentity, error)

	// SuppressedPairs returns every globally suppressed sender/recipient pair.
	SuppressedPairs(ctx context.Context) (domain.PairSet, error)

	// ContactedPairs returns every sender/recipient pair with a contact record.
	ContactedPairs(ctx context.Context) (domain.PairSet, error)
}

// RecipientQuery filters recipients server-side.
type RecipientQuery struct {
	MaxExposure  int
	CreatedSince time.Time
}
