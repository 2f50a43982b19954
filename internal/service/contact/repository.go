package contact

import "context"

// Repository defines the write-back contract.
type Repository interface {
	// InsertFirstContact inserts the pair if absent and, only then,
	// increments the recipient's exposure count, atomically. Reports
	// whether the pair was new.
	InsertFirstContact(ctx context.Context, senderID, recipientID string) (bool, error)
}
