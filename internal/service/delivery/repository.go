package delivery

import (
	"context"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Repository is the data access the delivery flow needs. Get methods
// return ErrNotFound for unknown ids.
type Repository interface {
	Sender(ctx context.Context, id string) (*domain.SenderIdentity, error)
	Recipient(ctx context.Context, id string) (*domain.Recipient, error)
	Campaign(ctx context.Context, id string) (*domain.Campaign, error)

	// DeactivateSender clears the stored refresh token and marks the
	// sender inactive until the mailbox is reconnected.
	DeactivateSender(ctx context.Context, id string) error

	CreateEmailLog(ctx context.Context, log *domain.EmailLog) error
	UpdateEmailLog(ctx context.Context, id string, status domain.EmailLogStatus, messageID, errMsg string) error
}

// TokenIssuer issues unsubscribe tokens.
type TokenIssuer interface {
	Issue(senderID, recipientID string) (string, error)
}

// ContactRecorder writes back the first contact.
type ContactRecorder interface {
	RecordContact(ctx context.Context, senderID, recipientID string) (bool, error)
}
