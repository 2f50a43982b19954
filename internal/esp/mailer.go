package esp

import (
	"context"
	"errors"

	"github.com/ignite/outreach-engine/internal/domain"
)

// ErrTokenExpired means the sender's stored grant is no longer usable.
var ErrTokenExpired = errors.New("sender refresh token expired or revoked")

// Message is a rendered e-mail ready for submission.
type Message struct {
	To       string
	Subject  string
	HTML     string
	Headers  map[string]string
	Metadata map[string]string
}

// Mailer sends a message as the given sender. Implementations must be
// safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, sender *domain.SenderIdentity, msg *Message) (messageID string, err error)
	Name() string
}
