package delivery

import (
	"errors"

	"github.com/ignite/outreach-engine/internal/esp"
)

var (
	// ErrNotFound is returned by repositories for unknown ids.
	ErrNotFound = errors.New("not found")
	// ErrMissingData means sender, recipient or campaign could not be loaded.
	ErrMissingData = errors.New("missing data for assignment")
	// ErrNoRecipientEmail means the recipient has no address.
	ErrNoRecipientEmail = errors.New("recipient has no e-mail")
	// ErrTokenExpired means the sender's mailbox grant was revoked.
	ErrTokenExpired = esp.ErrTokenExpired
)
