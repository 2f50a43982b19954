package domain

import "time"

// SenderIdentity is a mailbox that sends on behalf of an account. It is the
// unit of quota distribution and outbound rate limiting.
type SenderIdentity struct {
	ID           string    `json:"id" db:"id" yaml:"id"`
	AccountID    string    `json:"account_id" db:"account_id" yaml:"account_id"`
	Email        string    `json:"email" db:"email" yaml:"email"`
	RefreshToken string    `json:"-" db:"refresh_token" yaml:"refresh_token"`
	Active       bool      `json:"active" db:"is_active" yaml:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at" yaml:"created_at"`
}
