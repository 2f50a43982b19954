package domain

import "time"

// EmailLogStatus tracks a delivery attempt.
type EmailLogStatus string

const (
	EmailPending EmailLogStatus = "pending"
	EmailSent    EmailLogStatus = "sent"
	EmailFailed  EmailLogStatus = "failed"
)

// EmailLog records one delivery attempt for an assignment.
type EmailLog struct {
	ID               string         `json:"id" db:"id"`
	CampaignID       string         `json:"campaign_id" db:"campaign_id"`
	SenderID         string         `json:"sender_id" db:"sender_id"`
	RecipientID      string         `json:"recipient_id" db:"recipient_id"`
	UnsubscribeToken string         `json:"-" db:"unsubscribe_token"`
	Status           EmailLogStatus `json:"status" db:"status"`
	MessageID        string         `json:"message_id,omitempty" db:"message_id"`
	Error            string         `json:"error,omitempty" db:"error"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}
