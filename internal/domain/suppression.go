package domain

import "time"

// SuppressionReason enumerates why a sender/recipient pair was suppressed.
type SuppressionReason string

const (
	ReasonUnsubscribe SuppressionReason = "unsubscribe"
	ReasonComplaint   SuppressionReason = "complaint"
	ReasonManual      SuppressionReason = "manual"
)

// Suppression permanently excludes a (sender identity, recipient) pair from
// future allocation.
type Suppression struct {
	ID          string            `json:"id" db:"id"`
	SenderID    string            `json:"sender_id" db:"sender_id"`
	RecipientID string            `json:"recipient_id" db:"recipient_id"`
	Reason      SuppressionReason `json:"reason" db:"reason"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// Key returns the pair this entry suppresses.
func (s Suppression) Key() PairKey {
	return PairKey{SenderID: s.SenderID, RecipientID: s.RecipientID}
}

// ContactRecord marks the first contact between a sender identity and a
// recipient. At most one exists per pair.
type ContactRecord struct {
	SenderID    string    `json:"sender_id" db:"sender_id"`
	RecipientID string    `json:"recipient_id" db:"recipient_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
