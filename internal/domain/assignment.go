package domain

import "time"

// Assignment is one planned send: which campaign a sender identity uses to
// contact a recipient. Assignments are never persisted; they are realized as
// ContactRecords once the message has been delivered.
type Assignment struct {
	CampaignID  string `json:"campaign_id"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
}

// Key returns the sender/recipient pair of the assignment.
func (a Assignment) Key() PairKey {
	return PairKey{SenderID: a.SenderID, RecipientID: a.RecipientID}
}

// DispatchMessage is what the schedule planner hands to the dispatch queue
// for a single assignment.
type DispatchMessage struct {
	Assignment      Assignment
	ScheduledAt     time.Time
	Retries         int
	FailureCallback string
}
