package queue

import (
	"encoding/json"
	"time"
)

// Envelope is a stored message plus its delivery bookkeeping.
type Envelope struct {
	ID              string          `json:"id"`
	Destination     string          `json:"destination"`
	Body            json.RawMessage `json:"body"`
	NotBefore       time.Time       `json:"not_before"`
	Retried         int             `json:"retried"`
	MaxRetries      int             `json:"max_retries"`
	FailureCallback string          `json:"failure_callback,omitempty"`
	LastError       string          `json:"last_error,omitempty"`
	LastStatus      int             `json:"last_status,omitempty"`
	DLQID           string          `json:"dlq_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PublishRequest describes a message to enqueue.
type PublishRequest struct {
	Destination     string
	Body            any
	NotBefore       time.Time
	Retries         int
	FailureCallback string
}

// EmailBody is the payload of a scheduled send.
type EmailBody struct {
	SenderID            string `json:"sender_id"`
	RecipientID         string `json:"recipient_id"`
	CampaignID          string `json:"campaign_id"`
	ScheduledAt         string `json:"scheduled_at"`
	ScheduledAtReadable string `json:"scheduled_at_readable"`
}

// FailurePayload is POSTed to a message's failure callback once the
// message is dead-lettered. Body and SourceBody are base64-encoded.
type FailurePayload struct {
	Status          int    `json:"status"`
	Body            string `json:"body"`
	Retried         int    `json:"retried"`
	MaxRetries      int    `json:"maxRetries"`
	DLQID           string `json:"dlqId"`
	SourceMessageID string `json:"sourceMessageId"`
	URL             string `json:"url"`
	SourceBody      string `json:"sourceBody"`
	CreatedAt       int64  `json:"createdAt"`
}
