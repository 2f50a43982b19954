package domain

import "time"

// Campaign is an outreach flow owned by one account. It is eligible for
// allocation only when it is active and has a sender identity assigned.
type Campaign struct {
	ID           string    `json:"id" db:"id" yaml:"id"`
	AccountID    string    `json:"account_id" db:"account_id" yaml:"account_id"`
	SenderID     string    `json:"sender_id,omitempty" db:"sender_id" yaml:"sender_id"`
	Name         string    `json:"name" db:"name" yaml:"name"`
	TemplateHTML string    `json:"template_html" db:"template_html" yaml:"template_html"`
	Categories   []string  `json:"categories" db:"-" yaml:"categories"`
	Active       bool      `json:"active" db:"is_active" yaml:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at" yaml:"created_at"`
}

// Eligible reports whether the campaign can take part in an allocation run.
func (c Campaign) Eligible() bool {
	return c.Active && c.SenderID != ""
}
