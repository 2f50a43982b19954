package domain

import (
	"encoding/json"
	"time"
)

// Category is a business activity classification code with its label.
type Category struct {
	Code string `json:"code" db:"code"`
	Name string `json:"name" db:"name"`
}

// RegistryCompany is a newly registered company read from the court
// register, ready to be stored as a recipient.
type RegistryCompany struct {
	// RegistryNumber is the zero-padded ten digit register number.
	RegistryNumber string          `json:"registry_number"`
	Registry       string          `json:"registry,omitempty"`
	Name           string          `json:"name"`
	Email          string          `json:"email,omitempty"`
	RegisteredAt   time.Time       `json:"registered_at"`
	Categories     []Category      `json:"categories,omitempty"`
	Raw            json.RawMessage `json:"-"`
}

// CategoryCodes returns the codes of c.Categories in order.
func (c RegistryCompany) CategoryCodes() []string {
	codes := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		codes[i] = cat.Code
	}
	return codes
}
