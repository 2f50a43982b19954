package domain

import "time"

// Recipient is an organization that can be contacted by sender identities.
// ExposureCount is the number of distinct sender identities that have
// already contacted it.
type Recipient struct {
	ID            string    `json:"id" db:"id" yaml:"id"`
	Name          string    `json:"name" db:"name" yaml:"name"`
	Email         string    `json:"email,omitempty" db:"email" yaml:"email"`
	Categories    []string  `json:"categories" db:"-" yaml:"categories"`
	ExposureCount int       `json:"exposure_count" db:"exposure_count" yaml:"exposure_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at" yaml:"created_at"`
}

// RemainingSlots returns how many more distinct senders may contact the
// recipient under the given exposure cap. Never negative.
func (r Recipient) RemainingSlots(maxExposure int) int {
	n := maxExposure - r.ExposureCount
	if n < 0 {
		return 0
	}
	return n
}

// Contactable reports whether the recipient has an address to send to.
func (r Recipient) Contactable() bool {
	return r.Email != ""
}
