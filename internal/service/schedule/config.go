package schedule

import (
	"fmt"
	"time"
	_ "time/tzdata" // business location must resolve in minimal containers

	"github.com/ignite/outreach-engine/internal/service/allocation"
)

// Defaults for the daily schedule.
const (
	DefaultStartHour = 8
	DefaultEndHour   = 18
	DefaultLocation  = "Europe/Warsaw"
	DefaultMaxOffset = 15 * time.Minute
	DefaultBatchSize = 10
	DefaultRetries   = 2
)

// Config parameterizes a scheduling run.
//
// Zero MaxOffset and Retries take their defaults; a negative value
// disables jitter or retries.
type Config struct {
	StartHour int
	EndHour   int
	// Location is the IANA name of the business timezone.
	Location        string
	MaxOffset       time.Duration
	BatchSize       int
	Retries         int
	FailureCallback string
	Allocation      allocation.Config
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		StartHour:  DefaultStartHour,
		EndHour:    DefaultEndHour,
		Location:   DefaultLocation,
		MaxOffset:  DefaultMaxOffset,
		BatchSize:  DefaultBatchSize,
		Retries:    DefaultRetries,
		Allocation: allocation.DefaultConfig(),
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig. Negative
// MaxOffset and Retries are kept so they stay disabled on repeated calls.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.StartHour == 0 && c.EndHour == 0 {
		c.StartHour, c.EndHour = d.StartHour, d.EndHour
	}
	if c.Location == "" {
		c.Location = d.Location
	}
	if c.MaxOffset == 0 {
		c.MaxOffset = d.MaxOffset
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.Retries == 0 {
		c.Retries = d.Retries
	}
	c.Allocation = c.Allocation.WithDefaults()
	return c
}

func (c Config) location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: location %q: %v", ErrInvalidConfig, c.Location, err)
	}
	return loc, nil
}

// EffectiveMaxOffset is the jitter bound actually applied.
func (c Config) EffectiveMaxOffset() time.Duration {
	return max(c.MaxOffset, 0)
}

// EffectiveRetries is the retry count attached to dispatch messages.
func (c Config) EffectiveRetries() int {
	return max(c.Retries, 0)
}

func (c Config) validate() error {
	if c.StartHour < 0 || c.EndHour > 24 || c.StartHour >= c.EndHour {
		return fmt.Errorf("%w: window %02d:00-%02d:00", ErrInvalidConfig, c.StartHour, c.EndHour)
	}
	return nil
}
