package allocation

import "fmt"

// QuotaStrategy controls how the available slots are split across senders.
type QuotaStrategy string

const (
	QuotaEqual        QuotaStrategy = "equal"
	QuotaProportional QuotaStrategy = "proportional"
)

// SelectionStrategy controls which campaign claims a sender/recipient pair
// when several campaigns of the sender match the recipient.
type SelectionStrategy string

const (
	SelectRoundRobin  SelectionStrategy = "round_robin"
	SelectLeastLoaded SelectionStrategy = "least_loaded"
	SelectRandom      SelectionStrategy = "random"
)

// Defaults for a planning run.
const (
	DefaultMaxExposurePerRecipient = 2
	DefaultRecencyWindowDays       = 7
)

// Config parameterizes a planning run.
type Config struct {
	MaxExposurePerRecipient int               `json:"max_exposure_per_recipient" yaml:"max_exposure_per_recipient"`
	RecencyWindowDays       int               `json:"recency_window_days" yaml:"recency_window_days"`
	QuotaStrategy           QuotaStrategy     `json:"quota_strategy" yaml:"quota_strategy"`
	CampaignSelection       SelectionStrategy `json:"campaign_selection" yaml:"campaign_selection"`
	// MaxAssignmentsPerSender caps each sender's quota. Zero means unbounded.
	MaxAssignmentsPerSender int `json:"max_assignments_per_sender" yaml:"max_assignments_per_sender"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxExposurePerRecipient: DefaultMaxExposurePerRecipient,
		RecencyWindowDays:       DefaultRecencyWindowDays,
		QuotaStrategy:           QuotaEqual,
		CampaignSelection:       SelectLeastLoaded,
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.MaxExposurePerRecipient == 0 {
		c.MaxExposurePerRecipient = d.MaxExposurePerRecipient
	}
	if c.RecencyWindowDays == 0 {
		c.RecencyWindowDays = d.RecencyWindowDays
	}
	if c.QuotaStrategy == "" {
		c.QuotaStrategy = d.QuotaStrategy
	}
	if c.CampaignSelection == "" {
		c.CampaignSelection = d.CampaignSelection
	}
	return c
}

// Validate rejects unknown strategies and negative limits.
func (c Config) Validate() error {
	if _, err := ParseQuotaStrategy(string(c.QuotaStrategy)); err != nil {
		return err
	}
	if _, err := ParseSelectionStrategy(string(c.CampaignSelection)); err != nil {
		return err
	}
	if c.MaxExposurePerRecipient < 0 || c.RecencyWindowDays < 0 || c.MaxAssignmentsPerSender < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ParseQuotaStrategy validates a quota strategy name.
func ParseQuotaStrategy(s string) (QuotaStrategy, error) {
	switch q := QuotaStrategy(s); q {
	case QuotaEqual, QuotaProportional:
		return q, nil
	default:
		return "", fmt.Errorf("%w: unknown quota strategy %q", ErrInvalidConfig, s)
	}
}

// ParseSelectionStrategy validates a campaign selection strategy name.
func ParseSelectionStrategy(s string) (SelectionStrategy, error) {
	switch sel := SelectionStrategy(s); sel {
	case SelectRoundRobin, SelectLeastLoaded, SelectRandom:
		return sel, nil
	default:
		return "", fmt.Errorf("%w: unknown campaign selection strategy %q", ErrInvalidConfig, s)
	}
}

// Overrides holds optional per-run changes to a Config, e.g. from a preview
// request. Nil fields keep the base value.
type Overrides struct {
	MaxExposurePerRecipient *int    `json:"max_exposure_per_recipient,omitempty"`
	RecencyWindowDays       *int    `json:"recency_window_days,omitempty"`
	QuotaStrategy           *string `json:"quota_strategy,omitempty"`
	CampaignSelection       *string `json:"campaign_selection,omitempty"`
	MaxAssignmentsPerSender *int    `json:"max_assignments_per_sender,omitempty"`
}

// Apply returns c with the non-nil overrides applied.
func (c Config) Apply(o Overrides) Config {
	if o.MaxExposurePerRecipient != nil {
		c.MaxExposurePerRecipient = *o.MaxExposurePerRecipient
	}
	if o.RecencyWindowDays != nil {
		c.RecencyWindowDays = *o.RecencyWindowDays
	}
	if o.QuotaStrategy != nil {
		c.QuotaStrategy = QuotaStrategy(*o.QuotaStrategy)
	}
	if o.CampaignSelection != nil {
		c.CampaignSelection = SelectionStrategy(*o.CampaignSelection)
	}
	if o.MaxAssignmentsPerSender != nil {
		c.MaxAssignmentsPerSender = *o.MaxAssignmentsPerSender
	}
	return c
}
