package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2, cfg.MaxExposurePerRecipient)
	assert.Equal(t, 7, cfg.RecencyWindowDays)
	assert.Equal(t, QuotaEqual, cfg.QuotaStrategy)
	assert.Equal(t, SelectLeastLoaded, cfg.CampaignSelection)
	assert.Equal(t, 0, cfg.MaxAssignmentsPerSender)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_WithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{MaxExposurePerRecipient: 5, CampaignSelection: SelectRandom}.WithDefaults()
	assert.Equal(t, 5, cfg.MaxExposurePerRecipient)
	assert.Equal(t, 7, cfg.RecencyWindowDays)
	assert.Equal(t, QuotaEqual, cfg.QuotaStrategy)
	assert.Equal(t, SelectRandom, cfg.CampaignSelection)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown quota", Config{QuotaStrategy: "weighted", CampaignSelection: SelectRoundRobin}},
		{"unknown selection", Config{QuotaStrategy: QuotaEqual, CampaignSelection: "fifo"}},
		{"negative cap", Config{QuotaStrategy: QuotaEqual, CampaignSelection: SelectRoundRobin, MaxAssignmentsPerSender: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestParseStrategies(t *testing.T) {
	q, err := ParseQuotaStrategy("proportional")
	require.NoError(t, err)
	assert.Equal(t, QuotaProportional, q)

	s, err := ParseSelectionStrategy("round_robin")
	require.NoError(t, err)
	assert.Equal(t, SelectRoundRobin, s)

	_, err = ParseSelectionStrategy("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfig_Apply(t *testing.T) {
	maxExp, quota, capPer := 3, "proportional", 10
	cfg := DefaultConfig().Apply(Overrides{
		MaxExposurePerRecipient: &maxExp,
		QuotaStrategy:           &quota,
		MaxAssignmentsPerSender: &capPer,
	})

	assert.Equal(t, 3, cfg.MaxExposurePerRecipient)
	assert.Equal(t, QuotaProportional, cfg.QuotaStrategy)
	assert.Equal(t, 10, cfg.MaxAssignmentsPerSender)
	assert.Equal(t, 7, cfg.RecencyWindowDays)
	assert.Equal(t, SelectLeastLoaded, cfg.CampaignSelection)
}
