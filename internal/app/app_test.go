package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/alert"
	"github.com/ignite/outreach-engine/internal/config"
)

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := OpenRedis(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, mr.Addr(), client.Options().Addr)

	_, err = OpenRedis(context.Background(), config.RedisConfig{URL: "://nope"})
	assert.Error(t, err)
}

func TestOpenDBRequiresURL(t *testing.T) {
	_, err := OpenDB(context.Background(), config.DatabaseConfig{})
	assert.Error(t, err)
}

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(context.Background(), config.DeliveryConfig{
		Provider: "gmail",
		Google:   config.GoogleConfig{ClientID: "id", ClientSecret: "secret"},
	})
	require.NoError(t, err)
	assert.Equal(t, "gmail", m.Name())

	_, err = NewMailer(context.Background(), config.DeliveryConfig{Provider: "pigeon"})
	assert.Error(t, err)
}

func TestNewAlerter(t *testing.T) {
	assert.IsType(t, alert.LogAlerter{}, NewAlerter(config.AlertsConfig{}))
	assert.IsType(t, &alert.SMTPAlerter{}, NewAlerter(config.AlertsConfig{Enabled: true, SMTPHost: "smtp.example.com"}))
}
