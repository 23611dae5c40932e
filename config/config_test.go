package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Host: "localhost", User: "medbook", Name: "booking"},
		Redis:    RedisConfig{URL: "redis://localhost:6379/0"},
		WhatsApp: WhatsAppConfig{
			AccountSID: "AC123",
			AuthToken:  "secret",
			FromNumber: "+15550001111",
			BaseURL:    "https://api.provider.example",
		},
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.applyDefaults()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 50, cfg.Outbox.BatchSize)
	assert.Equal(t, "+05:30", cfg.Booking.ClinicUTCOffset)
	assert.Equal(t, 60*time.Minute, cfg.Booking.FeedbackOffset)
	assert.Equal(t, float64(100), cfg.RateLimit.RequestsPerSecond)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 9000
	cfg.Booking.FeedbackOffset = 2 * time.Hour
	cfg.applyDefaults()

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Booking.FeedbackOffset)
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	missingDB := validConfig()
	missingDB.Database.Host = ""
	assert.Error(t, missingDB.Validate())

	missingRedis := validConfig()
	missingRedis.Redis.URL = ""
	assert.Error(t, missingRedis.Validate())

	missingWA := validConfig()
	missingWA.WhatsApp.AuthToken = ""
	assert.Error(t, missingWA.Validate())
}

func TestConversionMethods(t *testing.T) {
	cfg := validConfig()
	cfg.applyDefaults()

	wc := cfg.Outbox.ToWorkerConfig()
	assert.Equal(t, cfg.Outbox.BatchSize, wc.BatchSize)
	assert.Equal(t, cfg.Outbox.RetryAttempts, wc.RetryAttempts)

	bc := cfg.Redis.ToBrokerConfig()
	assert.Equal(t, cfg.Redis.URL, bc.URL)

	rc := cfg.Scheduler.ToRunnerConfig()
	assert.Equal(t, cfg.Scheduler.PollInterval, rc.PollInterval)

	gc := cfg.WhatsApp.ToGatewayConfig()
	assert.Equal(t, "AC123", gc.AccountSID)
}
