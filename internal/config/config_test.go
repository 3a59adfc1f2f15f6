package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryDefaults(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("BACKEND", "memory")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, NotifierLog, cfg.Notifier)
	assert.Equal(t, "1234", cfg.SubscriptionCode)
	assert.Equal(t, int64(3), cfg.SignupBonus)
	assert.Equal(t, time.Hour, cfg.ResourceCacheTTL)
	assert.Equal(t, "@every 5m", cfg.ReconcileSchedule)
	assert.True(t, cfg.IsRelease())
}

func TestLoad_FirestoreRequiresProject(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("BACKEND", "firestore")
	t.Setenv("FIREBASE_PROJECT_ID", "")

	_, err := load(viper.New())
	assert.ErrorContains(t, err, "FIREBASE_PROJECT_ID")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Backend:              BackendMemory,
			Notifier:             NotifierLog,
			MaxProfileImageBytes: 1024,
			RateLimitRPS:         1,
			RateLimitBurst:       1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Backend = "sql" }, "BACKEND"},
		{"fcm needs firestore", func(c *Config) { c.Notifier = NotifierFCM }, "NOTIFIER=fcm"},
		{"amqp needs url", func(c *Config) { c.Notifier = NotifierAMQP }, "AMQP_URL"},
		{"negative bonus", func(c *Config) { c.SignupBonus = -1 }, "SIGNUP_BONUS"},
		{"zero rate", func(c *Config) { c.RateLimitRPS = 0 }, "RATE_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
