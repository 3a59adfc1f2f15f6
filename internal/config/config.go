package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend selects the document store and auth provider implementation.
const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Notifier selects how status-change notifications are delivered.
const (
	NotifierLog  = "log"
	NotifierFCM  = "fcm"
	NotifierAMQP = "amqp"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string        `mapstructure:"PORT"`
	GinMode                          string        `mapstructure:"GIN_MODE"`
	Backend                          string        `mapstructure:"BACKEND"`
	FirebaseProjectID                string        `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string        `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string        `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	FirebaseWebAPIKey                string        `mapstructure:"FIREBASE_WEB_API_KEY"` // Identity Toolkit sign-in
	ClientURL                        string        `mapstructure:"CLIENT_URL"`
	RedisAddr                        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword                    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB                          int           `mapstructure:"REDIS_DB"`
	ResourceCacheTTL                 time.Duration `mapstructure:"RESOURCE_CACHE_TTL"`
	Notifier                         string        `mapstructure:"NOTIFIER"`
	AMQPURL                          string        `mapstructure:"AMQP_URL"`
	AMQPQueue                        string        `mapstructure:"AMQP_QUEUE"`
	SubscriptionCode                 string        `mapstructure:"SUBSCRIPTION_CODE"`
	SignupBonus                      int64         `mapstructure:"SIGNUP_BONUS"`
	MaxProfileImageBytes             int           `mapstructure:"MAX_PROFILE_IMAGE_BYTES"`
	RateLimitRPS                     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst                   int           `mapstructure:"RATE_LIMIT_BURST"`
	ReconcileSchedule                string        `mapstructure:"RECONCILE_SCHEDULE"`
}

var envKeys = []string{
	"PORT", "GIN_MODE", "BACKEND",
	"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64", "FIREBASE_WEB_API_KEY",
	"CLIENT_URL",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "RESOURCE_CACHE_TTL",
	"NOTIFIER", "AMQP_URL", "AMQP_QUEUE",
	"SUBSCRIPTION_CODE", "SIGNUP_BONUS", "MAX_PROFILE_IMAGE_BYTES",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "RECONCILE_SCHEDULE",
}

// LoadConfig loads configuration from environment variables using Viper.
// Outside release mode a .env file in the working directory is loaded first;
// variables already present in the environment win.
func LoadConfig() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	if !strings.EqualFold(os.Getenv("GIN_MODE"), "release") {
		_ = godotenv.Load()
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("BACKEND", BackendFirestore)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RESOURCE_CACHE_TTL", "1h")
	v.SetDefault("NOTIFIER", NotifierLog)
	v.SetDefault("AMQP_QUEUE", "favor-notifications")
	v.SetDefault("SUBSCRIPTION_CODE", "1234")
	v.SetDefault("SIGNUP_BONUS", 3)
	v.SetDefault("MAX_PROFILE_IMAGE_BYTES", 1<<20)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RECONCILE_SCHEDULE", "@every 5m")

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}
	cfg.Backend = strings.ToLower(cfg.Backend)
	cfg.Notifier = strings.ToLower(cfg.Notifier)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the combinations of settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required")
		}
		if c.FirebaseWebAPIKey == "" {
			return errors.New("FIREBASE_WEB_API_KEY is required for the firestore backend")
		}
	default:
		return errors.New("BACKEND must be 'firestore' or 'memory'")
	}

	switch c.Notifier {
	case NotifierLog:
	case NotifierFCM:
		if c.Backend != BackendFirestore {
			return errors.New("NOTIFIER=fcm requires BACKEND=firestore")
		}
	case NotifierAMQP:
		if c.AMQPURL == "" {
			return errors.New("AMQP_URL is required when NOTIFIER=amqp")
		}
	default:
		return errors.New("NOTIFIER must be one of 'log', 'fcm', 'amqp'")
	}

	if c.SignupBonus < 0 {
		return errors.New("SIGNUP_BONUS cannot be negative")
	}
	if c.MaxProfileImageBytes <= 0 {
		return errors.New("MAX_PROFILE_IMAGE_BYTES must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// IsRelease reports whether gin should run in release mode.
func (c *Config) IsRelease() bool {
	return strings.EqualFold(c.GinMode, "release")
}
