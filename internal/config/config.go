package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL    string
	LogLevel       string
	Port           string
	MigrationsPath string

	// Escalation tuning. Grace periods are expressed in minutes to match
	// how caregivers configure them.
	VoiceGracePeriod time.Duration
	SMSGracePeriod   time.Duration
	TickInterval     time.Duration
	GatewayTimeout   time.Duration

	// Optional Telegram caregiver-alert channel. Alerts fall back to the
	// console channel when no token is configured.
	TelegramToken string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		Port:           getEnvOrDefault("PORT", "8080"),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", "migrations"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
	}

	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	voiceMinutes, err := getEnvInt("GRACE_PERIOD_VOICE", 15)
	if err != nil {
		return nil, err
	}
	smsMinutes, err := getEnvInt("GRACE_PERIOD_SMS", 10)
	if err != nil {
		return nil, err
	}
	tickSeconds, err := getEnvInt("TICK_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	gatewaySeconds, err := getEnvInt("GATEWAY_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	cfg.VoiceGracePeriod = time.Duration(voiceMinutes) * time.Minute
	cfg.SMSGracePeriod = time.Duration(smsMinutes) * time.Minute
	cfg.TickInterval = time.Duration(tickSeconds) * time.Second
	cfg.GatewayTimeout = time.Duration(gatewaySeconds) * time.Second

	if cfg.GatewayTimeout >= cfg.TickInterval {
		// A gateway call slower than the tick cadence would stall the loop.
		return nil, fmt.Errorf("GATEWAY_TIMEOUT_SECONDS (%v) must be shorter than TICK_INTERVAL_SECONDS (%v)",
			cfg.GatewayTimeout, cfg.TickInterval)
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable parsed as a positive integer,
// or the default when the variable is unset.
func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}
