// Package config loads the bot configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/akarpov/ledgerbot/internal/domain"
)

// Defaults for optional settings.
const (
	DefaultTimezone   = "UTC"
	DefaultCurrency   = "USD"
	DefaultSessionTTL = 10 * time.Minute
	DefaultHealthAddr = ":8080"
)

// Config is the full configuration surface of the bot.
type Config struct {
	TelegramBotToken string
	LedgerAPIToken   string
	LedgerAPIURL     string
	GeminiAPIKey     string

	Timezone         string
	DefaultCurrency  string
	DefaultAccountID string // empty when unset
	AccountTokens    domain.TokenMap
	SessionTTL       time.Duration
	HealthAddr       string
}

// Load reads the environment into a Config and validates required values.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramBotToken: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		LedgerAPIToken:   strings.TrimSpace(os.Getenv("LEDGER_API_TOKEN")),
		LedgerAPIURL:     strings.TrimSpace(os.Getenv("LEDGER_API_URL")),
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Timezone:         envOr("TIMEZONE", DefaultTimezone),
		DefaultCurrency:  strings.ToUpper(envOr("DEFAULT_CURRENCY", DefaultCurrency)),
		AccountTokens:    domain.ParseTokenMap(os.Getenv("ACCOUNT_TOKENS")),
		SessionTTL:       DefaultSessionTTL,
		HealthAddr:       envOr("HEALTH_ADDR", DefaultHealthAddr),
	}

	// A default account must be a plausible ledger asset id; anything
	// else behaves as unset.
	if raw := strings.TrimSpace(os.Getenv("DEFAULT_ACCOUNT_ID")); isDigits(raw) {
		cfg.DefaultAccountID = raw
	}

	if raw := strings.TrimSpace(os.Getenv("SESSION_TTL")); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid SESSION_TTL %q", raw)
		}
		cfg.SessionTTL = ttl
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.LedgerAPIToken == "" {
		missing = append(missing, "LEDGER_API_TOKEN")
	}
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Location resolves the configured timezone, falling back to UTC when it
// is invalid. The bool reports whether the configured value was usable.
func (c *Config) Location() (*time.Location, bool) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC, false
	}
	return loc, true
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
