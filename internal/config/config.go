// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"CAFEDIR_DB_PATH" envDefault:"./data/cafedir.db"`
	SessionSecret string `env:"CAFEDIR_SESSION_SECRET,required"`
	ServerHost    string `env:"CAFEDIR_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"CAFEDIR_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"CAFEDIR_ENV" envDefault:"development"`
	LogLevel      string `env:"CAFEDIR_LOG_LEVEL" envDefault:"info"`

	// Seed admin account, provisioned only when the users table is empty
	AdminEmail    string `env:"CAFEDIR_ADMIN_EMAIL"`
	AdminPassword string `env:"CAFEDIR_ADMIN_PASSWORD"`

	// Outbound mail for cafe suggestion notifications
	SMTPHost     string `env:"CAFEDIR_SMTP_HOST"`
	SMTPPort     int    `env:"CAFEDIR_SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"CAFEDIR_SMTP_USER"`
	SMTPPassword string `env:"CAFEDIR_SMTP_PASSWORD"`
	SMTPFrom     string `env:"CAFEDIR_SMTP_FROM"`
	SMTPTo       string `env:"CAFEDIR_SMTP_TO"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// SMTPEnabled returns true if outbound mail is configured.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != "" && c.SMTPTo != ""
}

// SeedAdminEnabled returns true if a seed admin account is configured.
func (c Config) SeedAdminEnabled() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("CAFEDIR_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("CAFEDIR_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("CAFEDIR_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
