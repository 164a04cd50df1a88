package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
)

// Config holds process settings read from ROLLCALL_* environment variables.
// TrustedProxies lists addresses or CIDR ranges allowed to set forwarding
// headers.
type Config struct {
	Port           string        `env:"PORT"            envDefault:"8080"`
	DBPath         string        `env:"DB_PATH"         envDefault:"rollcall.db"`
	LogLevel       string        `env:"LOG_LEVEL"       envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT"      envDefault:"text"`
	AdminPassword  string        `env:"ADMIN_PASSWORD"`
	TimeZone       string        `env:"TIMEZONE"        envDefault:"Australia/Sydney"`
	TokenTTL       time.Duration `env:"TOKEN_TTL"       envDefault:"24h"`
	CheckInGrace   time.Duration `env:"CHECKIN_GRACE"   envDefault:"5m"`
	SecureCookie   bool          `env:"SECURE_COOKIE"`
	WSOrigins      []string      `env:"WS_ORIGINS"      envSeparator:","`
	TrustedProxies []string      `env:"TRUSTED_PROXIES" envSeparator:","`

	location *time.Location
}

const prefix = "ROLLCALL_"

// Load parses the environment and resolves the target time zone.
func Load() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	loc, err := time.LoadLocation(strings.TrimSpace(cfg.TimeZone))
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", cfg.TimeZone, err)
	}
	cfg.location = loc

	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("%sTOKEN_TTL must be positive, got %s", prefix, cfg.TokenTTL)
	}
	if cfg.CheckInGrace < 0 {
		return nil, fmt.Errorf("%sCHECKIN_GRACE must not be negative, got %s", prefix, cfg.CheckInGrace)
	}
	return &cfg, nil
}

// Location is TimeZone resolved by Load.
func (c *Config) Location() *time.Location {
	return c.location
}
