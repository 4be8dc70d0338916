package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate ensures the configuration is usable. Every problem is reported,
// not just the first.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.MaxConns < 1 {
		errs = append(errs, errors.New("database.max_conns must be at least 1"))
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, errors.New("database.min_conns must be between 0 and database.max_conns"))
	}
	if c.HTTP.RequestTimeout.Duration <= 0 {
		errs = append(errs, errors.New("http.request_timeout must be positive"))
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Redis.Addr != "" {
		if c.Redis.ApplyLimit < 1 {
			errs = append(errs, errors.New("redis.apply_limit must be at least 1 when redis.addr is set"))
		}
		if c.Redis.ApplyWindow.Duration <= 0 {
			errs = append(errs, errors.New("redis.apply_window must be positive when redis.addr is set"))
		}
	}
	if c.Booking.WeeklyHourCap <= 0 {
		errs = append(errs, errors.New("booking.weekly_hour_cap must be positive"))
	}
	if c.Booking.PostingTTL.Duration <= 0 {
		errs = append(errs, errors.New("booking.posting_ttl must be positive"))
	}
	if c.Booking.SweepInterval.Duration <= 0 {
		errs = append(errs, errors.New("booking.sweep_interval must be positive"))
	}
	if c.Booking.TxAttempts < 1 {
		errs = append(errs, errors.New("booking.tx_attempts must be at least 1"))
	}
	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("booking.timezone: %w", err))
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// RequireDatabase reports a missing database URL for commands that need one.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("database.url is required. Set DATABASE_URL or edit the config file")
	}
	return nil
}

// RequireJWTSecret reports a missing token secret for commands that sign or
// verify tokens.
func (c *Config) RequireJWTSecret() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret is required. Set JWT_SECRET or edit the config file")
	}
	return nil
}
