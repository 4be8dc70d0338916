// Package config loads laborbook settings from a TOML file layered over
// defaults, then applies environment overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// EnvConfigPath names the variable consulted when no --config flag is given.
const EnvConfigPath = "LABORBOOK_CONFIG"

// Duration decodes TOML strings such as "168h" or "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Database struct {
	URL         string   `toml:"url"`
	MaxConns    int32    `toml:"max_conns"`
	MinConns    int32    `toml:"min_conns"`
	MaxConnIdle Duration `toml:"max_conn_idle"`
	MaxConnLife Duration `toml:"max_conn_life"`
}

type HTTP struct {
	Addr           string   `toml:"addr"`
	RequestTimeout Duration `toml:"request_timeout"`
}

type Auth struct {
	JWTSecret string   `toml:"jwt_secret"`
	TokenTTL  Duration `toml:"token_ttl"`
}

// Redis backs the apply rate limiter. An empty Addr disables limiting.
type Redis struct {
	Addr        string   `toml:"addr"`
	Password    string   `toml:"password"`
	DB          int      `toml:"db"`
	ApplyLimit  int      `toml:"apply_limit"`
	ApplyWindow Duration `toml:"apply_window"`
}

type Booking struct {
	Timezone      string   `toml:"timezone"`
	WeeklyHourCap float64  `toml:"weekly_hour_cap"`
	PostingTTL    Duration `toml:"posting_ttl"`
	SweepInterval Duration `toml:"sweep_interval"`
	TxAttempts    int      `toml:"tx_attempts"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for laborbook.
type Config struct {
	Database Database `toml:"database"`
	HTTP     HTTP     `toml:"http"`
	Auth     Auth     `toml:"auth"`
	Redis    Redis    `toml:"redis"`
	Booking  Booking  `toml:"booking"`
	Logging  Logging  `toml:"logging"`

	location *time.Location
}

// Load resolves the config path, decodes the file over Default when it exists,
// applies environment overrides and validates the result. It returns the
// config, the resolved path and whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// SampleConfig returns a commented config file with every key at its default.
func SampleConfig() string {
	return sampleConfig
}

// Location is the zone week windows and posting dates are computed in.
func (c *Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return time.Local
	}
	c.location = loc
	return loc
}

func resolveConfigPath(path string) (string, bool, error) {
	explicit := path != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
		explicit = path != ""
	}
	if !explicit {
		path = "laborbook.toml"
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", false, fmt.Errorf("resolve config path %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if explicit {
				return "", false, fmt.Errorf("config file %s does not exist", abs)
			}
			return abs, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", abs)
	}
	return abs, true, nil
}

func (c *Config) applyEnv() error {
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
	c.Booking.Timezone = getEnv("TIMEZONE", c.Booking.Timezone)

	if value := strings.TrimSpace(os.Getenv("WEEKLY_HOUR_CAP")); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("WEEKLY_HOUR_CAP: %w", err)
		}
		c.Booking.WeeklyHourCap = parsed
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}
