package config

import "time"

const (
	defaultHTTPAddr       = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultTokenTTL       = 24 * time.Hour
	defaultMaxConns       = 10
	defaultMinConns       = 1
	defaultMaxConnIdle    = 5 * time.Minute
	defaultMaxConnLife    = 30 * time.Minute
	defaultApplyLimit     = 10
	defaultApplyWindow    = time.Minute
	defaultTimezone       = "Local"
	defaultWeeklyHourCap  = 50
	defaultPostingTTL     = 7 * 24 * time.Hour
	defaultSweepInterval  = time.Minute
	defaultTxAttempts     = 3
	defaultLogLevel       = "info"
	defaultLogFormat      = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Database: Database{
			MaxConns:    defaultMaxConns,
			MinConns:    defaultMinConns,
			MaxConnIdle: Duration{defaultMaxConnIdle},
			MaxConnLife: Duration{defaultMaxConnLife},
		},
		HTTP: HTTP{
			Addr:           defaultHTTPAddr,
			RequestTimeout: Duration{defaultRequestTimeout},
		},
		Auth: Auth{
			TokenTTL: Duration{defaultTokenTTL},
		},
		Redis: Redis{
			ApplyLimit:  defaultApplyLimit,
			ApplyWindow: Duration{defaultApplyWindow},
		},
		Booking: Booking{
			Timezone:      defaultTimezone,
			WeeklyHourCap: defaultWeeklyHourCap,
			PostingTTL:    Duration{defaultPostingTTL},
			SweepInterval: Duration{defaultSweepInterval},
			TxAttempts:    defaultTxAttempts,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
