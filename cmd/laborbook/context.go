package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"laborbook/account"
	"laborbook/application"
	"laborbook/booking"
	"laborbook/config"
	"laborbook/db"
	"laborbook/logging"
	"laborbook/posting"
	"laborbook/wage"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// withPool opens the database named by the config for the duration of fn.
func (c *commandContext) withPool(ctx context.Context, fn func(*pgxpool.Pool) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.Database.URL, db.PoolOptions{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnIdleTime: cfg.Database.MaxConnIdle.Duration,
		MaxConnLifetime: cfg.Database.MaxConnLife.Duration,
	})
	if err != nil {
		return fmt.Errorf("bootstrap database pool: %w", err)
	}
	defer pool.Close()
	return fn(pool)
}

// services is the wired domain layer shared by serve and the admin commands.
type services struct {
	accounts     *account.Service
	rates        *wage.RatesStore
	postings     *posting.Service
	postingRepo  *posting.PGRepository
	feed         *posting.Feed
	bookings     *booking.Service
	ledger       *booking.Ledger
	applications *application.Workflow
}

func buildServices(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) *services {
	loc := cfg.Location()

	profileRepo := account.NewRepository(pool)
	accounts := account.NewService(profileRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Duration)
	rates := wage.NewRatesStore(pool)

	postingRepo := posting.NewRepository(pool, loc)
	postings := posting.NewService(pool, postingRepo, rates, accounts, posting.Options{
		TTL:        cfg.Booking.PostingTTL.Duration,
		TxAttempts: cfg.Booking.TxAttempts,
		Location:   loc,
	})

	bookingRepo := booking.NewRepository(pool, loc)
	ledger := booking.NewLedger(bookingRepo, loc)

	workflow := application.NewWorkflow(pool,
		application.NewRepository(pool),
		profileRepo,
		postingRepo,
		bookingRepo,
		ledger,
		application.Options{
			WeeklyHourCap: cfg.Booking.WeeklyHourCap,
			TxAttempts:    cfg.Booking.TxAttempts,
			Logger:        logger.With(logging.FieldComponent, "application"),
		},
	)

	return &services{
		accounts:     accounts,
		rates:        rates,
		postings:     postings,
		postingRepo:  postingRepo,
		feed:         posting.NewFeed(postingRepo, logger.With(logging.FieldComponent, "feed")),
		bookings:     booking.NewService(bookingRepo),
		ledger:       ledger,
		applications: workflow,
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
