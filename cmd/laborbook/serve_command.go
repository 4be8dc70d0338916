package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"laborbook/api"
	"laborbook/logging"
	"laborbook/posting"
	"laborbook/ratelimit"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the expiration sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireJWTSecret(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withPool(runCtx, func(pool *pgxpool.Pool) error {
				if migrate {
					if err := applyMigrations(runCtx, cmd, pool); err != nil {
						return err
					}
				}

				svc := buildServices(cfg, pool, logger)

				var limiter ratelimit.Limiter = ratelimit.Nop{}
				if cfg.Redis.Addr != "" {
					client := redis.NewClient(&redis.Options{
						Addr:     cfg.Redis.Addr,
						Password: cfg.Redis.Password,
						DB:       cfg.Redis.DB,
					})
					defer client.Close()
					limiter = ratelimit.NewRedisLimiter(client, cfg.Redis.ApplyLimit, cfg.Redis.ApplyWindow.Duration)
					logger.Info("apply rate limiting enabled", "redis", cfg.Redis.Addr, "limit", cfg.Redis.ApplyLimit)
				}

				server := api.New(api.Deps{
					Accounts:       svc.accounts,
					Postings:       svc.postings,
					Feed:           svc.feed,
					Applications:   svc.applications,
					Bookings:       svc.bookings,
					Hours:          svc.ledger,
					Rates:          svc.rates,
					Limiter:        limiter,
					Logger:         logger.With(logging.FieldComponent, "http"),
					RequestTimeout: cfg.HTTP.RequestTimeout.Duration,
					WeeklyHourCap:  cfg.Booking.WeeklyHourCap,
				})
				httpServer := &http.Server{
					Addr:              cfg.HTTP.Addr,
					Handler:           server.Handler(),
					ReadHeaderTimeout: 5 * time.Second,
				}
				sweeper := posting.NewSweeper(svc.postingRepo, cfg.Booking.SweepInterval.Duration, logger.With(logging.FieldComponent, "sweeper"))

				group, groupCtx := errgroup.WithContext(runCtx)
				group.Go(func() error {
					if err := sweeper.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil
				})
				group.Go(func() error {
					logger.Info("http server listening", "addr", cfg.HTTP.Addr)
					if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("http server: %w", err)
					}
					return nil
				})
				group.Go(func() error {
					<-groupCtx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()
					return httpServer.Shutdown(shutdownCtx)
				})

				err := group.Wait()
				logger.Info("server stopped")
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply pending migrations before serving")
	return cmd
}
