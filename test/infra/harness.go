package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"laborbook/account"
	"laborbook/application"
	"laborbook/booking"
	"laborbook/posting"
	"laborbook/wage"
)

// Harness owns the database for an integration run and the services wired
// on top of it.
type Harness struct {
	pool     *pgxpool.Pool
	dsn      string
	loc      *time.Location
	phoneSeq atomic.Int64

	Accounts     *account.Service
	Rates        *wage.RatesStore
	Postings     *posting.Service
	PostingRepo  *posting.PGRepository
	Feed         *posting.Feed
	Bookings     *booking.Service
	Ledger       *booking.Ledger
	Applications *application.Workflow
}

// Start provisions a migrated database or skips the test when none can be
// reached. Order: LABORBOOK_TEST_DSN, a Docker container, a local Postgres.
func Start(t testing.TB) *Harness {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	var (
		container *PGContainer
		dsn       string
		isolate   bool
		err       error
	)
	switch {
	case lookupDSN() != "":
		container, dsn, err = StartPostgres16(ctx, lookupDSN())
		isolate = true
	case dockerAvailable(ctx):
		container, dsn, err = StartPostgres16(ctx, "")
	default:
		dsn, err = InitLocalDatabase(ctx)
		if err != nil {
			t.Skipf("no database available (set %s or start Docker): %v", EnvTestDSN, err)
		}
	}
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	pool, teardown, err := OpenMigrated(ctx, dsn, isolate)
	if err != nil {
		t.Fatalf("open migrated database: %v", err)
	}
	t.Cleanup(func() {
		pool.Close()
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	})

	h := &Harness{pool: pool, dsn: dsn, loc: time.UTC}
	h.wire()
	return h
}

func (h *Harness) wire() {
	profiles := account.NewRepository(h.pool)
	h.Accounts = account.NewService(profiles, "integration-secret", time.Hour)
	h.Rates = wage.NewRatesStore(h.pool)

	h.PostingRepo = posting.NewRepository(h.pool, h.loc)
	h.Postings = posting.NewService(h.pool, h.PostingRepo, h.Rates, h.Accounts, posting.Options{
		TxAttempts: 5,
		Location:   h.loc,
	})
	h.Feed = posting.NewFeed(h.PostingRepo, nil)

	bookingRepo := booking.NewRepository(h.pool, h.loc)
	h.Ledger = booking.NewLedger(bookingRepo, h.loc)
	h.Bookings = booking.NewService(bookingRepo)
	h.Applications = application.NewWorkflow(h.pool,
		application.NewRepository(h.pool),
		profiles,
		h.PostingRepo,
		bookingRepo,
		h.Ledger,
		application.Options{TxAttempts: 5},
	)
}

// Pool exposes the configured pgx pool.
func (h *Harness) Pool() *pgxpool.Pool {
	return h.pool
}

// DSN returns the connection string for direct connections (e.g., chaos).
func (h *Harness) DSN() string {
	return h.dsn
}

// Location is the zone the harness services compute weeks in.
func (h *Harness) Location() *time.Location {
	return h.loc
}

// Reset truncates mutable tables and restores the default wage floor.
func (h *Harness) Reset(ctx context.Context) error {
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("reset begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE bookings, job_applications, job_listings, profiles CASCADE"); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	if _, err := tx.Exec(ctx, "UPDATE system_rates SET min_wage_per_hour = 60, last_updated = now() WHERE id = 1"); err != nil {
		return fmt.Errorf("reset rates: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("reset commit: %w", err)
	}
	return nil
}

// Profile registers a profile with a unique phone number.
func (h *Harness) Profile(t testing.TB, role account.Role) account.Profile {
	t.Helper()
	phone := fmt.Sprintf("+1555%07d", h.phoneSeq.Add(1))
	p, err := h.Accounts.Register(context.Background(), phone, role)
	if err != nil {
		t.Fatalf("register %s: %v", role, err)
	}
	return p
}

// PostingSeed describes a job seeded by Posting. Zero values get defaults.
type PostingSeed struct {
	Date     time.Time
	Hours    float64
	Required int
}

// Posting creates an hourly posting for supervisorID paying above the default
// wage floor.
func (h *Harness) Posting(t testing.TB, supervisorID string, seed PostingSeed) posting.Listing {
	t.Helper()
	if seed.Date.IsZero() {
		seed.Date = time.Now().In(h.loc).AddDate(0, 0, 3)
	}
	if seed.Hours == 0 {
		seed.Hours = 8
	}
	if seed.Required == 0 {
		seed.Required = 1
	}
	l, err := h.Postings.Create(context.Background(), posting.CreateParams{
		SupervisorID:     supervisorID,
		Title:            "General labor",
		Location:         "Yard 7",
		WageType:         wage.Hourly,
		WageAmount:       75,
		RequiredDate:     seed.Date,
		DurationHours:    seed.Hours,
		LaborersRequired: seed.Required,
	})
	if err != nil {
		t.Fatalf("create posting: %v", err)
	}
	return l
}

func lookupDSN() string {
	return strings.TrimSpace(os.Getenv(EnvTestDSN))
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}
