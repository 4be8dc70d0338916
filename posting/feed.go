package posting

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Expirer runs the open -> expired sweep.
type Expirer interface {
	ExpireStale(ctx context.Context, now time.Time) ([]string, error)
}

// Feed computes the discovery feed. Every call sweeps stale postings first and
// reads fresh rows; nothing is cached between calls.
type Feed struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
	group  singleflight.Group
}

func NewFeed(repo Repository, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Feed{repo: repo, logger: logger, now: time.Now}
}

func (f *Feed) WithClock(now func() time.Time) *Feed {
	f.now = now
	return f
}

// OpenJobs returns open, listed, unexpired postings newest first. Concurrent
// callers share one sweep. A failed sweep is logged and the read still runs:
// the expiry predicate keeps stale rows out either way.
func (f *Feed) OpenJobs(ctx context.Context) ([]Listing, error) {
	now := f.now()
	if _, err := f.Sweep(ctx); err != nil {
		f.logger.Warn("expiration sweep failed before feed read", "error", err)
	}

	items, err := f.repo.ListOpen(ctx, now)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, l := range items {
		if l.Discoverable(now) {
			out = append(out, l)
		}
	}
	SortNewestFirst(out)
	return out, nil
}

// Sweep expires stale postings, collapsing concurrent calls into one statement.
func (f *Feed) Sweep(ctx context.Context) ([]string, error) {
	v, err, _ := f.group.Do("expire", func() (any, error) {
		return f.repo.ExpireStale(ctx, f.now())
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Sweeper runs the expiration sweep on a fixed interval until its context ends.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewSweeper(expirer Expirer, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{expirer: expirer, interval: interval, logger: logger, now: time.Now}
}

// RunOnce performs a single sweep and reports its outcome.
func (s *Sweeper) RunOnce(ctx context.Context) ([]string, error) {
	ids, err := s.expirer.ExpireStale(ctx, s.now())
	if err != nil {
		s.logger.Error("expiration sweep failed", "error", err)
		return nil, err
	}
	if len(ids) > 0 {
		s.logger.Info("expired stale postings", "count", len(ids))
	}
	return ids, nil
}

// Run blocks until ctx is done. Sweep failures are logged and the next tick
// retries.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiration sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiration sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}
