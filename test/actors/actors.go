package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"laborbook/application"
	"laborbook/fault"
	"laborbook/posting"
	"laborbook/wage"
)

// Board is the shared list of job ids actors pick from.
type Board struct {
	mu  sync.RWMutex
	ids []string
}

func (b *Board) Add(id string) {
	b.mu.Lock()
	b.ids = append(b.ids, id)
	b.mu.Unlock()
}

// Pick returns a random job id, or "" when the board is empty.
func (b *Board) Pick() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.ids) == 0 {
		return ""
	}
	return b.ids[rand.IntN(len(b.ids))]
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids)
}

// Tally counts apply outcomes across actors.
type Tally struct {
	Booked      atomic.Int64
	Duplicate   atomic.Int64
	Full        atomic.Int64
	Capped      atomic.Int64
	Unavailable atomic.Int64
	System      atomic.Int64
}

func (t *Tally) String() string {
	return fmt.Sprintf("booked=%d duplicate=%d full=%d capped=%d unavailable=%d system=%d",
		t.Booked.Load(), t.Duplicate.Load(), t.Full.Load(), t.Capped.Load(), t.Unavailable.Load(), t.System.Load())
}

// Record classifies one apply outcome. Unexpected errors are returned.
func (t *Tally) Record(err error) error {
	var safety *application.SafetyLimitError
	switch {
	case err == nil:
		t.Booked.Add(1)
	case errors.Is(err, application.ErrAlreadyApplied):
		t.Duplicate.Add(1)
	case errors.Is(err, application.ErrCapacityExceeded):
		t.Full.Add(1)
	case errors.As(err, &safety):
		t.Capped.Add(1)
	case errors.Is(err, application.ErrPostingUnavailable):
		t.Unavailable.Add(1)
	case errors.Is(err, fault.ErrSystem), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// connection kills and shutdown surface here
		t.System.Add(1)
	default:
		return err
	}
	return nil
}

type Applier interface {
	Apply(ctx context.Context, jobID, laborID string) (application.Result, error)
	BookDirect(ctx context.Context, jobID, laborID string) (application.Result, error)
}

type Poster interface {
	Create(ctx context.Context, params posting.CreateParams) (posting.Listing, error)
	ToggleListing(ctx context.Context, id, ownerID string) (posting.Listing, error)
}

type FeedReader interface {
	OpenJobs(ctx context.Context) ([]posting.Listing, error)
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

func jitter(base, spread int) time.Duration {
	return time.Duration(base+rand.IntN(spread)) * time.Millisecond
}

// Applicant keeps applying laborID to random jobs. One attempt in ten goes
// through the legacy direct booking path.
func Applicant(ctx context.Context, wf Applier, board *Board, laborID string, tally *Tally, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		jobID := board.Pick()
		if jobID == "" {
			time.Sleep(jitter(5, 10))
			continue
		}
		var err error
		if rand.IntN(10) == 0 {
			_, err = wf.BookDirect(ctx, jobID, laborID)
		} else {
			_, err = wf.Apply(ctx, jobID, laborID)
		}
		if err := tally.Record(err); err != nil {
			return fmt.Errorf("applicant %s on %s: %w", laborID, jobID, err)
		}
		time.Sleep(jitter(2, 8))
	}
	return nil
}

// Supervisor posts small jobs spread over the next two weeks.
func Supervisor(ctx context.Context, postings Poster, board *Board, supervisorID string, loc *time.Location, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		date := time.Now().In(loc).AddDate(0, 0, 1+rand.IntN(14))
		l, err := postings.Create(ctx, posting.CreateParams{
			SupervisorID:     supervisorID,
			Title:            "Stress shift",
			Location:         "Site",
			WageType:         wage.Daily,
			WageAmount:       1000,
			RequiredDate:     date,
			DurationHours:    float64(4 + rand.IntN(9)),
			LaborersRequired: 1 + rand.IntN(4),
		})
		if err != nil {
			if stopped(ctx, stop) || fault.Kind(err) == "system" {
				continue
			}
			return fmt.Errorf("supervisor %s create: %w", supervisorID, err)
		}
		board.Add(l.ID)
		time.Sleep(jitter(40, 60))
	}
	return nil
}

// Toggler flips the listing flag of random jobs owned by supervisorID.
func Toggler(ctx context.Context, postings Poster, board *Board, supervisorID string, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		if jobID := board.Pick(); jobID != "" {
			_, err := postings.ToggleListing(ctx, jobID, supervisorID)
			switch {
			case err == nil,
				errors.Is(err, posting.ErrNotOwner),
				errors.Is(err, posting.ErrInvalidState),
				fault.Kind(err) == "system",
				stopped(ctx, stop):
			default:
				return fmt.Errorf("toggle %s: %w", jobID, err)
			}
		}
		time.Sleep(jitter(50, 100))
	}
	return nil
}

// FeedWatcher reads the open feed and fails if it ever returns a posting that
// is not discoverable.
func FeedWatcher(ctx context.Context, feed FeedReader, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		items, err := feed.OpenJobs(ctx)
		if err == nil {
			now := time.Now()
			for _, l := range items {
				if !l.Discoverable(now) {
					return fmt.Errorf("feed returned undiscoverable posting %s (status=%s listed=%t)", l.ID, l.Status, l.IsListed)
				}
			}
		}
		time.Sleep(jitter(80, 80))
	}
	return nil
}
