package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"laborbook/account"
	"laborbook/booking"
	"laborbook/db"
	"laborbook/fault"
	"laborbook/posting"
)

// WorkerLocker takes the worker row lock that serialises one worker's bookings.
type WorkerLocker interface {
	LockForUpdate(ctx context.Context, tx pgx.Tx, id string) (account.Profile, error)
}

// PostingStore is the capacity side of a posting.
type PostingStore interface {
	Get(ctx context.Context, id string) (posting.Listing, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (posting.Listing, error)
	IncrementApplied(ctx context.Context, tx pgx.Tx, id string) (posting.Listing, error)
}

type BookingWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, b booking.Booking) (booking.Booking, error)
}

type HoursLedger interface {
	WeeklyHoursTx(ctx context.Context, q db.Querier, laborID string, target time.Time) (float64, error)
}

type Options struct {
	WeeklyHourCap float64
	TxAttempts    int
	Logger        *slog.Logger
}

// Workflow runs the application and booking commits. Every commit locks the
// worker row before the posting row, so Apply, BookDirect and Accept cannot
// deadlock each other.
type Workflow struct {
	pool        db.TxBeginner
	apps        Repository
	workers     WorkerLocker
	postings    PostingStore
	bookings    BookingWriter
	ledger      HoursLedger
	hourCap     float64
	txAttempts  int
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
}

func NewWorkflow(pool db.TxBeginner, apps Repository, workers WorkerLocker, postings PostingStore, bookings BookingWriter, ledger HoursLedger, opts Options) *Workflow {
	if opts.WeeklyHourCap <= 0 {
		opts.WeeklyHourCap = booking.WeeklyHourCap
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Workflow{
		pool:        pool,
		apps:        apps,
		workers:     workers,
		postings:    postings,
		bookings:    bookings,
		ledger:      ledger,
		hourCap:     opts.WeeklyHourCap,
		txAttempts:  opts.TxAttempts,
		logger:      opts.Logger,
		idGenerator: uuid.NewString,
		now:         time.Now,
	}
}

func (w *Workflow) WithIDGenerator(gen func() string) *Workflow {
	w.idGenerator = gen
	return w
}

func (w *Workflow) WithClock(now func() time.Time) *Workflow {
	w.now = now
	return w
}

// Apply books laborID onto jobID. The duplicate check, weekly cap check,
// capacity check and all three writes run in one transaction; either the
// application, its booking and the counter increment all commit or none do.
func (w *Workflow) Apply(ctx context.Context, jobID, laborID string) (Result, error) {
	if jobID == "" || laborID == "" {
		return Result{}, fault.Validation("application: apply", "missing job or labor id")
	}

	var result Result
	err := db.InTx(ctx, w.pool, w.txAttempts, func(tx pgx.Tx) error {
		job, err := w.lock(ctx, tx, jobID, laborID)
		if err != nil {
			return err
		}

		exists, err := w.apps.Exists(ctx, tx, jobID, laborID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyApplied
		}

		hours, err := w.admit(ctx, tx, job, laborID)
		if err != nil {
			return err
		}

		app, err := w.apps.Insert(ctx, tx, Application{
			ID:           w.idGenerator(),
			JobID:        job.ID,
			LaborID:      laborID,
			SupervisorID: job.SupervisorID,
			Status:       StatusConfirmed,
		})
		if err != nil {
			return err
		}

		result, err = w.book(ctx, tx, job, laborID, &app.ID, hours)
		if err != nil {
			return err
		}
		result.Application = &app
		return nil
	})
	if err != nil {
		return Result{}, w.fail("apply", jobID, laborID, err)
	}

	w.logger.Info("application confirmed",
		"application_id", result.Application.ID,
		"job_id", jobID,
		"labor_id", laborID,
		"week_hours", result.WeekHours,
	)
	return result, nil
}

// BookDirect books laborID onto jobID without an application record.
//
// Deprecated: use Apply, which also records the application and rejects
// duplicates.
func (w *Workflow) BookDirect(ctx context.Context, jobID, laborID string) (Result, error) {
	if jobID == "" || laborID == "" {
		return Result{}, fault.Validation("application: book direct", "missing job or labor id")
	}

	var result Result
	err := db.InTx(ctx, w.pool, w.txAttempts, func(tx pgx.Tx) error {
		job, err := w.lock(ctx, tx, jobID, laborID)
		if err != nil {
			return err
		}
		hours, err := w.admit(ctx, tx, job, laborID)
		if err != nil {
			return err
		}
		result, err = w.book(ctx, tx, job, laborID, nil, hours)
		return err
	})
	if err != nil {
		return Result{}, w.fail("book direct", jobID, laborID, err)
	}

	w.logger.Warn("direct booking used", "job_id", jobID, "labor_id", laborID, "booking_id", result.Booking.ID)
	return result, nil
}

// Accept confirms a pending application and books the worker. Accepting an
// already confirmed application changes nothing.
func (w *Workflow) Accept(ctx context.Context, applicationID, supervisorID string) (Result, error) {
	if applicationID == "" || supervisorID == "" {
		return Result{}, fault.Validation("application: accept", "missing application or supervisor id")
	}

	var result Result
	err := db.InTx(ctx, w.pool, w.txAttempts, func(tx pgx.Tx) error {
		app, err := w.apps.Get(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if app.SupervisorID != supervisorID {
			return ErrNotOwner
		}
		if app.Status == StatusConfirmed {
			result = Result{Application: &app, Message: "application already confirmed"}
			return nil
		}
		if !canTransition(app.Status, StatusConfirmed) {
			return ErrInvalidTransition
		}

		job, err := w.lock(ctx, tx, app.JobID, app.LaborID)
		if err != nil {
			return err
		}
		// Re-read under lock; a concurrent accept or reject may have won.
		app, err = w.apps.GetForUpdate(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if app.Status == StatusConfirmed {
			result = Result{Application: &app, Message: "application already confirmed"}
			return nil
		}
		if !canTransition(app.Status, StatusConfirmed) {
			return ErrInvalidTransition
		}

		hours, err := w.admit(ctx, tx, job, app.LaborID)
		if err != nil {
			return err
		}
		result, err = w.book(ctx, tx, job, app.LaborID, &app.ID, hours)
		if err != nil {
			return err
		}
		app, err = w.apps.UpdateStatus(ctx, tx, app.ID, StatusConfirmed)
		if err != nil {
			return err
		}
		result.Application = &app
		return nil
	})
	if err != nil {
		return Result{}, w.fail("accept", applicationID, supervisorID, err)
	}
	return result, nil
}

// Reject declines a pending application. Rejecting twice changes nothing; a
// confirmed application cannot be rejected.
func (w *Workflow) Reject(ctx context.Context, applicationID, supervisorID string) (Application, error) {
	if applicationID == "" || supervisorID == "" {
		return Application{}, fault.Validation("application: reject", "missing application or supervisor id")
	}

	var out Application
	err := db.InTx(ctx, w.pool, w.txAttempts, func(tx pgx.Tx) error {
		app, err := w.apps.GetForUpdate(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if app.SupervisorID != supervisorID {
			return ErrNotOwner
		}
		if app.Status == StatusRejected {
			out = app
			return nil
		}
		if !canTransition(app.Status, StatusRejected) {
			return ErrInvalidTransition
		}
		out, err = w.apps.UpdateStatus(ctx, tx, app.ID, StatusRejected)
		return err
	})
	if err != nil {
		return Application{}, w.fail("reject", applicationID, supervisorID, err)
	}
	return out, nil
}

// ForLabor lists a worker's applications, newest first.
func (w *Workflow) ForLabor(ctx context.Context, laborID string) ([]Application, error) {
	if laborID == "" {
		return nil, fault.Validation("application: for labor", "missing labor id")
	}
	items, err := w.apps.ForLabor(ctx, laborID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(items)
	return items, nil
}

// ForJob lists applications on a posting for its owner, newest first.
func (w *Workflow) ForJob(ctx context.Context, jobID, supervisorID string) ([]Application, error) {
	if jobID == "" || supervisorID == "" {
		return nil, fault.Validation("application: for job", "missing job or supervisor id")
	}
	job, err := w.postings.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.SupervisorID != supervisorID {
		return nil, ErrNotOwner
	}
	items, err := w.apps.ForJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(items)
	return items, nil
}

func (w *Workflow) lock(ctx context.Context, tx pgx.Tx, jobID, laborID string) (posting.Listing, error) {
	worker, err := w.workers.LockForUpdate(ctx, tx, laborID)
	if err != nil {
		return posting.Listing{}, err
	}
	if worker.Role != account.RoleLabor {
		return posting.Listing{}, ErrNotLabor
	}
	return w.postings.GetForUpdate(ctx, tx, jobID)
}

// admit runs the availability, weekly cap and capacity checks against the
// locked posting and returns the worker's hours in the job's week.
func (w *Workflow) admit(ctx context.Context, tx pgx.Tx, job posting.Listing, laborID string) (float64, error) {
	switch {
	case job.Status == posting.StatusExpired, job.Status == posting.StatusDelisted:
		return 0, ErrPostingUnavailable
	case job.Status == posting.StatusOpen && (!job.IsListed || w.now().After(job.ExpiresAt)):
		return 0, ErrPostingUnavailable
	}

	current, err := w.ledger.WeeklyHoursTx(ctx, tx, laborID, job.RequiredDate)
	if err != nil {
		return 0, err
	}
	projected := current + job.DurationHours
	if projected > w.hourCap {
		return 0, &SafetyLimitError{
			Current:   current,
			Requested: job.DurationHours,
			Projected: projected,
			Cap:       w.hourCap,
		}
	}

	if job.Status != posting.StatusOpen || job.LaborersApplied >= job.LaborersRequired {
		return 0, ErrCapacityExceeded
	}
	return current, nil
}

func (w *Workflow) book(ctx context.Context, tx pgx.Tx, job posting.Listing, laborID string, applicationID *string, current float64) (Result, error) {
	snapshot := booking.Snapshot(job, laborID, applicationID)
	snapshot.ID = w.idGenerator()
	created, err := w.bookings.Insert(ctx, tx, snapshot)
	if err != nil {
		return Result{}, err
	}

	listing, err := w.postings.IncrementApplied(ctx, tx, job.ID)
	if err != nil {
		return Result{}, err
	}

	total := current + job.DurationHours
	return Result{
		Booking:   created,
		Listing:   listing,
		WeekHours: total,
		Message:   fmt.Sprintf("booked %q: %gh this week", job.Title, total),
	}, nil
}

// fail passes domain errors through and turns everything else into a logged
// system failure the caller may retry.
func (w *Workflow) fail(op, subject, actor string, err error) error {
	if fault.Kind(err) != "system" {
		return err
	}
	w.logger.Error("booking transaction failed", "op", op, "subject", subject, "actor", actor, "error", err)
	if errors.Is(err, fault.ErrSystem) {
		return err
	}
	return fault.Wrap(fault.ErrSystem, "application: "+op, "", err)
}

func sortNewestFirst(items []Application) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].AppliedAt.UnixNano() > items[j].AppliedAt.UnixNano()
	})
}
