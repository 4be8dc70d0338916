package test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"laborbook/account"
	"laborbook/application"
	"laborbook/posting"
	"laborbook/test/infra"
	"laborbook/test/oracles"
	"laborbook/wage"
	"laborbook/week"
)

// futureMonday is the Monday two weeks out, far enough that created postings
// stay valid for the whole test.
func futureMonday(h *infra.Harness) time.Time {
	start, _ := week.Bounds(time.Now().In(h.Location()).AddDate(0, 0, 14))
	return start
}

func requireOracles(t *testing.T, h *infra.Harness) {
	t.Helper()
	name, row, err := oracles.Run(context.Background(), h.Pool())
	if err != nil {
		t.Fatalf("oracles: %v", err)
	}
	if name != "" {
		t.Fatalf("oracle %s failed, first row: %s", name, row)
	}
}

// applyConcurrently fires one Apply per labor id at the same time and returns
// the per-call errors in input order.
func applyConcurrently(h *infra.Harness, jobIDs, laborIDs []string) []error {
	errs := make([]error, len(laborIDs))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range laborIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = h.Applications.Apply(context.Background(), jobIDs[i], laborIDs[i])
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

func TestIntegration(t *testing.T) {
	h := infra.Start(t)
	ctx := context.Background()

	reset := func(t *testing.T) {
		t.Helper()
		if err := h.Reset(ctx); err != nil {
			t.Fatalf("reset: %v", err)
		}
	}

	t.Run("last slot goes to exactly one worker", func(t *testing.T) {
		reset(t)
		sup := h.Profile(t, account.RoleSupervisor)
		job := h.Posting(t, sup.ID, infra.PostingSeed{Required: 1})

		const workers = 12
		jobs := make([]string, workers)
		labor := make([]string, workers)
		for i := range labor {
			jobs[i] = job.ID
			labor[i] = h.Profile(t, account.RoleLabor).ID
		}

		var ok, full int
		for _, err := range applyConcurrently(h, jobs, labor) {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, application.ErrCapacityExceeded):
				full++
			default:
				t.Fatalf("unexpected apply error: %v", err)
			}
		}
		if ok != 1 || full != workers-1 {
			t.Fatalf("expected 1 success and %d rejections, got %d and %d", workers-1, ok, full)
		}

		got, err := h.Postings.Get(ctx, job.ID)
		if err != nil {
			t.Fatalf("get posting: %v", err)
		}
		if got.Status != posting.StatusFilled || got.LaborersApplied != 1 {
			t.Fatalf("expected filled 1/1, got %s %d/%d", got.Status, got.LaborersApplied, got.LaborersRequired)
		}
		requireOracles(t, h)
	})

	t.Run("weekly cap admits one of two concurrent bookings", func(t *testing.T) {
		reset(t)
		sup := h.Profile(t, account.RoleSupervisor)
		worker := h.Profile(t, account.RoleLabor)
		monday := futureMonday(h)

		for day := 0; day < 5; day++ {
			job := h.Posting(t, sup.ID, infra.PostingSeed{Date: monday.AddDate(0, 0, day), Hours: 9})
			if _, err := h.Applications.Apply(ctx, job.ID, worker.ID); err != nil {
				t.Fatalf("seed booking %d: %v", day, err)
			}
		}
		hours, err := h.Ledger.WeeklyHours(ctx, worker.ID, monday)
		if err != nil {
			t.Fatalf("weekly hours: %v", err)
		}
		if hours != 45 {
			t.Fatalf("expected 45h seeded, got %g", hours)
		}

		a := h.Posting(t, sup.ID, infra.PostingSeed{Date: monday.AddDate(0, 0, 5), Hours: 4})
		b := h.Posting(t, sup.ID, infra.PostingSeed{Date: monday.AddDate(0, 0, 6), Hours: 4})
		errs := applyConcurrently(h, []string{a.ID, b.ID}, []string{worker.ID, worker.ID})

		var ok int
		var safety *application.SafetyLimitError
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.As(err, &safety):
			default:
				t.Fatalf("unexpected apply error: %v", err)
			}
		}
		if ok != 1 || safety == nil {
			t.Fatalf("expected one success and one safety refusal, got %v", errs)
		}
		if safety.Current != 49 || safety.Requested != 4 || safety.Projected != 53 || safety.Cap != 50 {
			t.Fatalf("unexpected safety detail: %+v", safety)
		}

		hours, err = h.Ledger.WeeklyHours(ctx, worker.ID, monday.AddDate(0, 0, 6))
		if err != nil {
			t.Fatalf("weekly hours: %v", err)
		}
		if hours != 49 {
			t.Fatalf("expected 49h after the race, got %g", hours)
		}
		requireOracles(t, h)
	})

	t.Run("duplicate applications collapse to one", func(t *testing.T) {
		reset(t)
		sup := h.Profile(t, account.RoleSupervisor)
		worker := h.Profile(t, account.RoleLabor)
		job := h.Posting(t, sup.ID, infra.PostingSeed{Required: 5})

		errs := applyConcurrently(h,
			[]string{job.ID, job.ID, job.ID, job.ID},
			[]string{worker.ID, worker.ID, worker.ID, worker.ID})
		var ok, dup int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, application.ErrAlreadyApplied):
				dup++
			default:
				t.Fatalf("unexpected apply error: %v", err)
			}
		}
		if ok != 1 || dup != 3 {
			t.Fatalf("expected 1 success and 3 duplicates, got %d and %d", ok, dup)
		}

		apps, err := h.Applications.ForJob(ctx, job.ID, sup.ID)
		if err != nil {
			t.Fatalf("for job: %v", err)
		}
		if len(apps) != 1 || apps[0].Status != application.StatusConfirmed {
			t.Fatalf("expected one confirmed application, got %+v", apps)
		}
		requireOracles(t, h)
	})

	t.Run("sunday and monday fall in different weeks", func(t *testing.T) {
		reset(t)
		sup := h.Profile(t, account.RoleSupervisor)
		worker := h.Profile(t, account.RoleLabor)
		monday := futureMonday(h)
		sunday := monday.AddDate(0, 0, -1)

		job := h.Posting(t, sup.ID, infra.PostingSeed{Date: sunday, Hours: 8})
		if _, err := h.Applications.Apply(ctx, job.ID, worker.ID); err != nil {
			t.Fatalf("apply: %v", err)
		}

		before, err := h.Ledger.WeeklyHours(ctx, worker.ID, sunday.Add(23*time.Hour))
		if err != nil {
			t.Fatalf("weekly hours sunday: %v", err)
		}
		after, err := h.Ledger.WeeklyHours(ctx, worker.ID, monday)
		if err != nil {
			t.Fatalf("weekly hours monday: %v", err)
		}
		if before != 8 || after != 0 {
			t.Fatalf("expected 8h on sunday's week and 0h on monday's, got %g and %g", before, after)
		}

		bookings, err := h.Bookings.ForLabor(ctx, worker.ID)
		if err != nil {
			t.Fatalf("bookings: %v", err)
		}
		if len(bookings) != 1 || !bookings[0].JobDate.Equal(week.Date(sunday, h.Location())) {
			t.Fatalf("expected one booking dated %s, got %+v", sunday.Format(week.DateLayout), bookings)
		}
	})

	t.Run("stale postings leave the feed", func(t *testing.T) {
		reset(t)
		sup := h.Profile(t, account.RoleSupervisor)
		fresh := h.Posting(t, sup.ID, infra.PostingSeed{})
		stale := h.Posting(t, sup.ID, infra.PostingSeed{})
		hidden := h.Posting(t, sup.ID, infra.PostingSeed{})

		if _, err := h.Pool().Exec(ctx, `UPDATE job_listings SET expires_at = now() - interval '1 minute' WHERE id = $1`, stale.ID); err != nil {
			t.Fatalf("age posting: %v", err)
		}
		if _, err := h.Postings.ToggleListing(ctx, hidden.ID, sup.ID); err != nil {
			t.Fatalf("toggle listing: %v", err)
		}

		feed, err := h.Feed.OpenJobs(ctx)
		if err != nil {
			t.Fatalf("open jobs: %v", err)
		}
		if len(feed) != 1 || feed[0].ID != fresh.ID {
			t.Fatalf("expected only %s in the feed, got %+v", fresh.ID, feed)
		}

		got, err := h.Postings.Get(ctx, stale.ID)
		if err != nil {
			t.Fatalf("get stale posting: %v", err)
		}
		if got.Status != posting.StatusExpired {
			t.Fatalf("expected stale posting to be expired, got %s", got.Status)
		}

		worker := h.Profile(t, account.RoleLabor)
		if _, err := h.Applications.Apply(ctx, stale.ID, worker.ID); !errors.Is(err, application.ErrPostingUnavailable) {
			t.Fatalf("expected expired posting to refuse applications, got %v", err)
		}
		requireOracles(t, h)
	})

	t.Run("wage floor follows system rates", func(t *testing.T) {
		reset(t)
		rates, err := h.Rates.Set(ctx, 80)
		if err != nil {
			t.Fatalf("set rates: %v", err)
		}
		if rates.MinWagePerHour != 80 {
			t.Fatalf("expected floor 80, got %g", rates.MinWagePerHour)
		}
		got, err := h.Rates.Get(ctx)
		if err != nil || got.MinWagePerHour != 80 {
			t.Fatalf("expected stored floor 80, got %+v (%v)", got, err)
		}

		sup := h.Profile(t, account.RoleSupervisor)
		_, err = h.Postings.Create(ctx, posting.CreateParams{
			SupervisorID:     sup.ID,
			Title:            "Underpaid",
			Location:         "Yard 7",
			WageType:         wage.Hourly,
			WageAmount:       75,
			RequiredDate:     futureMonday(h),
			DurationHours:    8,
			LaborersRequired: 1,
		})
		var below *wage.BelowMinimumError
		if !errors.As(err, &below) || below.Minimum != 80 {
			t.Fatalf("expected below minimum error at 80, got %v", err)
		}
	})

	t.Run("phone numbers are unique", func(t *testing.T) {
		reset(t)
		if _, err := h.Accounts.Register(ctx, "+15550001111", account.RoleLabor); err != nil {
			t.Fatalf("register: %v", err)
		}
		_, err := h.Accounts.Register(ctx, "+15550001111", account.RoleSupervisor)
		if !errors.Is(err, account.ErrDuplicatePhone) {
			t.Fatalf("expected duplicate phone error, got %v", err)
		}
	})

	t.Run("supervisors cannot take jobs", func(t *testing.T) {
		reset(t)
		sup := h.Profile(t, account.RoleSupervisor)
		other := h.Profile(t, account.RoleSupervisor)
		job := h.Posting(t, sup.ID, infra.PostingSeed{})

		if _, err := h.Applications.Apply(ctx, job.ID, other.ID); !errors.Is(err, application.ErrNotLabor) {
			t.Fatalf("expected not labor error, got %v", err)
		}
		requireOracles(t, h)
	})

	t.Run("accepting a pending application books the worker", func(t *testing.T) {
		reset(t)
		sup := h.Profile(t, account.RoleSupervisor)
		worker := h.Profile(t, account.RoleLabor)
		job := h.Posting(t, sup.ID, infra.PostingSeed{Required: 2})

		const appID = "5f0c1d2e-3b4a-4c5d-8e6f-7a8b9c0d1e2f"
		if _, err := h.Pool().Exec(ctx,
			`INSERT INTO job_applications (id, job_id, labor_id, supervisor_id, status) VALUES ($1, $2, $3, $4, 'pending')`,
			appID, job.ID, worker.ID, sup.ID); err != nil {
			t.Fatalf("seed pending application: %v", err)
		}

		res, err := h.Applications.Accept(ctx, appID, sup.ID)
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if res.Application == nil || res.Application.Status != application.StatusConfirmed {
			t.Fatalf("expected confirmed application, got %+v", res.Application)
		}
		if res.Booking.ApplicationID == nil || *res.Booking.ApplicationID != appID {
			t.Fatalf("expected booking tied to %s, got %+v", appID, res.Booking)
		}
		if res.Listing.LaborersApplied != 1 {
			t.Fatalf("expected counter at 1, got %d", res.Listing.LaborersApplied)
		}

		again, err := h.Applications.Accept(ctx, appID, sup.ID)
		if err != nil {
			t.Fatalf("second accept: %v", err)
		}
		if again.Booking.ID != "" {
			t.Fatalf("second accept must not book again, got %+v", again.Booking)
		}
		if _, err := h.Applications.Reject(ctx, appID, sup.ID); !errors.Is(err, application.ErrInvalidTransition) {
			t.Fatalf("expected invalid transition rejecting a confirmed application, got %v", err)
		}

		got, err := h.Postings.Get(ctx, job.ID)
		if err != nil {
			t.Fatalf("get posting: %v", err)
		}
		if got.LaborersApplied != 1 {
			t.Fatalf("expected one slot taken after repeated accepts, got %d", got.LaborersApplied)
		}
		requireOracles(t, h)
	})
}
