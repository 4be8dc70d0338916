package application

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"laborbook/account"
	"laborbook/booking"
	"laborbook/db"
	"laborbook/db/dbtest"
	"laborbook/posting"
)

// serialPool hands out one transaction at a time, standing in for the row
// locks Postgres would take.
type serialPool struct {
	inner dbtest.Pool
	gate  chan struct{}
}

func newSerialPool() *serialPool {
	return &serialPool{gate: make(chan struct{}, 1)}
}

func (p *serialPool) Begin(ctx context.Context) (pgx.Tx, error) {
	p.gate <- struct{}{}
	tx, err := p.inner.Begin(ctx)
	if err != nil {
		<-p.gate
		return nil, err
	}
	return &serialTx{Tx: tx.(*dbtest.Tx), release: func() { <-p.gate }}, nil
}

func (p *serialPool) count() int {
	return len(p.inner.Txs)
}

type serialTx struct {
	*dbtest.Tx
	once    sync.Once
	release func()
}

func (t *serialTx) Commit(ctx context.Context) error {
	err := t.Tx.Commit(ctx)
	t.once.Do(t.release)
	return err
}

func (t *serialTx) Rollback(ctx context.Context) error {
	err := t.Tx.Rollback(ctx)
	t.once.Do(t.release)
	return err
}

type version[T any] struct {
	owner *serialTx
	val   T
}

// memStore keeps every write as a version owned by its transaction. A version
// is visible to its own transaction and, once committed, to everyone.
type memStore struct {
	mu         sync.Mutex
	profiles   map[string]account.Profile
	listings   []version[posting.Listing]
	apps       []version[Application]
	bookings   []version[booking.Booking]
	bookingErr error
	now        time.Time
}

func newMemStore(now time.Time) *memStore {
	return &memStore{profiles: make(map[string]account.Profile), now: now}
}

func visible(owner *serialTx, reader any) bool {
	if owner == nil {
		return true
	}
	if r, ok := reader.(*serialTx); ok && r == owner {
		return true
	}
	return owner.Committed
}

func owned(tx any) *serialTx {
	st, _ := tx.(*serialTx)
	return st
}

func (s *memStore) addProfile(id string, role account.Role) {
	s.profiles[id] = account.Profile{ID: id, Role: role}
}

func (s *memStore) addListing(l posting.Listing) {
	if l.Status == "" {
		l.Status = posting.StatusOpen
		l.IsListed = true
	}
	if l.ExpiresAt.IsZero() {
		l.ExpiresAt = s.now.Add(posting.DefaultTTL)
	}
	s.listings = append(s.listings, version[posting.Listing]{val: l})
}

func (s *memStore) addBooking(b booking.Booking) {
	if b.Status == "" {
		b.Status = booking.StatusConfirmed
	}
	s.bookings = append(s.bookings, version[booking.Booking]{val: b})
}

func (s *memStore) addApplication(a Application) {
	s.apps = append(s.apps, version[Application]{val: a})
}

func (s *memStore) listing(reader any, id string) (posting.Listing, bool) {
	for i := len(s.listings) - 1; i >= 0; i-- {
		v := s.listings[i]
		if v.val.ID == id && visible(v.owner, reader) {
			return v.val, true
		}
	}
	return posting.Listing{}, false
}

func (s *memStore) application(reader any, id string) (Application, bool) {
	for i := len(s.apps) - 1; i >= 0; i-- {
		v := s.apps[i]
		if v.val.ID == id && visible(v.owner, reader) {
			return v.val, true
		}
	}
	return Application{}, false
}

// visibleApps returns the latest visible version of every application.
func (s *memStore) visibleApps(reader any) []Application {
	seen := map[string]bool{}
	out := []Application{}
	for i := len(s.apps) - 1; i >= 0; i-- {
		v := s.apps[i]
		if seen[v.val.ID] || !visible(v.owner, reader) {
			continue
		}
		seen[v.val.ID] = true
		out = append(out, v.val)
	}
	return out
}

func (s *memStore) visibleBookings(reader any) []booking.Booking {
	out := []booking.Booking{}
	for _, v := range s.bookings {
		if visible(v.owner, reader) {
			out = append(out, v.val)
		}
	}
	return out
}

// Committed views used by assertions.

func (s *memStore) committedListing(id string) posting.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, _ := s.listing(nil, id)
	return l
}

func (s *memStore) committedApps() []Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleApps(nil)
}

func (s *memStore) committedBookings() []booking.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleBookings(nil)
}

type workersView struct{ s *memStore }

func (v workersView) LockForUpdate(_ context.Context, _ pgx.Tx, id string) (account.Profile, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, ok := v.s.profiles[id]
	if !ok {
		return account.Profile{}, account.ErrProfileNotFound
	}
	return p, nil
}

type postingsView struct{ s *memStore }

func (v postingsView) Get(_ context.Context, id string) (posting.Listing, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	l, ok := v.s.listing(nil, id)
	if !ok {
		return posting.Listing{}, posting.ErrNotFound
	}
	return l, nil
}

func (v postingsView) GetForUpdate(_ context.Context, tx pgx.Tx, id string) (posting.Listing, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	l, ok := v.s.listing(tx, id)
	if !ok {
		return posting.Listing{}, posting.ErrNotFound
	}
	return l, nil
}

func (v postingsView) IncrementApplied(_ context.Context, tx pgx.Tx, id string) (posting.Listing, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	l, ok := v.s.listing(tx, id)
	if !ok || l.Status != posting.StatusOpen || l.LaborersApplied >= l.LaborersRequired {
		return posting.Listing{}, posting.ErrCapacityExceeded
	}
	l.LaborersApplied++
	if l.LaborersApplied >= l.LaborersRequired {
		l.Status = posting.StatusFilled
		l.IsListed = false
	}
	v.s.listings = append(v.s.listings, version[posting.Listing]{owner: owned(tx), val: l})
	return l, nil
}

type bookingsView struct{ s *memStore }

func (v bookingsView) Insert(_ context.Context, tx pgx.Tx, b booking.Booking) (booking.Booking, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.bookingErr != nil {
		return booking.Booking{}, v.s.bookingErr
	}
	b.CreatedAt = v.s.now
	v.s.bookings = append(v.s.bookings, version[booking.Booking]{owner: owned(tx), val: b})
	return b, nil
}

func (v bookingsView) ConfirmedBetween(_ context.Context, q db.Querier, laborID string, from, to time.Time) ([]booking.Booking, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	lo, hi := from.Format(time.DateOnly), to.Format(time.DateOnly)
	out := []booking.Booking{}
	for _, b := range v.s.visibleBookings(q) {
		d := b.JobDate.Format(time.DateOnly)
		if b.LaborID == laborID && b.Status == booking.StatusConfirmed && d >= lo && d <= hi {
			out = append(out, b)
		}
	}
	return out, nil
}

func (v bookingsView) ForLabor(_ context.Context, laborID string) ([]booking.Booking, error) {
	return nil, nil
}

func (v bookingsView) ForSupervisor(_ context.Context, supervisorID string) ([]booking.Booking, error) {
	return nil, nil
}

type appsView struct{ s *memStore }

func (v appsView) Insert(_ context.Context, tx pgx.Tx, app Application) (Application, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.visibleApps(tx) {
		if existing.JobID == app.JobID && existing.LaborID == app.LaborID {
			return Application{}, ErrAlreadyApplied
		}
	}
	app.AppliedAt = v.s.now
	app.UpdatedAt = v.s.now
	v.s.apps = append(v.s.apps, version[Application]{owner: owned(tx), val: app})
	return app, nil
}

func (v appsView) Exists(_ context.Context, tx pgx.Tx, jobID, laborID string) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.visibleApps(tx) {
		if existing.JobID == jobID && existing.LaborID == laborID {
			return true, nil
		}
	}
	return false, nil
}

func (v appsView) Get(_ context.Context, q db.Querier, id string) (Application, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	app, ok := v.s.application(q, id)
	if !ok {
		return Application{}, ErrNotFound
	}
	return app, nil
}

func (v appsView) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Application, error) {
	return v.Get(ctx, tx, id)
}

func (v appsView) UpdateStatus(_ context.Context, tx pgx.Tx, id string, status Status) (Application, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	app, ok := v.s.application(tx, id)
	if !ok {
		return Application{}, ErrNotFound
	}
	app.Status = status
	v.s.apps = append(v.s.apps, version[Application]{owner: owned(tx), val: app})
	return app, nil
}

func (v appsView) ForLabor(_ context.Context, laborID string) ([]Application, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	out := []Application{}
	for _, app := range v.s.visibleApps(nil) {
		if app.LaborID == laborID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (v appsView) ForJob(_ context.Context, jobID string) ([]Application, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	out := []Application{}
	for _, app := range v.s.visibleApps(nil) {
		if app.JobID == jobID {
			out = append(out, app)
		}
	}
	return out, nil
}
