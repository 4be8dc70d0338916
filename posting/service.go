package posting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"laborbook/account"
	"laborbook/db"
	"laborbook/fault"
	"laborbook/wage"
	"laborbook/week"
)

const (
	DefaultTTL       = 7 * 24 * time.Hour
	maxDurationHours = 24
)

var (
	ErrNotOwner      = fmt.Errorf("posting: not the owner: %w", fault.ErrForbidden)
	ErrNotSupervisor = fmt.Errorf("posting: only supervisors can post jobs: %w", fault.ErrForbidden)
	ErrInvalidState  = fmt.Errorf("posting: invalid lifecycle transition: %w", fault.ErrConflict)
)

// ProfileReader resolves the supervisor creating a posting.
type ProfileReader interface {
	Get(ctx context.Context, id string) (account.Profile, error)
}

type Service struct {
	pool        db.TxBeginner
	repo        Repository
	rates       wage.RatesReader
	profiles    ProfileReader
	ttl         time.Duration
	txAttempts  int
	loc         *time.Location
	idGenerator func() string
	now         func() time.Time
}

type Options struct {
	TTL        time.Duration
	TxAttempts int
	Location   *time.Location
}

func NewService(pool db.TxBeginner, repo Repository, rates wage.RatesReader, profiles ProfileReader, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{
		pool:        pool,
		repo:        repo,
		rates:       rates,
		profiles:    profiles,
		ttl:         opts.TTL,
		txAttempts:  opts.TxAttempts,
		loc:         opts.Location,
		idGenerator: uuid.NewString,
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates and stores a posting. The offer must meet the wage floor in
// force at creation time.
func (s *Service) Create(ctx context.Context, params CreateParams) (Listing, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Location = strings.TrimSpace(params.Location)
	params.Description = strings.TrimSpace(params.Description)

	switch {
	case params.SupervisorID == "":
		return Listing{}, fault.Validation("posting: create", "missing supervisor id")
	case params.Title == "":
		return Listing{}, fault.Validation("posting: create", "title required")
	case params.Location == "":
		return Listing{}, fault.Validation("posting: create", "location required")
	case params.RequiredDate.IsZero():
		return Listing{}, fault.Validation("posting: create", "required date missing")
	case params.DurationHours <= 0 || params.DurationHours > maxDurationHours:
		return Listing{}, fault.Validation("posting: create", fmt.Sprintf("duration must be within (0, %d] hours", maxDurationHours))
	case params.LaborersRequired < 1:
		return Listing{}, fault.Validation("posting: create", "at least one laborer required")
	}

	supervisor, err := s.profiles.Get(ctx, params.SupervisorID)
	if err != nil {
		return Listing{}, err
	}
	if supervisor.Role != account.RoleSupervisor {
		return Listing{}, ErrNotSupervisor
	}

	rates, err := s.rates.Get(ctx)
	if err != nil {
		return Listing{}, err
	}
	if err := wage.Validate(rates, params.WageType, params.WageAmount, params.DurationHours); err != nil {
		return Listing{}, err
	}

	now := s.now()
	return s.repo.Create(ctx, Listing{
		ID:               s.idGenerator(),
		SupervisorID:     params.SupervisorID,
		Title:            params.Title,
		Description:      params.Description,
		Location:         params.Location,
		WageType:         params.WageType,
		WageAmount:       params.WageAmount,
		RequiredDate:     week.Date(params.RequiredDate.In(s.loc), s.loc),
		DurationHours:    params.DurationHours,
		LaborersRequired: params.LaborersRequired,
		Status:           StatusOpen,
		IsListed:         true,
		ExpiresAt:        now.Add(s.ttl),
	})
}

func (s *Service) Get(ctx context.Context, id string) (Listing, error) {
	if id == "" {
		return Listing{}, fault.Validation("posting: get", "missing posting id")
	}
	return s.repo.Get(ctx, id)
}

// ForSupervisor lists a supervisor's postings, newest first.
func (s *Service) ForSupervisor(ctx context.Context, supervisorID string) ([]Listing, error) {
	if supervisorID == "" {
		return nil, fault.Validation("posting: for supervisor", "missing supervisor id")
	}
	items, err := s.repo.ListBySupervisor(ctx, supervisorID)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(items)
	return items, nil
}

// Delist soft-deletes an open posting. Delisting twice is a no-op; bookings
// already made against the posting stay valid.
func (s *Service) Delist(ctx context.Context, id, ownerID string) (Listing, error) {
	return s.lifecycle(ctx, "delist", id, ownerID, func(l Listing) (Status, bool, error) {
		switch l.Status {
		case StatusDelisted:
			return l.Status, l.IsListed, errNoChange
		case StatusOpen:
			return StatusDelisted, false, nil
		default:
			return "", false, ErrInvalidState
		}
	})
}

// ToggleListing flips the visibility flag of an open posting.
func (s *Service) ToggleListing(ctx context.Context, id, ownerID string) (Listing, error) {
	return s.lifecycle(ctx, "toggle listing", id, ownerID, func(l Listing) (Status, bool, error) {
		if l.Status != StatusOpen {
			return "", false, ErrInvalidState
		}
		return l.Status, !l.IsListed, nil
	})
}

var errNoChange = errors.New("posting: no change")

func (s *Service) lifecycle(ctx context.Context, op, id, ownerID string, next func(Listing) (Status, bool, error)) (Listing, error) {
	if id == "" || ownerID == "" {
		return Listing{}, fault.Validation("posting: "+op, "missing posting or owner id")
	}

	var out Listing
	err := db.InTx(ctx, s.pool, s.txAttempts, func(tx pgx.Tx) error {
		current, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.SupervisorID != ownerID {
			return ErrNotOwner
		}
		status, listed, err := next(current)
		if errors.Is(err, errNoChange) {
			out = current
			return nil
		}
		if err != nil {
			return err
		}
		out, err = s.repo.SetLifecycle(ctx, tx, id, status, listed)
		return err
	})
	if err != nil {
		return Listing{}, err
	}
	return out, nil
}

// SortNewestFirst orders listings by creation instant, newest first. Equal
// instants keep their input order.
func SortNewestFirst(items []Listing) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.UnixNano() > items[j].CreatedAt.UnixNano()
	})
}
