package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"laborbook/db"
	"laborbook/fault"
	"laborbook/week"
)

var (
	ErrNotFound = fmt.Errorf("posting: %w", fault.ErrNotFound)
	// ErrCapacityExceeded means every slot on the posting is taken.
	ErrCapacityExceeded = fmt.Errorf("posting: capacity exceeded: %w", fault.ErrConflict)
)

const listingColumns = `id, supervisor_id, title, description, location, wage_type, wage_amount,
	required_date, duration_hours, laborers_required, laborers_applied, status, is_listed,
	expires_at, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, l Listing) (Listing, error)
	Get(ctx context.Context, id string) (Listing, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Listing, error)
	IncrementApplied(ctx context.Context, tx pgx.Tx, id string) (Listing, error)
	SetLifecycle(ctx context.Context, tx pgx.Tx, id string, status Status, listed bool) (Listing, error)
	ExpireStale(ctx context.Context, now time.Time) ([]string, error)
	ListOpen(ctx context.Context, now time.Time) ([]Listing, error)
	ListBySupervisor(ctx context.Context, supervisorID string) ([]Listing, error)
}

type PGRepository struct {
	q   db.Querier
	loc *time.Location
}

// NewRepository returns a repository whose required dates are anchored in loc.
func NewRepository(q db.Querier, loc *time.Location) *PGRepository {
	if loc == nil {
		loc = time.Local
	}
	return &PGRepository{q: q, loc: loc}
}

func (r *PGRepository) Create(ctx context.Context, l Listing) (Listing, error) {
	const query = `
		INSERT INTO job_listings (id, supervisor_id, title, description, location, wage_type, wage_amount,
			required_date, duration_hours, laborers_required, laborers_applied, status, is_listed, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9, $10, 0, 'open', TRUE, $11)
		RETURNING ` + listingColumns

	row := r.q.QueryRow(ctx, query,
		l.ID,
		l.SupervisorID,
		l.Title,
		l.Description,
		l.Location,
		l.WageType,
		l.WageAmount,
		l.RequiredDate.Format(week.DateLayout),
		l.DurationHours,
		l.LaborersRequired,
		l.ExpiresAt,
	)
	created, err := r.scan(row)
	if err != nil {
		return Listing{}, fmt.Errorf("posting: create: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Listing, error) {
	l, err := r.scan(r.q.QueryRow(ctx, `SELECT `+listingColumns+` FROM job_listings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Listing{}, ErrNotFound
		}
		return Listing{}, fmt.Errorf("posting: get: %w", err)
	}
	return l, nil
}

func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Listing, error) {
	const query = `SELECT ` + listingColumns + ` FROM job_listings WHERE id = $1 FOR UPDATE`

	l, err := r.scan(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Listing{}, ErrNotFound
		}
		return Listing{}, fmt.Errorf("posting: get for update: %w", err)
	}
	return l, nil
}

// IncrementApplied takes one slot in a single statement. The guard re-reads the
// authoritative counters, and the status flips to filled in the same write when
// the last slot goes.
func (r *PGRepository) IncrementApplied(ctx context.Context, tx pgx.Tx, id string) (Listing, error) {
	const query = `
		UPDATE job_listings
		SET laborers_applied = laborers_applied + 1,
		    status = CASE WHEN laborers_applied + 1 >= laborers_required THEN 'filled' ELSE status END,
		    is_listed = CASE WHEN laborers_applied + 1 >= laborers_required THEN FALSE ELSE is_listed END,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'open'
		  AND laborers_applied < laborers_required
		RETURNING ` + listingColumns

	l, err := r.scan(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Listing{}, ErrCapacityExceeded
		}
		return Listing{}, fmt.Errorf("posting: increment applied: %w", err)
	}
	return l, nil
}

func (r *PGRepository) SetLifecycle(ctx context.Context, tx pgx.Tx, id string, status Status, listed bool) (Listing, error) {
	const query = `
		UPDATE job_listings
		SET status = $2, is_listed = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + listingColumns

	l, err := r.scan(tx.QueryRow(ctx, query, id, status, listed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Listing{}, ErrNotFound
		}
		return Listing{}, fmt.Errorf("posting: set lifecycle: %w", err)
	}
	return l, nil
}

// ExpireStale moves every open listing past its expiry to expired in one
// statement and returns the affected ids. Already expired rows are untouched.
func (r *PGRepository) ExpireStale(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
		UPDATE job_listings
		SET status = 'expired', updated_at = now()
		WHERE status = 'open' AND expires_at < $1
		RETURNING id
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("posting: expire stale: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("posting: expire stale scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("posting: expire stale iterate: %w", err)
	}
	return ids, nil
}

func (r *PGRepository) ListOpen(ctx context.Context, now time.Time) ([]Listing, error) {
	const query = `
		SELECT ` + listingColumns + `
		FROM job_listings
		WHERE status = 'open' AND is_listed AND expires_at >= $1
	`
	return r.list(ctx, "list open", query, now)
}

func (r *PGRepository) ListBySupervisor(ctx context.Context, supervisorID string) ([]Listing, error) {
	const query = `
		SELECT ` + listingColumns + `
		FROM job_listings
		WHERE supervisor_id = $1
	`
	return r.list(ctx, "list by supervisor", query, supervisorID)
}

func (r *PGRepository) list(ctx context.Context, op, query string, args ...any) ([]Listing, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("posting: %s: %w", op, err)
	}
	defer rows.Close()

	out := make([]Listing, 0, 16)
	for rows.Next() {
		l, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("posting: %s scan: %w", op, err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("posting: %s iterate: %w", op, err)
	}
	return out, nil
}

func (r *PGRepository) scan(row pgx.Row) (Listing, error) {
	var l Listing
	err := row.Scan(
		&l.ID,
		&l.SupervisorID,
		&l.Title,
		&l.Description,
		&l.Location,
		&l.WageType,
		&l.WageAmount,
		&l.RequiredDate,
		&l.DurationHours,
		&l.LaborersRequired,
		&l.LaborersApplied,
		&l.Status,
		&l.IsListed,
		&l.ExpiresAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return Listing{}, err
	}
	l.RequiredDate = week.Date(l.RequiredDate, r.loc)
	return l, nil
}
