package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"laborbook/db"
	"laborbook/week"
)

const bookingColumns = `id, application_id, job_id, labor_id, supervisor_id, job_title, location_name,
	job_date, duration_hours, wage_amount, wage_type, status, created_at`

// Repository provides booking persistence.
type Repository interface {
	Insert(ctx context.Context, tx pgx.Tx, b Booking) (Booking, error)
	ConfirmedBetween(ctx context.Context, q db.Querier, laborID string, from, to time.Time) ([]Booking, error)
	ForLabor(ctx context.Context, laborID string) ([]Booking, error)
	ForSupervisor(ctx context.Context, supervisorID string) ([]Booking, error)
}

type PGRepository struct {
	q   db.Querier
	loc *time.Location
}

func NewRepository(q db.Querier, loc *time.Location) *PGRepository {
	if loc == nil {
		loc = time.Local
	}
	return &PGRepository{q: q, loc: loc}
}

func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, b Booking) (Booking, error) {
	const query = `
		INSERT INTO bookings (id, application_id, job_id, labor_id, supervisor_id, job_title, location_name,
			job_date, duration_hours, wage_amount, wage_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9, $10, $11, $12)
		RETURNING ` + bookingColumns

	created, err := r.scan(tx.QueryRow(ctx, query,
		b.ID,
		b.ApplicationID,
		b.JobID,
		b.LaborID,
		b.SupervisorID,
		b.JobTitle,
		b.LocationName,
		b.JobDate.Format(week.DateLayout),
		b.DurationHours,
		b.WageAmount,
		b.WageType,
		b.Status,
	))
	if err != nil {
		return Booking{}, fmt.Errorf("booking: insert: %w", err)
	}
	return created, nil
}

// ConfirmedBetween loads confirmed bookings for laborID whose job date falls
// on or between the calendar days of from and to.
func (r *PGRepository) ConfirmedBetween(ctx context.Context, q db.Querier, laborID string, from, to time.Time) ([]Booking, error) {
	if q == nil {
		q = r.q
	}
	const query = `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE labor_id = $1
		  AND status = 'confirmed'
		  AND job_date BETWEEN $2::date AND $3::date
	`
	return r.list(ctx, q, "confirmed between", query, laborID, from.Format(week.DateLayout), to.Format(week.DateLayout))
}

func (r *PGRepository) ForLabor(ctx context.Context, laborID string) ([]Booking, error) {
	return r.list(ctx, r.q, "for labor", `SELECT `+bookingColumns+` FROM bookings WHERE labor_id = $1`, laborID)
}

func (r *PGRepository) ForSupervisor(ctx context.Context, supervisorID string) ([]Booking, error) {
	return r.list(ctx, r.q, "for supervisor", `SELECT `+bookingColumns+` FROM bookings WHERE supervisor_id = $1`, supervisorID)
}

func (r *PGRepository) list(ctx context.Context, q db.Querier, op, query string, args ...any) ([]Booking, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("booking: %s: %w", op, err)
	}
	defer rows.Close()

	out := make([]Booking, 0, 8)
	for rows.Next() {
		b, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("booking: %s scan: %w", op, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: %s iterate: %w", op, err)
	}
	return out, nil
}

func (r *PGRepository) scan(row pgx.Row) (Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID,
		&b.ApplicationID,
		&b.JobID,
		&b.LaborID,
		&b.SupervisorID,
		&b.JobTitle,
		&b.LocationName,
		&b.JobDate,
		&b.DurationHours,
		&b.WageAmount,
		&b.WageType,
		&b.Status,
		&b.CreatedAt,
	)
	if err != nil {
		return Booking{}, err
	}
	b.JobDate = week.Date(b.JobDate, r.loc)
	return b, nil
}
