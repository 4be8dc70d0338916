package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns the invariant checks. Each query selects violating rows; an
// empty result means the invariant holds.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_capacity_overshoot",
			SQL: `SELECT id, laborers_applied, laborers_required FROM job_listings
                  WHERE laborers_applied > laborers_required`,
		},
		{
			Name: "O2_counter_matches_bookings",
			SQL: `SELECT l.id, l.laborers_applied, COUNT(b.id) AS booked
                  FROM job_listings l
                  LEFT JOIN bookings b ON b.job_id = l.id AND b.status = 'confirmed'
                  GROUP BY l.id, l.laborers_applied
                  HAVING l.laborers_applied <> COUNT(b.id)`,
		},
		{
			Name: "O3_weekly_hour_cap",
			SQL: `SELECT labor_id, date_trunc('week', job_date::timestamp) AS week_start, SUM(duration_hours) AS hours
                  FROM bookings
                  WHERE status = 'confirmed'
                  GROUP BY labor_id, date_trunc('week', job_date::timestamp)
                  HAVING SUM(duration_hours) > 50`,
		},
		{
			Name: "O4_duplicate_application",
			SQL: `SELECT job_id, labor_id, COUNT(*) FROM job_applications
                  GROUP BY job_id, labor_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O5_confirmed_application_without_booking",
			SQL: `SELECT a.id FROM job_applications a
                  LEFT JOIN bookings b ON b.application_id = a.id
                  WHERE a.status = 'confirmed' AND b.id IS NULL`,
		},
		{
			Name: "O6_filled_status_matches_counter",
			SQL: `SELECT id, status, laborers_applied, laborers_required FROM job_listings
                  WHERE (status = 'filled' AND laborers_applied < laborers_required)
                     OR (status = 'open' AND laborers_applied >= laborers_required)`,
		},
		{
			Name: "O7_booking_snapshot_drift",
			SQL: `SELECT b.id FROM bookings b
                  JOIN job_listings l ON l.id = b.job_id
                  WHERE b.job_date <> l.required_date
                     OR b.duration_hours <> l.duration_hours
                     OR b.supervisor_id <> l.supervisor_id`,
		},
		{
			Name: "O8_labor_only_bookings",
			SQL: `SELECT b.id FROM bookings b
                  JOIN profiles p ON p.id = b.labor_id
                  WHERE p.role <> 'labor'`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
	}
	return "", "", nil
}
