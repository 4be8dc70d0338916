package wage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"laborbook/db"
	"laborbook/fault"
)

// ErrRatesMissing means the system_rates row was never seeded.
var ErrRatesMissing = fmt.Errorf("wage: system rates missing: %w", fault.ErrNotFound)

// RatesReader is what posting creation needs from the store.
type RatesReader interface {
	Get(ctx context.Context) (Rates, error)
}

type RatesStore struct {
	q db.Querier
}

func NewRatesStore(q db.Querier) *RatesStore {
	return &RatesStore{q: q}
}

func (s *RatesStore) Get(ctx context.Context) (Rates, error) {
	const query = `SELECT min_wage_per_hour, last_updated FROM system_rates WHERE id = 1`

	var rates Rates
	err := s.q.QueryRow(ctx, query).Scan(&rates.MinWagePerHour, &rates.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rates{}, ErrRatesMissing
		}
		return Rates{}, fault.Wrap(fault.ErrSystem, "wage: get rates", "", err)
	}
	return rates, nil
}

// Set replaces the hourly floor. Existing postings are not re-validated.
func (s *RatesStore) Set(ctx context.Context, minWagePerHour float64) (Rates, error) {
	if minWagePerHour < 0 {
		return Rates{}, fault.Validation("wage: set rates", "minimum wage must not be negative")
	}

	const query = `
		INSERT INTO system_rates (id, min_wage_per_hour, last_updated)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE
		SET min_wage_per_hour = EXCLUDED.min_wage_per_hour,
		    last_updated = EXCLUDED.last_updated
		RETURNING min_wage_per_hour, last_updated
	`

	var rates Rates
	if err := s.q.QueryRow(ctx, query, minWagePerHour).Scan(&rates.MinWagePerHour, &rates.LastUpdated); err != nil {
		return Rates{}, fault.Wrap(fault.ErrSystem, "wage: set rates", "", err)
	}
	return rates, nil
}
