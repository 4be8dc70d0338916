package booking

import (
	"context"
	"time"

	"laborbook/db"
	"laborbook/fault"
	"laborbook/week"
)

// WeeklyHourCap is the most confirmed hours a worker may hold in one
// Monday to Sunday window.
const WeeklyHourCap = 50.0

// Ledger sums confirmed booking hours per worker week.
type Ledger struct {
	repo Repository
	loc  *time.Location
}

func NewLedger(repo Repository, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{repo: repo, loc: loc}
}

// Location is the zone week windows are computed in.
func (l *Ledger) Location() *time.Location {
	return l.loc
}

// WeeklyHours sums confirmed hours for laborID in the week containing target.
func (l *Ledger) WeeklyHours(ctx context.Context, laborID string, target time.Time) (float64, error) {
	return l.WeeklyHoursTx(ctx, nil, laborID, target)
}

// WeeklyHoursTx is WeeklyHours read through q, so a caller holding the worker
// lock sees the booking set it is about to commit against. A nil q reads
// through the repository's own connection.
func (l *Ledger) WeeklyHoursTx(ctx context.Context, q db.Querier, laborID string, target time.Time) (float64, error) {
	if laborID == "" {
		return 0, fault.Validation("booking: weekly hours", "missing labor id")
	}
	target = target.In(l.loc)
	start, end := week.Bounds(target)
	bookings, err := l.repo.ConfirmedBetween(ctx, q, laborID, start, end)
	if err != nil {
		return 0, err
	}
	return SumWeek(bookings, target), nil
}

// SumWeek adds the duration of confirmed bookings whose job date lies in the
// week containing target, bounds inclusive.
func SumWeek(bookings []Booking, target time.Time) float64 {
	start, end := week.Bounds(target)
	var total float64
	for _, b := range bookings {
		if b.Status != StatusConfirmed {
			continue
		}
		if !week.Contains(start, end, b.JobDate) {
			continue
		}
		total += b.DurationHours
	}
	return total
}
