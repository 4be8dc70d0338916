package posting

import (
	"time"

	"laborbook/wage"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusFilled   Status = "filled"
	StatusExpired  Status = "expired"
	StatusDelisted Status = "delisted"
)

// Listing mirrors the job_listings table.
type Listing struct {
	ID               string
	SupervisorID     string
	Title            string
	Description      string
	Location         string
	WageType         wage.Type
	WageAmount       float64
	RequiredDate     time.Time
	DurationHours    float64
	LaborersRequired int
	LaborersApplied  int
	Status           Status
	IsListed         bool
	ExpiresAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Remaining is the number of workers the listing can still take.
func (l Listing) Remaining() int {
	if n := l.LaborersRequired - l.LaborersApplied; n > 0 {
		return n
	}
	return 0
}

// Discoverable reports whether the listing belongs in the open feed at now.
func (l Listing) Discoverable(now time.Time) bool {
	return l.Status == StatusOpen && l.IsListed && !now.After(l.ExpiresAt)
}

type CreateParams struct {
	SupervisorID     string
	Title            string
	Description      string
	Location         string
	WageType         wage.Type
	WageAmount       float64
	RequiredDate     time.Time
	DurationHours    float64
	LaborersRequired int
}
