package booking

import (
	"time"

	"laborbook/posting"
	"laborbook/wage"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Booking is a confirmed work commitment. Job fields are copied at confirmation
// time so later posting edits do not rewrite history.
type Booking struct {
	ID            string
	ApplicationID *string
	JobID         string
	LaborID       string
	SupervisorID  string
	JobTitle      string
	LocationName  string
	JobDate       time.Time
	DurationHours float64
	WageAmount    float64
	WageType      wage.Type
	Status        Status
	CreatedAt     time.Time
}

// Snapshot builds a confirmed booking for laborID from the posting as it is now.
func Snapshot(l posting.Listing, laborID string, applicationID *string) Booking {
	return Booking{
		ApplicationID: applicationID,
		JobID:         l.ID,
		LaborID:       laborID,
		SupervisorID:  l.SupervisorID,
		JobTitle:      l.Title,
		LocationName:  l.Location,
		JobDate:       l.RequiredDate,
		DurationHours: l.DurationHours,
		WageAmount:    l.WageAmount,
		WageType:      l.WageType,
		Status:        StatusConfirmed,
	}
}
