package application

import (
	"time"

	"laborbook/booking"
	"laborbook/posting"
)

// Status is stored as free text so review states can be added without a
// schema change. Apply only ever writes StatusConfirmed; StatusPending is the
// entry state for a manual review flow.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusConfirmed, StatusRejected},
}

func canTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Application mirrors the job_applications table.
type Application struct {
	ID           string
	JobID        string
	LaborID      string
	SupervisorID string
	Status       Status
	AppliedAt    time.Time
	UpdatedAt    time.Time
}

// Result is what a successful booking commit produced. Application is nil for
// direct bookings.
type Result struct {
	Application *Application
	Booking     booking.Booking
	Listing     posting.Listing
	WeekHours   float64
	Message     string
}
