package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"laborbook/account"
	"laborbook/application"
	"laborbook/booking"
	"laborbook/fault"
	"laborbook/logging"
	"laborbook/posting"
	"laborbook/week"
)

type errorResponse struct {
	Error  string        `json:"error"`
	Kind   string        `json:"kind"`
	Safety *safetyDetail `json:"safety,omitempty"`
}

type safetyDetail struct {
	CurrentHours   float64 `json:"currentHours"`
	RequestedHours float64 `json:"requestedHours"`
	ProjectedHours float64 `json:"projectedHours"`
	Limit          float64 `json:"limit"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type postingResponse struct {
	ID               string  `json:"id"`
	SupervisorID     string  `json:"supervisorId"`
	Title            string  `json:"title"`
	Description      string  `json:"description,omitempty"`
	Location         string  `json:"location"`
	WageType         string  `json:"wageType"`
	WageAmount       float64 `json:"wageAmount"`
	RequiredDate     string  `json:"requiredDate"`
	DurationHours    float64 `json:"durationHours"`
	LaborersRequired int     `json:"laborersRequired"`
	LaborersApplied  int     `json:"laborersApplied"`
	Remaining        int     `json:"remaining"`
	Status           string  `json:"status"`
	IsListed         bool    `json:"isListed"`
	ExpiresAt        string  `json:"expiresAt"`
	CreatedAt        string  `json:"createdAt"`
}

type applicationResponse struct {
	ID           string `json:"id"`
	JobID        string `json:"jobId"`
	LaborID      string `json:"laborId"`
	SupervisorID string `json:"supervisorId"`
	Status       string `json:"status"`
	AppliedAt    string `json:"appliedAt"`
	UpdatedAt    string `json:"updatedAt"`
}

type bookingResponse struct {
	ID            string  `json:"id"`
	ApplicationID *string `json:"applicationId,omitempty"`
	JobID         string  `json:"jobId"`
	LaborID       string  `json:"laborId"`
	SupervisorID  string  `json:"supervisorId"`
	JobTitle      string  `json:"jobTitle"`
	Location      string  `json:"location"`
	JobDate       string  `json:"jobDate"`
	DurationHours float64 `json:"durationHours"`
	WageAmount    float64 `json:"wageAmount"`
	WageType      string  `json:"wageType"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"createdAt"`
}

type resultResponse struct {
	Application *applicationResponse `json:"application,omitempty"`
	Booking     bookingResponse      `json:"booking"`
	Job         postingResponse      `json:"job"`
	WeekHours   float64              `json:"weekHours"`
	Message     string               `json:"message"`
}

type weeklyHoursResponse struct {
	Date      string  `json:"date"`
	WeekStart string  `json:"weekStart"`
	WeekEnd   string  `json:"weekEnd"`
	Hours     float64 `json:"hours"`
	Limit     float64 `json:"limit"`
	Remaining float64 `json:"remaining"`
}

type ratesResponse struct {
	MinWagePerHour float64 `json:"minWagePerHour"`
	LastUpdated    string  `json:"lastUpdated"`
}

type profileResponse struct {
	ID        string `json:"id"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func newPostingResponse(l posting.Listing) postingResponse {
	return postingResponse{
		ID:               l.ID,
		SupervisorID:     l.SupervisorID,
		Title:            l.Title,
		Description:      l.Description,
		Location:         l.Location,
		WageType:         string(l.WageType),
		WageAmount:       l.WageAmount,
		RequiredDate:     l.RequiredDate.Format(week.DateLayout),
		DurationHours:    l.DurationHours,
		LaborersRequired: l.LaborersRequired,
		LaborersApplied:  l.LaborersApplied,
		Remaining:        l.Remaining(),
		Status:           string(l.Status),
		IsListed:         l.IsListed,
		ExpiresAt:        formatTime(l.ExpiresAt),
		CreatedAt:        formatTime(l.CreatedAt),
	}
}

func newApplicationResponse(a application.Application) applicationResponse {
	return applicationResponse{
		ID:           a.ID,
		JobID:        a.JobID,
		LaborID:      a.LaborID,
		SupervisorID: a.SupervisorID,
		Status:       string(a.Status),
		AppliedAt:    formatTime(a.AppliedAt),
		UpdatedAt:    formatTime(a.UpdatedAt),
	}
}

func newBookingResponse(b booking.Booking) bookingResponse {
	return bookingResponse{
		ID:            b.ID,
		ApplicationID: b.ApplicationID,
		JobID:         b.JobID,
		LaborID:       b.LaborID,
		SupervisorID:  b.SupervisorID,
		JobTitle:      b.JobTitle,
		Location:      b.LocationName,
		JobDate:       b.JobDate.Format(week.DateLayout),
		DurationHours: b.DurationHours,
		WageAmount:    b.WageAmount,
		WageType:      string(b.WageType),
		Status:        string(b.Status),
		CreatedAt:     formatTime(b.CreatedAt),
	}
}

func newResultResponse(r application.Result) resultResponse {
	out := resultResponse{
		Booking:   newBookingResponse(r.Booking),
		Job:       newPostingResponse(r.Listing),
		WeekHours: r.WeekHours,
		Message:   r.Message,
	}
	if r.Application != nil {
		app := newApplicationResponse(*r.Application)
		out.Application = &app
	}
	return out
}

func newProfileResponse(p account.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Phone:     p.Phone,
		Role:      string(p.Role),
		CreatedAt: formatTime(p.CreatedAt),
	}
}

func mapList[S, T any](items []S, conv func(S) T) listResponse[T] {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, conv(item))
	}
	return listResponse[T]{Items: out, Total: len(out)}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps a service error onto a status code. Server-side failures are
// logged and reported without their detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var safety *application.SafetyLimitError
	if errors.As(err, &safety) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: err.Error(),
			Kind:  "safety_limit",
			Safety: &safetyDetail{
				CurrentHours:   safety.Current,
				RequestedHours: safety.Requested,
				ProjectedHours: safety.Projected,
				Limit:          safety.Cap,
			},
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, fault.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, fault.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, fault.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, fault.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, fault.ErrSystem):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		if s.logger != nil {
			logging.WithContext(r.Context(), s.logger).Error("request failed", "path", r.URL.Path, "error", err)
		}
		message := "internal error"
		if status == http.StatusServiceUnavailable {
			message = "service temporarily unavailable, retry the request"
		}
		writeJSON(w, status, errorResponse{Error: message, Kind: "system"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: fault.Kind(err)})
}
