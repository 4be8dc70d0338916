package api

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"laborbook/account"
	"laborbook/booking"
	"laborbook/fault"
	"laborbook/posting"
	"laborbook/wage"
	"laborbook/week"
)

const maxBodyBytes = 1 << 20

type createPostingRequest struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Location         string  `json:"location"`
	WageType         string  `json:"wageType"`
	WageAmount       float64 `json:"wageAmount"`
	RequiredDate     string  `json:"requiredDate"`
	DurationHours    float64 `json:"durationHours"`
	LaborersRequired int     `json:"laborersRequired"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fault.Wrap(fault.ErrValidation, "api: decode body", "invalid JSON", err)
	}
	return nil
}

func (s *Server) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Kind: "unauthorized"})
		return "", false
	}
	return userID, true
}

func (s *Server) location() *time.Location {
	if s.hoursService != nil {
		if loc := s.hoursService.Location(); loc != nil {
			return loc
		}
	}
	return time.Local
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing id in path", Kind: "validation"})
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed id in path", Kind: "validation"})
		return "", false
	}
	return id, true
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.ratesService.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ratesResponse{
		MinWagePerHour: rates.MinWagePerHour,
		LastUpdated:    formatTime(rates.LastUpdated),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	profile, err := s.accountService.Get(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(profile))
}

// handleChangeRole switches the caller's role. Tokens issued earlier keep the
// old role claim; services re-read the profile before acting on it.
func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req changeRoleRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	role := account.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	profile, err := s.accountService.ChangeRole(r.Context(), userID, role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(profile))
}

func (s *Server) handleCreatePosting(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req createPostingRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	wageType, err := wage.ParseType(req.WageType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	requiredDate, err := week.Parse(req.RequiredDate, s.location())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	listing, err := s.postingService.Create(r.Context(), posting.CreateParams{
		SupervisorID:     userID,
		Title:            req.Title,
		Description:      req.Description,
		Location:         req.Location,
		WageType:         wageType,
		WageAmount:       req.WageAmount,
		RequiredDate:     requiredDate,
		DurationHours:    req.DurationHours,
		LaborersRequired: req.LaborersRequired,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPostingResponse(listing))
}

func (s *Server) handleMyPostings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	items, err := s.postingService.ForSupervisor(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapList(items, newPostingResponse))
}

func (s *Server) handleOpenJobs(w http.ResponseWriter, r *http.Request) {
	items, err := s.feedService.OpenJobs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapList(items, newPostingResponse))
}

func (s *Server) handlePosting(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	listing, err := s.postingService.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPostingResponse(listing))
}

func (s *Server) handleDelist(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	listing, err := s.postingService.Delist(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPostingResponse(listing))
}

func (s *Server) handleToggleListing(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	listing, err := s.postingService.ToggleListing(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPostingResponse(listing))
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := s.applicationService.Apply(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newResultResponse(result))
}

// handleBookDirect serves the legacy one-step booking route.
func (s *Server) handleBookDirect(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	w.Header().Set("Deprecation", "true")
	result, err := s.applicationService.BookDirect(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newResultResponse(result))
}

func (s *Server) handleJobApplications(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	items, err := s.applicationService.ForJob(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapList(items, newApplicationResponse))
}

func (s *Server) handleMyApplications(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	items, err := s.applicationService.ForLabor(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapList(items, newApplicationResponse))
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := s.applicationService.Accept(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newResultResponse(result))
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	app, err := s.applicationService.Reject(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newApplicationResponse(app))
}

// handleBookings returns the caller's bookings: worked shifts for labor,
// issued bookings for supervisors.
func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	role, _ := roleFromContext(r.Context())

	var (
		items []booking.Booking
		err   error
	)
	switch role {
	case account.RoleLabor:
		items, err = s.bookingService.ForLabor(r.Context(), userID)
	case account.RoleSupervisor:
		items, err = s.bookingService.ForSupervisor(r.Context(), userID)
	default:
		err = fault.Wrap(fault.ErrForbidden, "api: bookings", "unknown role", nil)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapList(items, newBookingResponse))
}

func (s *Server) handleWeeklyHours(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.caller(w, r)
	if !ok {
		return
	}
	loc := s.location()
	target := time.Now().In(loc)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := week.Parse(raw, loc)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		target = parsed
	}

	hours, err := s.hoursService.WeeklyHours(r.Context(), userID, target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	start, end := week.Bounds(target)
	writeJSON(w, http.StatusOK, weeklyHoursResponse{
		Date:      target.Format(week.DateLayout),
		WeekStart: start.Format(week.DateLayout),
		WeekEnd:   end.Format(week.DateLayout),
		Hours:     hours,
		Limit:     s.weeklyHourCap,
		Remaining: math.Max(0, s.weeklyHourCap-hours),
	})
}
