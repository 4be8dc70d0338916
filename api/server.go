// Package api exposes the laborbook services over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"laborbook/account"
	"laborbook/application"
	"laborbook/booking"
	"laborbook/posting"
	"laborbook/ratelimit"
	"laborbook/wage"
)

type AccountService interface {
	VerifyToken(token string) (account.Claims, error)
	Get(ctx context.Context, id string) (account.Profile, error)
	ChangeRole(ctx context.Context, id string, role account.Role) (account.Profile, error)
}

type PostingService interface {
	Create(ctx context.Context, params posting.CreateParams) (posting.Listing, error)
	Get(ctx context.Context, id string) (posting.Listing, error)
	ForSupervisor(ctx context.Context, supervisorID string) ([]posting.Listing, error)
	Delist(ctx context.Context, id, ownerID string) (posting.Listing, error)
	ToggleListing(ctx context.Context, id, ownerID string) (posting.Listing, error)
}

type FeedService interface {
	OpenJobs(ctx context.Context) ([]posting.Listing, error)
}

type ApplicationService interface {
	Apply(ctx context.Context, jobID, laborID string) (application.Result, error)
	BookDirect(ctx context.Context, jobID, laborID string) (application.Result, error)
	Accept(ctx context.Context, applicationID, supervisorID string) (application.Result, error)
	Reject(ctx context.Context, applicationID, supervisorID string) (application.Application, error)
	ForLabor(ctx context.Context, laborID string) ([]application.Application, error)
	ForJob(ctx context.Context, jobID, supervisorID string) ([]application.Application, error)
}

type BookingService interface {
	ForLabor(ctx context.Context, laborID string) ([]booking.Booking, error)
	ForSupervisor(ctx context.Context, supervisorID string) ([]booking.Booking, error)
}

type HoursService interface {
	WeeklyHours(ctx context.Context, laborID string, target time.Time) (float64, error)
	Location() *time.Location
}

type RatesService interface {
	Get(ctx context.Context) (wage.Rates, error)
}

// Deps wires the server. Limiter and Logger are optional.
type Deps struct {
	Accounts       AccountService
	Postings       PostingService
	Feed           FeedService
	Applications   ApplicationService
	Bookings       BookingService
	Hours          HoursService
	Rates          RatesService
	Limiter        ratelimit.Limiter
	Logger         *slog.Logger
	RequestTimeout time.Duration
	WeeklyHourCap  float64
}

type Server struct {
	accountService     AccountService
	postingService     PostingService
	feedService        FeedService
	applicationService ApplicationService
	bookingService     BookingService
	hoursService       HoursService
	ratesService       RatesService
	limiter            ratelimit.Limiter
	logger             *slog.Logger
	requestTimeout     time.Duration
	weeklyHourCap      float64
	mux                *http.ServeMux
}

func New(deps Deps) *Server {
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.WeeklyHourCap <= 0 {
		deps.WeeklyHourCap = booking.WeeklyHourCap
	}
	s := &Server{
		accountService:     deps.Accounts,
		postingService:     deps.Postings,
		feedService:        deps.Feed,
		applicationService: deps.Applications,
		bookingService:     deps.Bookings,
		hoursService:       deps.Hours,
		ratesService:       deps.Rates,
		limiter:            deps.Limiter,
		logger:             deps.Logger,
		requestTimeout:     deps.RequestTimeout,
		weeklyHourCap:      deps.WeeklyHourCap,
		mux:                http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/rates", s.authenticate(s.handleRates))
	s.mux.HandleFunc("GET /api/me", s.authenticate(s.handleMe))
	s.mux.HandleFunc("PUT /api/me/role", s.authenticate(s.handleChangeRole))

	s.mux.HandleFunc("POST /api/postings", s.authenticate(s.handleCreatePosting))
	s.mux.HandleFunc("GET /api/postings", s.authenticate(s.handleMyPostings))
	s.mux.HandleFunc("GET /api/postings/open", s.authenticate(s.handleOpenJobs))
	s.mux.HandleFunc("GET /api/postings/{id}", s.authenticate(s.handlePosting))
	s.mux.HandleFunc("DELETE /api/postings/{id}", s.authenticate(s.handleDelist))
	s.mux.HandleFunc("POST /api/postings/{id}/listing", s.authenticate(s.handleToggleListing))
	s.mux.HandleFunc("POST /api/postings/{id}/apply", s.authenticate(s.limit(s.handleApply)))
	s.mux.HandleFunc("POST /api/postings/{id}/book", s.authenticate(s.limit(s.handleBookDirect)))
	s.mux.HandleFunc("GET /api/postings/{id}/applications", s.authenticate(s.handleJobApplications))

	s.mux.HandleFunc("GET /api/applications", s.authenticate(s.handleMyApplications))
	s.mux.HandleFunc("POST /api/applications/{id}/accept", s.authenticate(s.handleAccept))
	s.mux.HandleFunc("POST /api/applications/{id}/reject", s.authenticate(s.handleReject))

	s.mux.HandleFunc("GET /api/bookings", s.authenticate(s.handleBookings))
	s.mux.HandleFunc("GET /api/bookings/weekly-hours", s.authenticate(s.handleWeeklyHours))
}

// Handler returns the routed mux behind the request-scoped middleware.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, s.recoverPanics, s.withTimeout, s.logRequests, s.withRequestID)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
