package booking

import (
	"context"
	"sort"

	"laborbook/fault"
)

// Service exposes the booking read models.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ForLabor returns a worker's bookings, newest first.
func (s *Service) ForLabor(ctx context.Context, laborID string) ([]Booking, error) {
	if laborID == "" {
		return nil, fault.Validation("booking: for labor", "missing labor id")
	}
	items, err := s.repo.ForLabor(ctx, laborID)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(items)
	return items, nil
}

// ForSupervisor returns bookings against a supervisor's postings, newest first.
func (s *Service) ForSupervisor(ctx context.Context, supervisorID string) ([]Booking, error) {
	if supervisorID == "" {
		return nil, fault.Validation("booking: for supervisor", "missing supervisor id")
	}
	items, err := s.repo.ForSupervisor(ctx, supervisorID)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(items)
	return items, nil
}

func SortNewestFirst(items []Booking) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.UnixNano() > items[j].CreatedAt.UnixNano()
	})
}
