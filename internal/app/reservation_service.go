package app

import (
	"context"
	"time"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/clock"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

type TicketRepository interface {
	ListAvailableTickets(ctx context.Context, categoryID string, now time.Time, limit int) ([]domain.Ticket, error)
	// ReserveTicket holds the ticket until the given instant only if it is
	// still unsold and unheld at now. It reports whether the hold was taken.
	ReserveTicket(ctx context.Context, ticketID string, now, until time.Time) (bool, error)
}

type ReservationService struct {
	repo       TicketRepository
	clock      clock.Clock
	hold       time.Duration
	candidates int
}

const (
	defaultReservationHold = 15 * time.Minute
	defaultCandidateLimit  = 10
)

func NewReservationService(repo TicketRepository, clk clock.Clock, opts ...ReservationOption) *ReservationService {
	svc := &ReservationService{
		repo:       repo,
		clock:      clk,
		hold:       defaultReservationHold,
		candidates: defaultCandidateLimit,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationOption func(*ReservationService)

// WithReservationHold overrides how long a reserved ticket stays excluded.
func WithReservationHold(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.hold = d
		}
	}
}

// WithCandidateLimit caps how many available tickets one reservation looks at.
func WithCandidateLimit(n int) ReservationOption {
	return func(s *ReservationService) {
		if n > 0 {
			s.candidates = n
		}
	}
}

// ListAvailable returns unsold tickets of the category whose hold, if any,
// has passed.
func (s *ReservationService) ListAvailable(ctx context.Context, categoryID string) ([]domain.Ticket, error) {
	if categoryID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListAvailableTickets(ctx, categoryID, s.clock.Now(), s.candidates)
}

// ReserveOne holds the first candidate that can still be taken. Candidates
// lost to a concurrent reservation are skipped.
func (s *ReservationService) ReserveOne(ctx context.Context, units []domain.Ticket, hold time.Duration) (domain.Ticket, error) {
	if hold <= 0 {
		hold = s.hold
	}
	now := s.clock.Now()
	until := now.Add(hold)
	for _, unit := range units {
		if !unit.AvailableAt(now) {
			continue
		}
		ok, err := s.repo.ReserveTicket(ctx, unit.ID, now, until)
		if err != nil {
			return domain.Ticket{}, err
		}
		if !ok {
			continue
		}
		unit.ReservedUntil = &until
		return unit, nil
	}
	return domain.Ticket{}, domain.ErrInsufficientInventory
}

// Reserve lists and holds one ticket of the category with the configured hold.
func (s *ReservationService) Reserve(ctx context.Context, categoryID string) (domain.Ticket, error) {
	units, err := s.ListAvailable(ctx, categoryID)
	if err != nil {
		return domain.Ticket{}, err
	}
	return s.ReserveOne(ctx, units, s.hold)
}
