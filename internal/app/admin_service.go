package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/clock"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

type AdminRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	// CreateCategory stores the category together with its tickets.
	CreateCategory(ctx context.Context, category domain.Category, tickets []domain.Ticket) error
	ListCategoriesByEvent(ctx context.Context, eventID string) ([]domain.Category, error)
	SetCategoryTemplate(ctx context.Context, categoryID string, templateID int64) error
}

type AdminService struct {
	repo             AdminRepository
	clock            clock.Clock
	collectionPrefix string
	pricePlaces      int32
}

type AdminOption func(*AdminService)

// WithPricePlaces rejects category prices with more decimals than the
// payment token can carry.
func WithPricePlaces(places int32) AdminOption {
	return func(s *AdminService) {
		s.pricePlaces = places
	}
}

func NewAdminService(repo AdminRepository, clk clock.Clock, collectionPrefix string, opts ...AdminOption) *AdminService {
	s := &AdminService{
		repo:             repo,
		clock:            clk,
		collectionPrefix: collectionPrefix,
		pricePlaces:      -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateEventInput struct {
	Name         string
	LocationName string
	LocationCity string
	EventTime    *time.Time
	CreatedBy    string
}

func (s *AdminService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if in.Name == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}
	if in.CreatedBy == "" {
		return domain.Event{}, domain.ErrAccountRequired
	}
	now := s.clock.Now()
	eventTime := now
	if in.EventTime != nil {
		eventTime = in.EventTime.UTC()
	}

	event := domain.Event{
		ID:             newUUID(),
		Name:           in.Name,
		LocationName:   in.LocationName,
		LocationCity:   in.LocationCity,
		EventTime:      eventTime,
		AtomicCollName: CollNameForUser(in.CreatedBy, s.collectionPrefix),
		CreatedBy:      in.CreatedBy,
		CreatedAt:      now,
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *AdminService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}

type CreateCategoryInput struct {
	EventID          string
	Name             string
	Price            decimal.Decimal
	Quantity         int
	AtomicTemplateID *int64
}

// CreateCategory adds a priced tier to an event and provisions its tickets.
func (s *AdminService) CreateCategory(ctx context.Context, in CreateCategoryInput) (domain.Category, error) {
	if in.EventID == "" {
		return domain.Category{}, domain.ErrInvalidID
	}
	if in.Name == "" {
		return domain.Category{}, domain.ErrCategoryNameNeeded
	}
	if in.Quantity <= 0 {
		return domain.Category{}, domain.ErrInvalidQuantity
	}
	if in.Price.IsNegative() {
		return domain.Category{}, domain.ErrInvalidPrice
	}
	if s.pricePlaces >= 0 && !in.Price.Equal(in.Price.Truncate(s.pricePlaces)) {
		return domain.Category{}, fmt.Errorf("%w: at most %d decimals", domain.ErrInvalidPrice, s.pricePlaces)
	}
	if _, err := s.repo.GetEvent(ctx, in.EventID); err != nil {
		return domain.Category{}, err
	}

	category := domain.Category{
		ID:                newUUID(),
		EventID:           in.EventID,
		Name:              in.Name,
		Price:             in.Price,
		InitialQuantity:   in.Quantity,
		RemainingQuantity: in.Quantity,
		AtomicTemplateID:  in.AtomicTemplateID,
	}
	tickets := make([]domain.Ticket, in.Quantity)
	for i := range tickets {
		tickets[i] = domain.Ticket{
			ID:         newUUID(),
			CategoryID: category.ID,
			EventID:    in.EventID,
		}
	}

	if err := s.repo.CreateCategory(ctx, category, tickets); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

func (s *AdminService) ListCategories(ctx context.Context, eventID string) ([]domain.Category, error) {
	if eventID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListCategoriesByEvent(ctx, eventID)
}

// LinkTemplate records the ledger template tickets of the category are
// minted from.
func (s *AdminService) LinkTemplate(ctx context.Context, categoryID string, templateID int64) error {
	if categoryID == "" || templateID <= 0 {
		return domain.ErrInvalidID
	}
	return s.repo.SetCategoryTemplate(ctx, categoryID, templateID)
}
