package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/app"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

type stubAdminService struct {
	events     []domain.Event
	categories []domain.Category
	err        error
	event      app.CreateEventInput
	category   app.CreateCategoryInput
	linked     int64
}

func (s *stubAdminService) CreateEvent(_ context.Context, in app.CreateEventInput) (domain.Event, error) {
	s.event = in
	if s.err != nil {
		return domain.Event{}, s.err
	}
	return domain.Event{ID: "event-1", Name: in.Name, CreatedBy: in.CreatedBy, AtomicCollName: "nftikorganiz"}, nil
}

func (s *stubAdminService) ListEvents(context.Context) ([]domain.Event, error) {
	return s.events, s.err
}

func (s *stubAdminService) CreateCategory(_ context.Context, in app.CreateCategoryInput) (domain.Category, error) {
	s.category = in
	if s.err != nil {
		return domain.Category{}, s.err
	}
	return domain.Category{
		ID:                "cat-1",
		EventID:           in.EventID,
		Name:              in.Name,
		Price:             in.Price,
		InitialQuantity:   in.Quantity,
		RemainingQuantity: in.Quantity,
	}, nil
}

func (s *stubAdminService) ListCategories(context.Context, string) ([]domain.Category, error) {
	return s.categories, s.err
}

func (s *stubAdminService) LinkTemplate(_ context.Context, _ string, templateID int64) error {
	s.linked = templateID
	return s.err
}

func TestHandleAdminEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		method         string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "create",
			method:         http.MethodPost,
			body:           `{"name":"Show","location_name":"Hall","event_time":"2025-03-01T20:00:00Z","created_by":"organizer1"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"atomic_coll_name":"nftikorganiz"`,
		},
		{
			name:           "invalid event time",
			method:         http.MethodPost,
			body:           `{"name":"Show","event_time":"tomorrow"}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidEventTime,
		},
		{
			name:           "name required",
			method:         http.MethodPost,
			body:           `{"name":""}`,
			serviceErr:     domain.ErrEventNameRequired,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeEventNameRequired,
		},
		{
			name:           "list",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			expectedSubstr: `"id":"event-9"`,
		},
		{
			name:           "method not allowed",
			method:         http.MethodDelete,
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubAdminService{
				events: []domain.Event{{ID: "event-9", Name: "Listed"}},
				err:    tt.serviceErr,
			}
			req := httptest.NewRequest(tt.method, "/admin/events", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleAdminEvents(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleAdminEvents_CreatedByDefaultsToSubject(t *testing.T) {
	t.Parallel()

	svc := &stubAdminService{}
	req := httptest.NewRequest(http.MethodPost, "/admin/events", bytes.NewBufferString(`{"name":"Show"}`))
	req = req.WithContext(context.WithValue(req.Context(), subjectKey{}, "organizer1"))
	rec := httptest.NewRecorder()

	HandleAdminEvents(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if svc.event.CreatedBy != "organizer1" {
		t.Fatalf("expected created_by from token subject, got %q", svc.event.CreatedBy)
	}
	if svc.event.EventTime != nil {
		t.Fatalf("expected no event time, got %v", svc.event.EventTime)
	}
}

func TestHandleAdminCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "create",
			method:         http.MethodPost,
			path:           "/admin/events/event-1/categories",
			body:           `{"name":"VIP","price":"12.5","quantity":3}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"price":"12.5"`,
		},
		{
			name:           "negative price",
			method:         http.MethodPost,
			path:           "/admin/events/event-1/categories",
			body:           `{"name":"VIP","price":"-1","quantity":3}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidPrice,
		},
		{
			name:           "price not a number",
			method:         http.MethodPost,
			path:           "/admin/events/event-1/categories",
			body:           `{"name":"VIP","price":"ten","quantity":3}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidPrice,
		},
		{
			name:           "invalid quantity",
			method:         http.MethodPost,
			path:           "/admin/events/event-1/categories",
			body:           `{"name":"VIP","price":"1","quantity":0}`,
			serviceErr:     domain.ErrInvalidQuantity,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidQuantity,
		},
		{
			name:           "duplicate",
			method:         http.MethodPost,
			path:           "/admin/events/event-1/categories",
			body:           `{"name":"VIP","price":"1","quantity":1}`,
			serviceErr:     domain.ErrCategoryExists,
			expectedStatus: http.StatusConflict,
			expectedSubstr: codeCategoryExists,
		},
		{
			name:           "event not found",
			method:         http.MethodGet,
			path:           "/admin/events/missing/categories",
			serviceErr:     domain.ErrEventNotFound,
			expectedStatus: http.StatusNotFound,
			expectedSubstr: codeEventNotFound,
		},
		{
			name:           "list",
			method:         http.MethodGet,
			path:           "/admin/events/event-1/categories",
			expectedStatus: http.StatusOK,
			expectedSubstr: `"remaining_quantity":4`,
		},
		{
			name:           "bad path",
			method:         http.MethodGet,
			path:           "/admin/events/event-1/zones",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubAdminService{
				categories: []domain.Category{{ID: "cat-9", Price: decimal.NewFromInt(5), InitialQuantity: 5, RemainingQuantity: 4}},
				err:        tt.serviceErr,
			}
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleAdminCategories(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleLinkTemplate(t *testing.T) {
	t.Parallel()

	svc := &stubAdminService{}
	req := httptest.NewRequest(http.MethodPost, "/admin/categories/cat-1/template", bytes.NewBufferString(`{"template_id":42}`))
	rec := httptest.NewRecorder()

	HandleLinkTemplate(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if svc.linked != 42 {
		t.Fatalf("expected template 42, got %d", svc.linked)
	}

	svc = &stubAdminService{err: domain.ErrCategoryNotFound}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/admin/categories/cat-1/template", bytes.NewBufferString(`{"template_id":42}`))
	HandleLinkTemplate(svc).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}
