package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/app"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

// AdminEventService is the minimal interface needed for admin event endpoints.
type AdminEventService interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
}

// AdminCategoryService is the minimal interface needed for admin category endpoints.
type AdminCategoryService interface {
	CreateCategory(ctx context.Context, in app.CreateCategoryInput) (domain.Category, error)
	ListCategories(ctx context.Context, eventID string) ([]domain.Category, error)
	LinkTemplate(ctx context.Context, categoryID string, templateID int64) error
}

// HandleAdminEvents returns an HTTP handler for admin event creation/listing.
func HandleAdminEvents(svc AdminEventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			events, err := svc.ListEvents(r.Context())
			if err != nil {
				writeServiceError(w, err)
				return
			}
			resp := make([]eventResponse, 0, len(events))
			for _, event := range events {
				resp = append(resp, newEventResponse(event))
			}
			writeJSON(w, http.StatusOK, resp)
			return
		case http.MethodPost:
			var req createEventRequest
			if !decodeJSON(w, r, &req) {
				return
			}

			var eventTime *time.Time
			if req.EventTime != "" {
				parsed, err := time.Parse(time.RFC3339, req.EventTime)
				if err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidEventTime, "invalid event_time format")
					return
				}
				eventTime = &parsed
			}

			createdBy := req.CreatedBy
			if createdBy == "" {
				createdBy, _ = SubjectFromContext(r.Context())
			}

			event, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
				Name:         req.Name,
				LocationName: req.LocationName,
				LocationCity: req.LocationCity,
				EventTime:    eventTime,
				CreatedBy:    createdBy,
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, newEventResponse(event))
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleAdminCategories returns an HTTP handler for the categories of one event.
func HandleAdminCategories(svc AdminCategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, ok := parseAdminEventCategoriesPath(r.URL.Path)
		if !ok {
			writeNoRoute(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet:
			categories, err := svc.ListCategories(r.Context(), eventID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			resp := make([]categoryResponse, 0, len(categories))
			for _, category := range categories {
				resp = append(resp, newCategoryResponse(category))
			}
			writeJSON(w, http.StatusOK, resp)
			return
		case http.MethodPost:
			var req createCategoryRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			price, err := decimal.NewFromString(req.Price)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidPrice, domain.ErrInvalidPrice.Error())
				return
			}

			category, err := svc.CreateCategory(r.Context(), app.CreateCategoryInput{
				EventID:          eventID,
				Name:             req.Name,
				Price:            price,
				Quantity:         req.Quantity,
				AtomicTemplateID: req.AtomicTemplateID,
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, newCategoryResponse(category))
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleLinkTemplate returns an HTTP handler for POST /admin/categories/{id}/template.
func HandleLinkTemplate(svc AdminCategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, ok := parseCategoryTemplatePath(r.URL.Path)
		if !ok {
			writeNoRoute(w, r)
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req linkTemplateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.LinkTemplate(r.Context(), categoryID, req.TemplateID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type createEventRequest struct {
	Name         string `json:"name"`
	LocationName string `json:"location_name"`
	LocationCity string `json:"location_city"`
	EventTime    string `json:"event_time,omitempty"`
	CreatedBy    string `json:"created_by,omitempty"`
}

type eventResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	LocationName   string    `json:"location_name"`
	LocationCity   string    `json:"location_city"`
	EventTime      time.Time `json:"event_time"`
	AtomicCollName string    `json:"atomic_coll_name"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

func newEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:             e.ID,
		Name:           e.Name,
		LocationName:   e.LocationName,
		LocationCity:   e.LocationCity,
		EventTime:      e.EventTime,
		AtomicCollName: e.AtomicCollName,
		CreatedBy:      e.CreatedBy,
		CreatedAt:      e.CreatedAt,
	}
}

type createCategoryRequest struct {
	Name             string `json:"name"`
	Price            string `json:"price" validate:"required,nonnegative_amount"`
	Quantity         int    `json:"quantity"`
	AtomicTemplateID *int64 `json:"atomic_template_id,omitempty" validate:"omitempty,gt=0"`
}

type categoryResponse struct {
	ID                string `json:"id"`
	EventID           string `json:"event_id"`
	Name              string `json:"name"`
	Price             string `json:"price"`
	InitialQuantity   int    `json:"initial_quantity"`
	RemainingQuantity int    `json:"remaining_quantity"`
	AtomicTemplateID  *int64 `json:"atomic_template_id"`
}

func newCategoryResponse(c domain.Category) categoryResponse {
	return categoryResponse{
		ID:                c.ID,
		EventID:           c.EventID,
		Name:              c.Name,
		Price:             c.Price.String(),
		InitialQuantity:   c.InitialQuantity,
		RemainingQuantity: c.RemainingQuantity,
		AtomicTemplateID:  c.AtomicTemplateID,
	}
}

type linkTemplateRequest struct {
	TemplateID int64 `json:"template_id"`
}

func parseAdminEventCategoriesPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 {
		return "", false
	}
	if parts[0] != "admin" || parts[1] != "events" || parts[3] != "categories" {
		return "", false
	}
	if parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

func parseCategoryTemplatePath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 {
		return "", false
	}
	if parts[0] != "admin" || parts[1] != "categories" || parts[3] != "template" {
		return "", false
	}
	if parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
