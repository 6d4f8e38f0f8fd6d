package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/app"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/chain"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

// TransactionProposer builds the phase 1 proposals clients sign.
type TransactionProposer interface {
	ProposeCreateTemplates(ctx context.Context, in app.CreateTemplatesInput) (app.Proposal, error)
	ProposeBuyTicket(ctx context.Context, in app.BuyTicketInput) (app.Proposal, error)
	ProposeSignTicket(ctx context.Context, in app.SignTicketInput) (app.Proposal, error)
}

// TransactionValidator checks and commits a signed proposal.
type TransactionValidator interface {
	Validate(ctx context.Context, in app.ValidateInput) (app.ValidationResult, error)
}

type PendingCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type TicketUser interface {
	MarkTicketUsed(ctx context.Context, in app.UseTicketInput) (domain.TicketMutableData, error)
}

// HandleCreateTemplates returns an HTTP handler proposing ticket templates.
func HandleCreateTemplates(svc TransactionProposer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createTemplatesRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		tickets := make([]domain.TemplateData, 0, len(req.Tickets))
		for _, t := range req.Tickets {
			tickets = append(tickets, domain.TemplateData{
				EventName:        t.EventName,
				LocationName:     t.LocationName,
				OriginalDateTime: t.OriginalDateTime,
				OriginalPrice:    t.OriginalPrice,
				CategoryName:     t.CategoryName,
			})
		}

		p, err := svc.ProposeCreateTemplates(r.Context(), app.CreateTemplatesInput{
			Account: req.Account,
			Tickets: tickets,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newProposalResponse(p))
	}
}

// HandleBuyTicket returns an HTTP handler reserving a ticket and proposing
// its payment.
func HandleBuyTicket(svc TransactionProposer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req buyTicketRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		p, err := svc.ProposeBuyTicket(r.Context(), app.BuyTicketInput{
			Account:    req.Account,
			CategoryID: req.CategoryID,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newProposalResponse(p))
	}
}

func HandleSignTicket(svc TransactionProposer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req signTicketRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		p, err := svc.ProposeSignTicket(r.Context(), app.SignTicketInput{
			Account: req.Account,
			AssetID: req.AssetID,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newProposalResponse(p))
	}
}

// HandleValidate returns an HTTP handler for POST /transactions/{id}/validate.
func HandleValidate(svc TransactionValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pendingID, ok := parseValidatePath(r.URL.Path)
		if !ok {
			writeNoRoute(w, r)
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req validateRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := svc.Validate(r.Context(), app.ValidateInput{
			PendingTransactionID:  pendingID,
			Signatures:            req.Signatures,
			SerializedTransaction: req.SerializedTransaction,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, validationResponse{
			PendingTransactionID: res.PendingTransactionID,
			Kind:                 string(res.Kind),
			TransactionID:        res.TransactionID,
			Templates:            res.Templates,
			TicketID:             res.TicketID,
			AssetID:              res.AssetID,
		})
	}
}

// HandleCleanup returns an HTTP handler dropping lapsed proposals.
func HandleCleanup(svc PendingCleaner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		n, err := svc.CleanupExpired(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cleanupResponse{Deleted: n})
	}
}

// HandleUseTicket returns an HTTP handler for POST /tickets/{assetId}/use.
func HandleUseTicket(svc TicketUser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID, ok := parseUseTicketPath(r.URL.Path)
		if !ok {
			writeNoRoute(w, r)
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req useTicketRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		data, err := svc.MarkTicketUsed(r.Context(), app.UseTicketInput{
			EventID: req.EventID,
			AssetID: assetID,
			Owner:   req.Owner,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, useTicketResponse{
			AssetID: assetID,
			Signed:  data.Signed,
			Used:    data.Used,
		})
	}
}

type templateRequest struct {
	EventName        string `json:"event_name" validate:"required"`
	LocationName     string `json:"location_name"`
	OriginalDateTime string `json:"original_date_time"`
	OriginalPrice    string `json:"original_price"`
	CategoryName     string `json:"category_name" validate:"required"`
}

type createTemplatesRequest struct {
	Account string            `json:"account" validate:"required"`
	Tickets []templateRequest `json:"tickets" validate:"required,min=1,dive"`
}

type buyTicketRequest struct {
	Account    string `json:"account" validate:"required"`
	CategoryID string `json:"category_id" validate:"required"`
}

type signTicketRequest struct {
	Account string `json:"account" validate:"required"`
	AssetID string `json:"asset_id" validate:"required"`
}

// validateRequest accepts the serialized transaction either as a hex string
// or as the byte array wallets emit.
type validateRequest struct {
	Signatures            []string    `json:"signatures" validate:"required,min=1,dive,required"`
	SerializedTransaction chain.Bytes `json:"serialized_transaction" validate:"required,min=1"`
}

type useTicketRequest struct {
	EventID string `json:"event_id" validate:"required"`
	Owner   string `json:"owner" validate:"required"`
}

type proposalResponse struct {
	PendingTransactionID string          `json:"pending_transaction_id"`
	Kind                 string          `json:"kind"`
	Actions              []domain.Action `json:"actions"`
	ExpiresAt            time.Time       `json:"expires_at"`
	TicketID             string          `json:"ticket_id,omitempty"`
}

func newProposalResponse(p app.Proposal) proposalResponse {
	actions := p.Actions
	if actions == nil {
		actions = []domain.Action{}
	}
	return proposalResponse{
		PendingTransactionID: p.PendingTransactionID,
		Kind:                 string(p.Kind),
		Actions:              actions,
		ExpiresAt:            p.ExpiresAt,
		TicketID:             p.TicketID,
	}
}

type validationResponse struct {
	PendingTransactionID string            `json:"pending_transaction_id"`
	Kind                 string            `json:"kind"`
	TransactionID        string            `json:"transaction_id,omitempty"`
	Templates            []domain.Template `json:"templates,omitempty"`
	TicketID             string            `json:"ticket_id,omitempty"`
	AssetID              string            `json:"asset_id,omitempty"`
}

type cleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

type useTicketResponse struct {
	AssetID string `json:"asset_id"`
	Signed  bool   `json:"signed"`
	Used    uint8  `json:"used"`
}

func parseValidatePath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return "", false
	}
	if parts[0] != "transactions" || parts[2] != "validate" {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func parseUseTicketPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return "", false
	}
	if parts[0] != "tickets" || parts[2] != "use" {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
