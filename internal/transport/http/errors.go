package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

const (
	codeMethodNotAllowed      = "method_not_allowed"
	codeNotFound              = "not_found"
	codeInvalidRequestBody    = "invalid_request_body"
	codeMissingRequiredField  = "missing_required_field"
	codeInvalidEventTime      = "invalid_event_time"
	codeInvalidID             = "invalid_id"
	codeEventNameRequired     = "event_name_required"
	codeCategoryNameRequired  = "category_name_required"
	codeAccountRequired       = "account_required"
	codeTicketsRequired       = "tickets_required"
	codeInvalidQuantity       = "invalid_quantity"
	codeInvalidPrice          = "invalid_price"
	codeEventNotFound         = "event_not_found"
	codeCategoryNotFound      = "category_not_found"
	codeTicketNotFound        = "ticket_not_found"
	codeCategoryExists        = "category_already_exists"
	codeNeverInitiated        = "never_initiated"
	codeExpired               = "expired"
	codeIdentityMismatch      = "identity_mismatch"
	codeContentMismatch       = "content_mismatch"
	codeMalformedTransaction  = "malformed_transaction"
	codeBroadcastFailed       = "broadcast_failed"
	codeCommitIncomplete      = "commit_incomplete"
	codeValidationInProgress  = "validation_in_progress"
	codeInsufficientInventory = "insufficient_inventory"
	codeAssetNotOwned         = "asset_not_owned"
	codeAlreadySigned         = "already_signed"
	codeTicketNotSigned       = "ticket_not_signed"
	codeTicketNotForEvent     = "ticket_not_for_event"
	codeTemplateNotLinked     = "template_not_linked"
	codeUnauthorized          = "unauthorized"
	codeForbidden             = "forbidden"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// serviceErrors maps domain failures to responses. Order matters only for
// errors that wrap another entry.
var serviceErrors = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNeverInitiated, http.StatusNotFound, codeNeverInitiated},
	{domain.ErrExpired, http.StatusGone, codeExpired},
	{domain.ErrIdentityMismatch, http.StatusForbidden, codeIdentityMismatch},
	{domain.ErrContentMismatch, http.StatusUnprocessableEntity, codeContentMismatch},
	{domain.ErrMalformedTransaction, http.StatusBadRequest, codeMalformedTransaction},
	{domain.ErrBroadcastFailed, http.StatusBadGateway, codeBroadcastFailed},
	{domain.ErrCommitIncomplete, http.StatusInternalServerError, codeCommitIncomplete},
	{domain.ErrValidationInProgress, http.StatusConflict, codeValidationInProgress},
	{domain.ErrInsufficientInventory, http.StatusConflict, codeInsufficientInventory},
	{domain.ErrEventNotFound, http.StatusNotFound, codeEventNotFound},
	{domain.ErrCategoryNotFound, http.StatusNotFound, codeCategoryNotFound},
	{domain.ErrTicketNotFound, http.StatusNotFound, codeTicketNotFound},
	{domain.ErrAssetNotOwned, http.StatusForbidden, codeAssetNotOwned},
	{domain.ErrAlreadySigned, http.StatusConflict, codeAlreadySigned},
	{domain.ErrTicketNotSigned, http.StatusConflict, codeTicketNotSigned},
	{domain.ErrTicketNotForEvent, http.StatusConflict, codeTicketNotForEvent},
	{domain.ErrTemplateNotLinked, http.StatusConflict, codeTemplateNotLinked},
	{domain.ErrCategoryExists, http.StatusConflict, codeCategoryExists},
	{domain.ErrEventNameRequired, http.StatusBadRequest, codeEventNameRequired},
	{domain.ErrCategoryNameNeeded, http.StatusBadRequest, codeCategoryNameRequired},
	{domain.ErrInvalidQuantity, http.StatusBadRequest, codeInvalidQuantity},
	{domain.ErrInvalidPrice, http.StatusBadRequest, codeInvalidPrice},
	{domain.ErrAccountRequired, http.StatusBadRequest, codeAccountRequired},
	{domain.ErrNoTickets, http.StatusBadRequest, codeTicketsRequired},
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
}

// writeServiceError answers with the sentinel's own message so wrapped
// details stay in the logs.
func writeServiceError(w http.ResponseWriter, err error) {
	for _, e := range serviceErrors {
		if errors.Is(err, e.err) {
			writeError(w, e.status, e.code, e.err.Error())
			return
		}
	}
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
