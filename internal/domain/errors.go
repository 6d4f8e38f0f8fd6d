package domain

import "errors"

// Transaction lifecycle failures. Each one maps to a stable error code at the
// transport layer.
var (
	ErrNeverInitiated        = errors.New("transaction was never initiated")
	ErrExpired               = errors.New("pending transaction expired")
	ErrIdentityMismatch      = errors.New("transaction was not signed by the expected account")
	ErrContentMismatch       = errors.New("signed actions do not match the proposed actions")
	ErrBroadcastFailed       = errors.New("transaction broadcast failed")
	ErrInsufficientInventory = errors.New("no tickets remaining for this category")
	ErrCommitIncomplete      = errors.New("transaction broadcast but commit did not complete")
	ErrValidationInProgress  = errors.New("transaction validation already in progress")
	ErrUnknownKind           = errors.New("unknown transaction kind")
	ErrMalformedTransaction  = errors.New("serialized transaction could not be decoded")
	ErrPendingNotFound       = errors.New("pending transaction not found")
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrCategoryNotFound   = errors.New("ticket category not found")
	ErrCategoryExists     = errors.New("category already exists for this event")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrAssetNotOwned      = errors.New("asset is not owned by account")
	ErrAlreadySigned      = errors.New("ticket already signed")
	ErrTicketNotSigned    = errors.New("ticket is not signed")
	ErrTicketNotForEvent  = errors.New("ticket does not belong to this event")
	ErrTemplateNotLinked  = errors.New("ticket category has no ledger template")
	ErrEventNameRequired  = errors.New("event name required")
	ErrCategoryNameNeeded = errors.New("category name required")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrAccountRequired    = errors.New("account name required")
	ErrNoTickets          = errors.New("at least one ticket type required")
	ErrInvalidID          = errors.New("invalid id")
)
