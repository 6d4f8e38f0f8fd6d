package domain

import (
	"encoding/json"
	"time"
)

// TransactionKind selects the validation and commit branch of a pending
// transaction.
type TransactionKind string

const (
	KindCreateTicketTemplate TransactionKind = "create_ticket_template"
	KindBuyTicket            TransactionKind = "buy_ticket"
	KindSignTicket           TransactionKind = "sign_ticket"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case KindCreateTicketTemplate, KindBuyTicket, KindSignTicket:
		return true
	}
	return false
}

// PendingTransaction is a proposed action set awaiting the owner's signature.
// It is written once, read once and deleted; never updated in place.
type PendingTransaction struct {
	ID              string
	OwnerAccount    string
	Kind            TransactionKind
	ProposedActions []Action
	Payload         json.RawMessage
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// ExpiredAt reports whether no further action may be taken on the record.
func (p PendingTransaction) ExpiredAt(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// BuyTicketPayload correlates a buy proposal with its reserved ticket.
type BuyTicketPayload struct {
	TicketID   string `json:"ticket_id"`
	CategoryID string `json:"category_id"`
}

// SignTicketPayload correlates a sign proposal with the asset being signed.
type SignTicketPayload struct {
	AssetID  string `json:"asset_id"`
	TicketID string `json:"ticket_id,omitempty"`
}

// SignedProposal is what the client sends back after signing.
type SignedProposal struct {
	Signatures            []string
	SerializedTransaction []byte
}
