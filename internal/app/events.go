package app

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

const (
	EventTemplatesCreated = "templates.created"
	EventTicketSold       = "ticket.sold"
	EventTicketSigned     = "ticket.signed"
	EventTicketUsed       = "ticket.used"
	EventCommitIncomplete = "commit.incomplete"
)

// LifecycleEvent is published after each commit, and for every commit that
// needs manual reconciliation.
type LifecycleEvent struct {
	Type                 string                 `json:"type"`
	PendingTransactionID string                 `json:"pending_transaction_id,omitempty"`
	Kind                 domain.TransactionKind `json:"kind,omitempty"`
	Account              string                 `json:"account"`
	TransactionID        string                 `json:"transaction_id,omitempty"`
	TicketID             string                 `json:"ticket_id,omitempty"`
	AssetID              string                 `json:"asset_id,omitempty"`
	TemplateIDs          []int64                `json:"template_ids,omitempty"`
	Error                string                 `json:"error,omitempty"`
	OccurredAt           time.Time              `json:"occurred_at"`
}

// publish never fails the caller; the event stream is best effort.
func (s *TransactionService) publish(ctx context.Context, ev LifecycleEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.Clock.Now()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		s.Log.Warn("encode lifecycle event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	key := ev.PendingTransactionID
	if key == "" {
		key = ev.AssetID
	}
	if err := s.Events.Publish(context.WithoutCancel(ctx), []byte(key), value); err != nil {
		s.Log.Warn("publish lifecycle event", zap.String("type", ev.Type), zap.Error(err))
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, []byte, []byte) error { return nil }
