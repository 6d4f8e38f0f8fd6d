package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/chain"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

type CreateTemplatesInput struct {
	Account string
	Tickets []domain.TemplateData
}

type createTemplatesPayload struct {
	Collection string                `json:"collection"`
	Tickets    []domain.TemplateData `json:"tickets"`
}

// ProposeCreateTemplates proposes one template per ticket type, preceded by
// the collection and schema creation the account still lacks.
func (s *TransactionService) ProposeCreateTemplates(ctx context.Context, in CreateTemplatesInput) (p Proposal, err error) {
	defer func() { s.Metrics.ObserveProposal(string(domain.KindCreateTicketTemplate), outcome(err)) }()

	if in.Account == "" {
		return Proposal{}, domain.ErrAccountRequired
	}
	if len(in.Tickets) == 0 {
		return Proposal{}, domain.ErrNoTickets
	}

	coll := CollNameForUser(in.Account, s.cfg.CollectionPrefix)
	atomic := s.cfg.Atomic
	var actions []domain.Action

	collExists, err := s.Ledger.CollectionExists(ctx, coll)
	if err != nil {
		return Proposal{}, err
	}
	if !collExists {
		actions = append(actions, atomic.CreateCollection(in.Account, coll, []string{in.Account, s.cfg.PlatformAccount}))
	}

	schemaExists := false
	if collExists {
		if schemaExists, err = s.Ledger.SchemaExists(ctx, coll, chain.TicketSchemaName); err != nil {
			return Proposal{}, err
		}
	}
	if !schemaExists {
		actions = append(actions, atomic.CreateSchema(in.Account, coll, chain.TicketSchemaName, chain.TicketSchema))
	}

	for _, t := range in.Tickets {
		actions = append(actions, atomic.CreateTicketTemplate(in.Account, coll, t))
	}

	return s.persistProposal(ctx, in.Account, domain.KindCreateTicketTemplate, actions, createTemplatesPayload{
		Collection: coll,
		Tickets:    in.Tickets,
	})
}

// templateScanMargin bounds how far back the template table is read when
// matching freshly created templates.
const templateScanMargin = 50

func (s *TransactionService) commitCreateTemplates(ctx context.Context, p domain.PendingTransaction) (ValidationResult, error) {
	var payload createTemplatesPayload
	if err := json.Unmarshal(p.Payload, &payload); err != nil {
		return ValidationResult{}, fmt.Errorf("decode payload: %w", err)
	}

	rows, err := s.Ledger.Templates(ctx, payload.Collection, len(payload.Tickets)+templateScanMargin)
	if err != nil {
		return ValidationResult{}, err
	}

	taken := make(map[int64]bool, len(rows))
	templates := make([]domain.Template, 0, len(payload.Tickets))
	ids := make([]int64, 0, len(payload.Tickets))
	for _, want := range payload.Tickets {
		found := false
		for _, row := range rows {
			if taken[row.TemplateID] || row.SchemaName != chain.TicketSchemaName {
				continue
			}
			data, err := chain.DecodeTemplateData(row.ImmutableSerializedData)
			if err != nil || data != want {
				continue
			}
			taken[row.TemplateID] = true
			templates = append(templates, domain.Template{ID: row.TemplateID, Data: data})
			ids = append(ids, row.TemplateID)
			found = true
			break
		}
		if !found {
			return ValidationResult{}, fmt.Errorf("template %q/%q not found on ledger", want.EventName, want.CategoryName)
		}
	}

	s.publish(ctx, LifecycleEvent{
		Type:                 EventTemplatesCreated,
		PendingTransactionID: p.ID,
		Kind:                 p.Kind,
		Account:              p.OwnerAccount,
		TemplateIDs:          ids,
	})
	return ValidationResult{Templates: templates}, nil
}
