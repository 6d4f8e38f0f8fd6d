package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

const buyTicketMemo = "Buying a ticket for an event with ID: %s and ticket category ID: %s on NFTicket platform."

type BuyTicketInput struct {
	Account    string
	CategoryID string
}

// ProposeBuyTicket reserves one ticket of the category and proposes the
// token transfer paying for it. Free categories propose no action at all.
func (s *TransactionService) ProposeBuyTicket(ctx context.Context, in BuyTicketInput) (p Proposal, err error) {
	defer func() { s.Metrics.ObserveProposal(string(domain.KindBuyTicket), outcome(err)) }()

	if in.Account == "" {
		return Proposal{}, domain.ErrAccountRequired
	}
	if in.CategoryID == "" {
		return Proposal{}, domain.ErrInvalidID
	}

	category, err := s.Catalog.GetCategory(ctx, in.CategoryID)
	if err != nil {
		return Proposal{}, err
	}
	if category.RemainingQuantity <= 0 {
		return Proposal{}, domain.ErrInsufficientInventory
	}

	if category.AtomicTemplateID == nil {
		return Proposal{}, domain.ErrTemplateNotLinked
	}

	ticket, err := s.Reservations.Reserve(ctx, category.ID)
	if err != nil {
		return Proposal{}, err
	}

	var actions []domain.Action
	if !category.IsFree() {
		memo := fmt.Sprintf(buyTicketMemo, category.EventID, category.ID)
		actions = append(actions, s.cfg.Token.Transfer(in.Account, s.cfg.PlatformAccount, category.Price, memo))
	}

	proposal, err := s.persistProposal(ctx, in.Account, domain.KindBuyTicket, actions, domain.BuyTicketPayload{
		TicketID:   ticket.ID,
		CategoryID: category.ID,
	})
	if err != nil {
		return Proposal{}, err
	}
	proposal.TicketID = ticket.ID
	return proposal, nil
}

// preflightBuyTicket refuses to broadcast a payment for a ticket that was
// sold to someone else in the meantime.
func (s *TransactionService) preflightBuyTicket(ctx context.Context, p domain.PendingTransaction) error {
	var payload domain.BuyTicketPayload
	if err := json.Unmarshal(p.Payload, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	ticket, err := s.Catalog.GetTicket(ctx, payload.TicketID)
	if err != nil {
		return err
	}
	if soldToOther(ticket, p.OwnerAccount) {
		return fmt.Errorf("%w: ticket %s sold to another account", domain.ErrInsufficientInventory, ticket.ID)
	}
	return nil
}

func soldToOther(t domain.Ticket, buyer string) bool {
	return t.IsSold && (t.OwnerAccount == nil || *t.OwnerAccount != buyer)
}

// commitBuyTicket hands the reserved ticket to the buyer. Every step checks
// its own effect first so a retried validation resumes where it stopped.
func (s *TransactionService) commitBuyTicket(ctx context.Context, p domain.PendingTransaction, actions []domain.Action) (ValidationResult, error) {
	var payload domain.BuyTicketPayload
	if err := json.Unmarshal(p.Payload, &payload); err != nil {
		return ValidationResult{}, fmt.Errorf("decode payload: %w", err)
	}
	buyer := p.OwnerAccount
	log := s.Log.With(zap.String("pending_id", p.ID), zap.String("ticket_id", payload.TicketID))

	category, err := s.Catalog.GetCategory(ctx, payload.CategoryID)
	if err != nil {
		return ValidationResult{}, err
	}
	if err := s.checkPayment(category, buyer, actions); err != nil {
		return ValidationResult{}, err
	}
	event, err := s.Catalog.GetEvent(ctx, category.EventID)
	if err != nil {
		return ValidationResult{}, err
	}
	ticket, err := s.Catalog.GetTicket(ctx, payload.TicketID)
	if err != nil {
		return ValidationResult{}, err
	}
	if soldToOther(ticket, buyer) {
		return ValidationResult{}, fmt.Errorf("ticket %s already sold to another account", ticket.ID)
	}

	assetID, err := s.ensureAsset(ctx, event, category, ticket)
	if err != nil {
		return ValidationResult{}, err
	}

	err = s.Catalog.WithTx(ctx, func(txCtx context.Context) error {
		sold, err := s.Catalog.MarkTicketSold(txCtx, ticket.ID, buyer)
		if err != nil {
			return err
		}
		if !sold {
			return nil
		}
		return s.Catalog.DecrementRemaining(txCtx, category.ID)
	})
	if err != nil {
		return ValidationResult{}, fmt.Errorf("mark ticket sold: %w", err)
	}

	owned, err := s.Ledger.Asset(ctx, buyer, assetID)
	if err != nil {
		return ValidationResult{}, err
	}
	if owned == nil {
		memo := fmt.Sprintf("NFTicket ticket for event %s", event.Name)
		transfer := s.cfg.Atomic.Transfer(s.cfg.PlatformAccount, buyer, []string{assetID}, memo)
		if _, err := s.Platform.Submit(ctx, transfer); err != nil {
			return ValidationResult{}, fmt.Errorf("transfer asset %s: %w", assetID, err)
		}
		log.Info("ticket asset transferred", zap.String("asset_id", assetID), zap.String("buyer", buyer))
	}

	s.publish(ctx, LifecycleEvent{
		Type:                 EventTicketSold,
		PendingTransactionID: p.ID,
		Kind:                 p.Kind,
		Account:              buyer,
		TicketID:             ticket.ID,
		AssetID:              assetID,
	})
	return ValidationResult{TicketID: ticket.ID, AssetID: assetID}, nil
}

var errPaymentMismatch = errors.New("payment does not match ticket price")

// checkPayment re-reads the broadcast transfer against the current price.
func (s *TransactionService) checkPayment(category domain.Category, buyer string, actions []domain.Action) error {
	if category.IsFree() {
		if len(actions) != 0 {
			return fmt.Errorf("%w: free ticket carries actions", errPaymentMismatch)
		}
		return nil
	}
	if len(actions) != 1 {
		return fmt.Errorf("%w: want one transfer, got %d actions", errPaymentMismatch, len(actions))
	}
	data, amount, err := s.cfg.Token.DecodeTransfer(actions[0])
	if err != nil {
		return fmt.Errorf("%w: %v", errPaymentMismatch, err)
	}
	if data.From != buyer || data.To != s.cfg.PlatformAccount || !amount.Equal(s.cfg.Token.Round(category.Price)) {
		return fmt.Errorf("%w: %s from %s to %s", errPaymentMismatch, data.Quantity, data.From, data.To)
	}
	return nil
}

// ensureAsset returns the ticket's asset, minting it to the platform first
// when the ticket has none yet.
func (s *TransactionService) ensureAsset(ctx context.Context, event domain.Event, category domain.Category, ticket domain.Ticket) (string, error) {
	if ticket.AssetID != nil && *ticket.AssetID != "" {
		return *ticket.AssetID, nil
	}
	if category.AtomicTemplateID == nil {
		return "", domain.ErrTemplateNotLinked
	}
	mint := s.cfg.Atomic.MintTicket(s.cfg.PlatformAccount, event.AtomicCollName, *category.AtomicTemplateID, s.cfg.PlatformAccount)
	res, err := s.Platform.Submit(ctx, mint)
	if err != nil {
		return "", fmt.Errorf("mint ticket asset: %w", err)
	}
	assetID, ok := s.cfg.Atomic.MintedAssetID(res)
	if !ok {
		return "", fmt.Errorf("mint transaction %s reported no asset id", res.TransactionID)
	}
	if err := s.Catalog.AttachAsset(ctx, ticket.ID, assetID); err != nil {
		return "", fmt.Errorf("attach asset %s: %w", assetID, err)
	}
	return assetID, nil
}
