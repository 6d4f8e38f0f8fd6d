package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/chain"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

type SignTicketInput struct {
	Account string
	AssetID string
}

// ProposeSignTicket asks the owner of a ticket asset to sign it, binding the
// ticket to their identity before it can be used at the door.
func (s *TransactionService) ProposeSignTicket(ctx context.Context, in SignTicketInput) (p Proposal, err error) {
	defer func() { s.Metrics.ObserveProposal(string(domain.KindSignTicket), outcome(err)) }()

	if in.Account == "" {
		return Proposal{}, domain.ErrAccountRequired
	}
	if in.AssetID == "" {
		return Proposal{}, domain.ErrInvalidID
	}

	data, err := s.ticketData(ctx, in.Account, in.AssetID)
	if err != nil {
		return Proposal{}, err
	}
	if data.Signed {
		return Proposal{}, domain.ErrAlreadySigned
	}

	payload := domain.SignTicketPayload{AssetID: in.AssetID}
	if ticket, err := s.Catalog.GetTicketByAssetID(ctx, in.AssetID); err == nil {
		payload.TicketID = ticket.ID
	} else if !errors.Is(err, domain.ErrTicketNotFound) {
		return Proposal{}, err
	}

	action, err := domain.NewAction(s.cfg.PlatformContract, "signticket", struct {
		Owner   string `json:"owner"`
		AssetID string `json:"asset_id"`
	}{in.Account, in.AssetID})
	if err != nil {
		return Proposal{}, err
	}

	proposal, err := s.persistProposal(ctx, in.Account, domain.KindSignTicket, []domain.Action{action}, payload)
	if err != nil {
		return Proposal{}, err
	}
	proposal.TicketID = payload.TicketID
	return proposal, nil
}

func (s *TransactionService) commitSignTicket(ctx context.Context, p domain.PendingTransaction) (ValidationResult, error) {
	var payload domain.SignTicketPayload
	if err := json.Unmarshal(p.Payload, &payload); err != nil {
		return ValidationResult{}, fmt.Errorf("decode payload: %w", err)
	}

	_, err := s.updateTicketData(ctx, p.OwnerAccount, payload.AssetID, func(d *domain.TicketMutableData) (bool, error) {
		if d.Signed {
			return false, nil
		}
		d.Signed = true
		return true, nil
	})
	if err != nil {
		return ValidationResult{}, err
	}

	s.publish(ctx, LifecycleEvent{
		Type:                 EventTicketSigned,
		PendingTransactionID: p.ID,
		Kind:                 p.Kind,
		Account:              p.OwnerAccount,
		TicketID:             payload.TicketID,
		AssetID:              payload.AssetID,
	})
	return ValidationResult{TicketID: payload.TicketID, AssetID: payload.AssetID}, nil
}

type UseTicketInput struct {
	EventID string
	AssetID string
	Owner   string
}

// MarkTicketUsed records one more entry on a signed ticket. The platform
// signs this update itself.
func (s *TransactionService) MarkTicketUsed(ctx context.Context, in UseTicketInput) (domain.TicketMutableData, error) {
	if in.AssetID == "" || in.EventID == "" {
		return domain.TicketMutableData{}, domain.ErrInvalidID
	}
	if in.Owner == "" {
		return domain.TicketMutableData{}, domain.ErrAccountRequired
	}

	ticket, err := s.Catalog.GetTicketByAssetID(ctx, in.AssetID)
	if err != nil {
		return domain.TicketMutableData{}, err
	}
	if ticket.EventID != in.EventID {
		return domain.TicketMutableData{}, domain.ErrTicketNotForEvent
	}

	data, err := s.updateTicketData(ctx, in.Owner, in.AssetID, func(d *domain.TicketMutableData) (bool, error) {
		if !d.Signed {
			return false, domain.ErrTicketNotSigned
		}
		if d.Used < 255 {
			d.Used++
		}
		return true, nil
	})
	if err != nil {
		return domain.TicketMutableData{}, err
	}

	s.publish(ctx, LifecycleEvent{
		Type:     EventTicketUsed,
		Account:  in.Owner,
		TicketID: ticket.ID,
		AssetID:  in.AssetID,
	})
	return data, nil
}

func (s *TransactionService) ticketData(ctx context.Context, owner, assetID string) (domain.TicketMutableData, error) {
	row, err := s.Ledger.Asset(ctx, owner, assetID)
	if err != nil {
		return domain.TicketMutableData{}, err
	}
	if row == nil {
		return domain.TicketMutableData{}, domain.ErrAssetNotOwned
	}
	data, err := chain.DecodeTicketMutableData(row.MutableSerializedData)
	if err != nil {
		return domain.TicketMutableData{}, fmt.Errorf("decode asset %s data: %w", assetID, err)
	}
	return data, nil
}

// updateTicketData reads the full mutable data of an asset, applies mutate
// and writes the whole set back. The ledger replaces mutable data wholesale,
// so a partial write would zero the other fields.
func (s *TransactionService) updateTicketData(ctx context.Context, owner, assetID string, mutate func(*domain.TicketMutableData) (bool, error)) (domain.TicketMutableData, error) {
	data, err := s.ticketData(ctx, owner, assetID)
	if err != nil {
		return domain.TicketMutableData{}, err
	}
	changed, err := mutate(&data)
	if err != nil || !changed {
		return data, err
	}
	action := s.cfg.Atomic.SetTicketData(s.cfg.PlatformAccount, owner, assetID, data)
	if _, err := s.Platform.Submit(ctx, action); err != nil {
		return domain.TicketMutableData{}, fmt.Errorf("update asset %s data: %w", assetID, err)
	}
	s.Log.Info("ticket asset data updated",
		zap.String("asset_id", assetID),
		zap.String("account", owner),
		zap.Bool("signed", data.Signed),
		zap.Uint8("used", data.Used),
	)
	return data, nil
}
