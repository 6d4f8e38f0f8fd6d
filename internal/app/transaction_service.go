package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/chain"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/clock"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

type PendingStore interface {
	CreatePending(ctx context.Context, p domain.PendingTransaction) error
	// GetPending returns domain.ErrPendingNotFound for unknown ids.
	GetPending(ctx context.Context, id string) (domain.PendingTransaction, error)
	// DeletePending is a no-op for unknown ids.
	DeletePending(ctx context.Context, id string) error
	DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error)
}

type CatalogRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	GetCategory(ctx context.Context, id string) (domain.Category, error)
	GetTicket(ctx context.Context, id string) (domain.Ticket, error)
	GetTicketByAssetID(ctx context.Context, assetID string) (domain.Ticket, error)
	AttachAsset(ctx context.Context, ticketID, assetID string) error
	// MarkTicketSold flips an unsold ticket to sold. It reports false when
	// the ticket was already sold.
	MarkTicketSold(ctx context.Context, ticketID, owner string) (bool, error)
	DecrementRemaining(ctx context.Context, categoryID string) error
}

type LedgerReader interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
	SchemaExists(ctx context.Context, collection, schema string) (bool, error)
	Templates(ctx context.Context, collection string, limit int) ([]chain.TemplateRow, error)
	Asset(ctx context.Context, owner, assetID string) (*chain.AssetRow, error)
}

type ActionDecoder interface {
	DecodeTransaction(ctx context.Context, packed []byte) (domain.SignedEnvelope, error)
}

type KeyRecoverer interface {
	RecoverPublicKeys(signatures []string, payload []byte) ([]string, error)
}

type OwnershipVerifier interface {
	VerifyOwnership(ctx context.Context, account string, keys []string) bool
}

type Broadcaster interface {
	PushTransaction(ctx context.Context, signed domain.SignedProposal) (chain.PushResult, error)
}

// PlatformSubmitter pushes actions authorized by the platform account.
type PlatformSubmitter interface {
	Submit(ctx context.Context, actions ...domain.Action) (chain.PushResult, error)
}

type Locker interface {
	// TryLock returns ok=false without error when the key is already held.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

type OutcomeRecorder interface {
	ObserveProposal(kind, outcome string)
	ObserveValidation(kind, outcome string)
}

// TransactionDeps are the collaborators of TransactionService. Locker,
// Events and Metrics are optional.
type TransactionDeps struct {
	Pending      PendingStore
	Catalog      CatalogRepository
	Reservations *ReservationService
	Ledger       LedgerReader
	Decoder      ActionDecoder
	Recoverer    KeyRecoverer
	Verifier     OwnershipVerifier
	Broadcaster  Broadcaster
	Platform     PlatformSubmitter
	Locker       Locker
	Events       EventPublisher
	Metrics      OutcomeRecorder
	Clock        clock.Clock
	Log          *zap.Logger
}

type TransactionConfig struct {
	PlatformAccount  string
	PlatformContract string
	CollectionPrefix string
	Atomic           chain.AtomicActions
	Token            chain.Token
	ProposalTTL      time.Duration
	LockTTL          time.Duration
}

const (
	defaultProposalTTL = 5 * time.Minute
	defaultLockTTL     = 30 * time.Second
)

// TransactionService runs the propose / validate-and-commit lifecycle of
// user-signed ledger transactions.
type TransactionService struct {
	TransactionDeps
	cfg TransactionConfig
}

func NewTransactionService(deps TransactionDeps, cfg TransactionConfig) *TransactionService {
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = defaultProposalTTL
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Locker == nil {
		deps.Locker = nopLocker{}
	}
	if deps.Events == nil {
		deps.Events = nopPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	return &TransactionService{TransactionDeps: deps, cfg: cfg}
}

// Proposal is the phase 1 answer: the actions the client must sign.
type Proposal struct {
	PendingTransactionID string
	Kind                 domain.TransactionKind
	Actions              []domain.Action
	ExpiresAt            time.Time
	TicketID             string
}

func (s *TransactionService) persistProposal(ctx context.Context, account string, kind domain.TransactionKind, actions []domain.Action, payload any) (Proposal, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Proposal{}, fmt.Errorf("encode payload: %w", err)
	}
	if actions == nil {
		actions = []domain.Action{}
	}
	now := s.Clock.Now()
	pending := domain.PendingTransaction{
		ID:              newUUID(),
		OwnerAccount:    account,
		Kind:            kind,
		ProposedActions: actions,
		Payload:         raw,
		ExpiresAt:       now.Add(s.cfg.ProposalTTL),
		CreatedAt:       now,
	}
	if err := s.Pending.CreatePending(ctx, pending); err != nil {
		return Proposal{}, fmt.Errorf("store pending transaction: %w", err)
	}
	s.Log.Info("transaction proposed",
		zap.String("pending_id", pending.ID),
		zap.String("kind", string(kind)),
		zap.String("account", account),
		zap.Int("actions", len(actions)),
	)
	return Proposal{
		PendingTransactionID: pending.ID,
		Kind:                 kind,
		Actions:              actions,
		ExpiresAt:            pending.ExpiresAt,
	}, nil
}

type ValidateInput struct {
	PendingTransactionID  string
	Signatures            []string
	SerializedTransaction []byte
}

// ValidationResult describes what a successful commit did.
type ValidationResult struct {
	PendingTransactionID string
	Kind                 domain.TransactionKind
	TransactionID        string
	Templates            []domain.Template
	TicketID             string
	AssetID              string
}

// Validate checks a signed proposal and, when it holds, broadcasts it and
// applies the off-ledger side effects. Checks run in a fixed order: lookup,
// expiry, decode, identity, content (envelope and actions), availability,
// broadcast, commit.
func (s *TransactionService) Validate(ctx context.Context, in ValidateInput) (res ValidationResult, err error) {
	kind := "unknown"
	defer func() { s.Metrics.ObserveValidation(kind, outcome(err)) }()

	if in.PendingTransactionID == "" {
		return ValidationResult{}, domain.ErrNeverInitiated
	}
	unlock, ok, err := s.Locker.TryLock(ctx, "pending:"+in.PendingTransactionID, s.cfg.LockTTL)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("lock pending transaction: %w", err)
	}
	if !ok {
		return ValidationResult{}, domain.ErrValidationInProgress
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.Log.Warn("release pending lock", zap.String("pending_id", in.PendingTransactionID), zap.Error(err))
		}
	}()

	pending, err := s.Pending.GetPending(ctx, in.PendingTransactionID)
	if errors.Is(err, domain.ErrPendingNotFound) {
		return ValidationResult{}, domain.ErrNeverInitiated
	}
	if err != nil {
		return ValidationResult{}, fmt.Errorf("load pending transaction: %w", err)
	}
	kind = string(pending.Kind)
	log := s.Log.With(
		zap.String("pending_id", pending.ID),
		zap.String("kind", kind),
		zap.String("account", pending.OwnerAccount),
	)

	if pending.ExpiredAt(s.Clock.Now()) {
		s.discard(ctx, log, pending.ID)
		return ValidationResult{}, domain.ErrExpired
	}

	envelope, err := s.Decoder.DecodeTransaction(ctx, in.SerializedTransaction)
	if err != nil {
		log.Info("signed transaction not decodable", zap.Error(err))
		return ValidationResult{}, domain.ErrMalformedTransaction
	}

	keys, err := s.Recoverer.RecoverPublicKeys(in.Signatures, in.SerializedTransaction)
	if err != nil || len(keys) == 0 || !s.Verifier.VerifyOwnership(ctx, pending.OwnerAccount, keys) {
		log.Info("identity check failed", zap.Strings("keys", keys), zap.Error(err))
		return ValidationResult{}, domain.ErrIdentityMismatch
	}

	if !envelope.Immediate() {
		log.Warn("signed transaction is delayed or carries extra content",
			zap.Uint32("delay_sec", envelope.DelaySec),
			zap.Int("context_free_actions", len(envelope.ContextFreeActions)),
			zap.Int("extensions", envelope.Extensions),
		)
		s.discard(ctx, log, pending.ID)
		return ValidationResult{}, domain.ErrContentMismatch
	}
	actions := envelope.Actions
	if !domain.SameActions(actions, pending.ProposedActions) {
		log.Warn("signed actions differ from proposal")
		s.discard(ctx, log, pending.ID)
		return ValidationResult{}, domain.ErrContentMismatch
	}

	if err := s.preflight(ctx, pending); err != nil {
		if errors.Is(err, domain.ErrInsufficientInventory) {
			log.Warn("proposal can no longer be honoured", zap.Error(err))
			s.discard(ctx, log, pending.ID)
			return ValidationResult{}, domain.ErrInsufficientInventory
		}
		return ValidationResult{}, fmt.Errorf("check proposal before broadcast: %w", err)
	}

	var txID string
	if len(pending.ProposedActions) > 0 {
		signed := domain.SignedProposal{Signatures: in.Signatures, SerializedTransaction: in.SerializedTransaction}
		pushed, err := s.Broadcaster.PushTransaction(ctx, signed)
		switch {
		case err == nil:
			txID = pushed.TransactionID
		case chain.IsDuplicateTransaction(err):
			txID = chain.TransactionID(in.SerializedTransaction)
			log.Info("transaction already on ledger, resuming commit", zap.String("transaction_id", txID))
		default:
			log.Warn("broadcast failed", zap.Error(err))
			return ValidationResult{}, domain.ErrBroadcastFailed
		}
	}

	res, err = s.commit(ctx, pending, actions)
	if err != nil {
		log.Error("commit incomplete", zap.String("transaction_id", txID), zap.Error(err))
		s.publish(ctx, LifecycleEvent{
			Type:                 EventCommitIncomplete,
			PendingTransactionID: pending.ID,
			Kind:                 pending.Kind,
			Account:              pending.OwnerAccount,
			TransactionID:        txID,
			Error:                err.Error(),
		})
		return ValidationResult{}, fmt.Errorf("%w: %v", domain.ErrCommitIncomplete, err)
	}
	res.PendingTransactionID = pending.ID
	res.Kind = pending.Kind
	res.TransactionID = txID

	s.discard(ctx, log, pending.ID)
	log.Info("transaction committed", zap.String("transaction_id", txID))
	return res, nil
}

// preflight re-checks, before any money moves, the off-ledger state the
// commit will need.
func (s *TransactionService) preflight(ctx context.Context, p domain.PendingTransaction) error {
	if p.Kind == domain.KindBuyTicket {
		return s.preflightBuyTicket(ctx, p)
	}
	return nil
}

func (s *TransactionService) commit(ctx context.Context, p domain.PendingTransaction, actions []domain.Action) (ValidationResult, error) {
	switch p.Kind {
	case domain.KindCreateTicketTemplate:
		return s.commitCreateTemplates(ctx, p)
	case domain.KindBuyTicket:
		return s.commitBuyTicket(ctx, p, actions)
	case domain.KindSignTicket:
		return s.commitSignTicket(ctx, p)
	}
	return ValidationResult{}, domain.ErrUnknownKind
}

func (s *TransactionService) discard(ctx context.Context, log *zap.Logger, id string) {
	if err := s.Pending.DeletePending(context.WithoutCancel(ctx), id); err != nil {
		log.Warn("delete pending transaction", zap.Error(err))
	}
}

// CleanupExpired removes every pending transaction whose expiry has passed.
func (s *TransactionService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.Pending.DeleteExpiredPending(ctx, s.Clock.Now())
	if err != nil {
		return 0, fmt.Errorf("delete expired pending transactions: %w", err)
	}
	s.Log.Info("expired pending transactions removed", zap.Int64("count", n))
	return n, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNeverInitiated):
		return "never_initiated"
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrMalformedTransaction):
		return "malformed"
	case errors.Is(err, domain.ErrIdentityMismatch):
		return "identity_mismatch"
	case errors.Is(err, domain.ErrContentMismatch):
		return "content_mismatch"
	case errors.Is(err, domain.ErrBroadcastFailed):
		return "broadcast_failed"
	case errors.Is(err, domain.ErrCommitIncomplete):
		return "commit_incomplete"
	case errors.Is(err, domain.ErrValidationInProgress):
		return "in_progress"
	case errors.Is(err, domain.ErrInsufficientInventory):
		return "insufficient_inventory"
	}
	return "error"
}

type nopLocker struct{}

func (nopLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

type nopRecorder struct{}

func (nopRecorder) ObserveProposal(string, string)   {}
func (nopRecorder) ObserveValidation(string, string) {}
