package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

// PendingRepository stores proposed transactions awaiting a signature.
// Records are inserted and deleted, never updated.
type PendingRepository struct {
	pool *pgxpool.Pool
}

func NewPendingRepository(pool *pgxpool.Pool) *PendingRepository {
	return &PendingRepository{pool: pool}
}

func (r *PendingRepository) CreatePending(ctx context.Context, p domain.PendingTransaction) error {
	actions := p.ProposedActions
	if actions == nil {
		actions = []domain.Action{}
	}
	rawActions, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("encode actions: %w", err)
	}
	payload := []byte(p.Payload)
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}

	const stmt = `
INSERT INTO pending_transactions (id, owner_account, kind, actions, payload, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = conn(ctx, r.pool).Exec(ctx, stmt,
		p.ID,
		p.OwnerAccount,
		string(p.Kind),
		rawActions,
		payload,
		p.ExpiresAt,
		p.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isCheckViolation(err) {
			return domain.ErrUnknownKind
		}
		return fmt.Errorf("create pending transaction: %w", err)
	}
	return nil
}

func (r *PendingRepository) GetPending(ctx context.Context, id string) (domain.PendingTransaction, error) {
	const query = `
SELECT id, owner_account, kind, actions, payload, expires_at, created_at
FROM pending_transactions
WHERE id = $1`

	var (
		p          domain.PendingTransaction
		kind       string
		rawActions []byte
		payload    []byte
	)
	err := conn(ctx, r.pool).QueryRow(ctx, query, id).
		Scan(&p.ID, &p.OwnerAccount, &kind, &rawActions, &payload, &p.ExpiresAt, &p.CreatedAt)
	if err != nil {
		// An id that is not a UUID cannot name a stored record.
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.PendingTransaction{}, domain.ErrPendingNotFound
		}
		return domain.PendingTransaction{}, fmt.Errorf("get pending transaction: %w", err)
	}
	if err := json.Unmarshal(rawActions, &p.ProposedActions); err != nil {
		return domain.PendingTransaction{}, fmt.Errorf("decode actions: %w", err)
	}
	p.Kind = domain.TransactionKind(kind)
	p.Payload = json.RawMessage(payload)
	return p, nil
}

func (r *PendingRepository) DeletePending(ctx context.Context, id string) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM pending_transactions WHERE id = $1`, id)
	if err != nil {
		if isInvalidUUID(err) {
			return nil
		}
		return fmt.Errorf("delete pending transaction: %w", err)
	}
	return nil
}

func (r *PendingRepository) DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM pending_transactions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired pending transactions: %w", err)
	}
	return tag.RowsAffected(), nil
}
