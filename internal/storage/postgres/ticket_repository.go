package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

// TicketRepository serves ticket reservation and the catalog reads and
// writes of the commit step.
type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *TicketRepository) ListAvailableTickets(ctx context.Context, categoryID string, now time.Time, limit int) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + `
FROM tickets
WHERE category_id = $1
  AND NOT is_sold
  AND (reserved_until IS NULL OR reserved_until < $2)
ORDER BY created_at ASC, id ASC
LIMIT $3`
	rows, err := conn(ctx, r.pool).Query(ctx, query, categoryID, now, limit)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list available tickets: %w", err)
	}
	return collectTickets(rows)
}

// ReserveTicket takes the hold only when the row is still available, so two
// concurrent reservations of the same ticket cannot both succeed.
func (r *TicketRepository) ReserveTicket(ctx context.Context, ticketID string, now, until time.Time) (bool, error) {
	const stmt = `
UPDATE tickets
SET reserved_until = $3
WHERE id = $1
  AND NOT is_sold
  AND (reserved_until IS NULL OR reserved_until < $2)`
	tag, err := conn(ctx, r.pool).Exec(ctx, stmt, ticketID, now, until)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("reserve ticket: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TicketRepository) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return getEvent(ctx, conn(ctx, r.pool), id)
}

func (r *TicketRepository) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	c, err := scanCategory(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+categoryColumns+` FROM ticket_categories WHERE id = $1`, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Category{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Category{}, domain.ErrCategoryNotFound
		}
		return domain.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *TicketRepository) GetTicket(ctx context.Context, id string) (domain.Ticket, error) {
	return r.getTicket(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
}

func (r *TicketRepository) GetTicketByAssetID(ctx context.Context, assetID string) (domain.Ticket, error) {
	return r.getTicket(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE asset_id = $1`, assetID)
}

func (r *TicketRepository) getTicket(ctx context.Context, query string, arg string) (domain.Ticket, error) {
	t, err := scanTicket(conn(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Ticket{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

// AttachAsset binds a minted asset to the ticket. Binding the same asset
// twice is a no-op; replacing a different asset is refused.
func (r *TicketRepository) AttachAsset(ctx context.Context, ticketID, assetID string) error {
	const stmt = `
UPDATE tickets
SET asset_id = $2
WHERE id = $1 AND (asset_id IS NULL OR asset_id = $2)`
	tag, err := conn(ctx, r.pool).Exec(ctx, stmt, ticketID, assetID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("attach asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetTicket(ctx, ticketID); err != nil {
			return err
		}
		return fmt.Errorf("ticket %s is bound to another asset", ticketID)
	}
	return nil
}

func (r *TicketRepository) MarkTicketSold(ctx context.Context, ticketID, owner string) (bool, error) {
	const stmt = `
UPDATE tickets
SET is_sold = TRUE, owner_account = $2, reserved_until = NULL
WHERE id = $1 AND NOT is_sold`
	tag, err := conn(ctx, r.pool).Exec(ctx, stmt, ticketID, owner)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("mark ticket sold: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TicketRepository) DecrementRemaining(ctx context.Context, categoryID string) error {
	const stmt = `
UPDATE ticket_categories
SET remaining_quantity = remaining_quantity - 1
WHERE id = $1 AND remaining_quantity > 0`
	tag, err := conn(ctx, r.pool).Exec(ctx, stmt, categoryID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("decrement remaining: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientInventory
	}
	return nil
}
