package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

const eventColumns = `id, name, location_name, location_city, event_time, atomic_coll_name, created_by, created_at`

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(&e.ID, &e.Name, &e.LocationName, &e.LocationCity, &e.EventTime, &e.AtomicCollName, &e.CreatedBy, &e.CreatedAt)
	return e, err
}

func getEvent(ctx context.Context, db dbtx, id string) (domain.Event, error) {
	e, err := scanEvent(db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// Prices travel as text so NUMERIC keeps its exact scale.
const categoryColumns = `id, event_id, name, price::text, initial_quantity, remaining_quantity, atomic_template_id`

func scanCategory(row pgx.Row) (domain.Category, error) {
	var (
		c     domain.Category
		price string
	)
	if err := row.Scan(&c.ID, &c.EventID, &c.Name, &price, &c.InitialQuantity, &c.RemainingQuantity, &c.AtomicTemplateID); err != nil {
		return domain.Category{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Category{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	c.Price = p
	return c, nil
}

const ticketColumns = `id, category_id, event_id, is_sold, reserved_until, asset_id, owner_account`

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var t domain.Ticket
	err := row.Scan(&t.ID, &t.CategoryID, &t.EventID, &t.IsSold, &t.ReservedUntil, &t.AssetID, &t.OwnerAccount)
	return t, err
}

func collectTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()
	var tickets []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate tickets: %w", rows.Err())
	}
	return tickets, nil
}
