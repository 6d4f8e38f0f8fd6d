package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, name, location_name, location_city, event_time, atomic_coll_name, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, stmt,
		event.ID,
		event.Name,
		event.LocationName,
		event.LocationCity,
		event.EventTime,
		event.AtomicCollName,
		event.CreatedBy,
		event.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate events: %w", rows.Err())
	}
	return events, nil
}

func (r *AdminRepository) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return getEvent(ctx, r.pool, id)
}

// CreateCategory stores the category and bulk-loads its tickets in one
// transaction.
func (r *AdminRepository) CreateCategory(ctx context.Context, category domain.Category, tickets []domain.Ticket) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		db := conn(txCtx, r.pool)
		const stmt = `
INSERT INTO ticket_categories (id, event_id, name, price, initial_quantity, remaining_quantity, atomic_template_id)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`
		_, err := db.Exec(txCtx, stmt,
			category.ID,
			category.EventID,
			category.Name,
			category.Price.String(),
			category.InitialQuantity,
			category.RemainingQuantity,
			category.AtomicTemplateID,
		)
		if err != nil {
			switch {
			case isInvalidUUID(err):
				return domain.ErrInvalidID
			case isUniqueViolation(err):
				return domain.ErrCategoryExists
			case isForeignKeyViolation(err):
				return domain.ErrEventNotFound
			case isCheckViolation(err):
				return domain.ErrInvalidQuantity
			}
			return fmt.Errorf("create category: %w", err)
		}

		_, err = db.CopyFrom(txCtx,
			pgx.Identifier{"tickets"},
			[]string{"id", "category_id", "event_id"},
			pgx.CopyFromSlice(len(tickets), func(i int) ([]any, error) {
				return []any{tickets[i].ID, tickets[i].CategoryID, tickets[i].EventID}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("create tickets: %w", err)
		}
		return nil
	})
}

func (r *AdminRepository) ListCategoriesByEvent(ctx context.Context, eventID string) ([]domain.Category, error) {
	if _, err := getEvent(ctx, r.pool, eventID); err != nil {
		return nil, err
	}

	const query = `SELECT ` + categoryColumns + `
FROM ticket_categories
WHERE event_id = $1
ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate categories: %w", rows.Err())
	}
	return categories, nil
}

func (r *AdminRepository) SetCategoryTemplate(ctx context.Context, categoryID string, templateID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE ticket_categories SET atomic_template_id = $2 WHERE id = $1`, categoryID, templateID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set category template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}
