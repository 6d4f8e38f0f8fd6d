package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/testutil"
)

func TestTicketRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewTicketRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("ListAvailableTickets skips sold and held tickets", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, "Concert", "organizer")
		categoryID, ids := testutil.InsertCategory(t, ctx, pool, eventID, "VIP", "10", 4)

		if _, err := pool.Exec(ctx, `UPDATE tickets SET is_sold = TRUE WHERE id = $1`, ids[0]); err != nil {
			t.Fatalf("sell: %v", err)
		}
		if _, err := pool.Exec(ctx, `UPDATE tickets SET reserved_until = $2 WHERE id = $1`, ids[1], now.Add(time.Minute)); err != nil {
			t.Fatalf("hold: %v", err)
		}
		if _, err := pool.Exec(ctx, `UPDATE tickets SET reserved_until = $2 WHERE id = $1`, ids[2], now.Add(-time.Minute)); err != nil {
			t.Fatalf("lapsed hold: %v", err)
		}

		got, err := repo.ListAvailableTickets(ctx, categoryID, now, 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 2 || got[0].ID != ids[2] || got[1].ID != ids[3] {
			t.Fatalf("unexpected tickets: %+v", got)
		}

		got, err = repo.ListAvailableTickets(ctx, categoryID, now, 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected limit to apply, got %d", len(got))
		}
	})

	t.Run("ReserveTicket admits one concurrent winner", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, "Concert", "organizer")
		_, ids := testutil.InsertCategory(t, ctx, pool, eventID, "VIP", "10", 1)

		const workers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.ReserveTicket(ctx, ids[0], now, now.Add(15*time.Minute))
				if err != nil {
					t.Errorf("reserve: %v", err)
					return
				}
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if wins != 1 {
			t.Fatalf("expected exactly one reservation, got %d", wins)
		}

		ok, err := repo.ReserveTicket(ctx, ids[0], now.Add(16*time.Minute), now.Add(30*time.Minute))
		if err != nil {
			t.Fatalf("reserve after lapse: %v", err)
		}
		if !ok {
			t.Fatalf("expected lapsed hold to be retaken")
		}
	})

	t.Run("MarkTicketSold decrements once inside a transaction", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, "Concert", "organizer")
		categoryID, ids := testutil.InsertCategory(t, ctx, pool, eventID, "VIP", "10", 2)

		sell := func() error {
			return repo.WithTx(ctx, func(txCtx context.Context) error {
				sold, err := repo.MarkTicketSold(txCtx, ids[0], "alice")
				if err != nil || !sold {
					return err
				}
				return repo.DecrementRemaining(txCtx, categoryID)
			})
		}
		if err := sell(); err != nil {
			t.Fatalf("first sell: %v", err)
		}
		if err := sell(); err != nil {
			t.Fatalf("second sell: %v", err)
		}

		category, err := repo.GetCategory(ctx, categoryID)
		if err != nil {
			t.Fatalf("get category: %v", err)
		}
		if category.RemainingQuantity != 1 {
			t.Fatalf("expected remaining 1, got %d", category.RemainingQuantity)
		}
		ticket, err := repo.GetTicket(ctx, ids[0])
		if err != nil {
			t.Fatalf("get ticket: %v", err)
		}
		if !ticket.IsSold || ticket.OwnerAccount == nil || *ticket.OwnerAccount != "alice" || ticket.ReservedUntil != nil {
			t.Fatalf("unexpected ticket: %+v", ticket)
		}
	})

	t.Run("failed transaction rolls back the sale", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, "Concert", "organizer")
		_, ids := testutil.InsertCategory(t, ctx, pool, eventID, "VIP", "10", 1)

		boom := errors.New("boom")
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if _, err := repo.MarkTicketSold(txCtx, ids[0], "alice"); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		ticket, err := repo.GetTicket(ctx, ids[0])
		if err != nil {
			t.Fatalf("get ticket: %v", err)
		}
		if ticket.IsSold {
			t.Fatalf("expected sale rolled back")
		}
	})

	t.Run("DecrementRemaining refuses to go negative", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, "Concert", "organizer")
		categoryID, _ := testutil.InsertCategory(t, ctx, pool, eventID, "VIP", "10", 1)

		if err := repo.DecrementRemaining(ctx, categoryID); err != nil {
			t.Fatalf("decrement: %v", err)
		}
		if err := repo.DecrementRemaining(ctx, categoryID); err != domain.ErrInsufficientInventory {
			t.Fatalf("expected ErrInsufficientInventory, got %v", err)
		}
	})

	t.Run("AttachAsset binds once", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, "Concert", "organizer")
		_, ids := testutil.InsertCategory(t, ctx, pool, eventID, "VIP", "10", 1)

		if err := repo.AttachAsset(ctx, ids[0], "1099511627776"); err != nil {
			t.Fatalf("attach: %v", err)
		}
		if err := repo.AttachAsset(ctx, ids[0], "1099511627776"); err != nil {
			t.Fatalf("re-attach same asset: %v", err)
		}
		if err := repo.AttachAsset(ctx, ids[0], "1099511627777"); err == nil {
			t.Fatalf("expected error when replacing asset")
		}

		ticket, err := repo.GetTicketByAssetID(ctx, "1099511627776")
		if err != nil {
			t.Fatalf("get by asset: %v", err)
		}
		if ticket.ID != ids[0] || ticket.EventID != eventID {
			t.Fatalf("unexpected ticket: %+v", ticket)
		}
		if _, err := repo.GetTicketByAssetID(ctx, "1"); err != domain.ErrTicketNotFound {
			t.Fatalf("expected ErrTicketNotFound, got %v", err)
		}
	})

	t.Run("lookups map missing rows", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		missing := "00000000-0000-0000-0000-000000000001"

		if _, err := repo.GetCategory(ctx, missing); err != domain.ErrCategoryNotFound {
			t.Fatalf("expected ErrCategoryNotFound, got %v", err)
		}
		if _, err := repo.GetTicket(ctx, missing); err != domain.ErrTicketNotFound {
			t.Fatalf("expected ErrTicketNotFound, got %v", err)
		}
		if _, err := repo.GetTicket(ctx, "not-a-uuid"); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})
}
