package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/testutil"
)

func TestPendingRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewPendingRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	pending := func(id string, expiresAt time.Time) domain.PendingTransaction {
		action, err := domain.NewAction("eosio.token", "transfer", map[string]string{
			"from": "alice", "to": "nfticket", "quantity": "10.0000 SYS", "memo": "m",
		})
		if err != nil {
			t.Fatalf("new action: %v", err)
		}
		return domain.PendingTransaction{
			ID:              id,
			OwnerAccount:    "alice",
			Kind:            domain.KindBuyTicket,
			ProposedActions: []domain.Action{action},
			Payload:         json.RawMessage(`{"ticket_id":"t-1","category_id":"c-1"}`),
			ExpiresAt:       expiresAt,
			CreatedAt:       now,
		}
	}

	t.Run("round trip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		want := pending("00000000-0000-0000-0000-000000000100", now.Add(5*time.Minute))
		if err := repo.CreatePending(ctx, want); err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := repo.GetPending(ctx, want.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.OwnerAccount != "alice" || got.Kind != domain.KindBuyTicket || !got.ExpiresAt.Equal(want.ExpiresAt) {
			t.Fatalf("unexpected record: %+v", got)
		}
		if !domain.SameActions(got.ProposedActions, want.ProposedActions) {
			t.Fatalf("actions changed in storage: %+v", got.ProposedActions)
		}
		var payload domain.BuyTicketPayload
		if err := json.Unmarshal(got.Payload, &payload); err != nil || payload.TicketID != "t-1" {
			t.Fatalf("unexpected payload %s: %v", got.Payload, err)
		}

		if err := repo.DeletePending(ctx, want.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := repo.GetPending(ctx, want.ID); err != domain.ErrPendingNotFound {
			t.Fatalf("expected ErrPendingNotFound, got %v", err)
		}
		if err := repo.DeletePending(ctx, want.ID); err != nil {
			t.Fatalf("second delete: %v", err)
		}
	})

	t.Run("empty action list survives storage", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		free := pending("00000000-0000-0000-0000-000000000101", now.Add(time.Minute))
		free.ProposedActions = nil
		if err := repo.CreatePending(ctx, free); err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := repo.GetPending(ctx, free.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.ProposedActions == nil || len(got.ProposedActions) != 0 {
			t.Fatalf("expected empty action list, got %#v", got.ProposedActions)
		}
	})

	t.Run("unknown and malformed ids", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if _, err := repo.GetPending(ctx, "00000000-0000-0000-0000-000000000102"); err != domain.ErrPendingNotFound {
			t.Fatalf("expected ErrPendingNotFound, got %v", err)
		}
		if _, err := repo.GetPending(ctx, "not-a-uuid"); err != domain.ErrPendingNotFound {
			t.Fatalf("expected ErrPendingNotFound, got %v", err)
		}
	})

	t.Run("DeleteExpiredPending removes only lapsed records", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		lapsed := pending("00000000-0000-0000-0000-000000000103", now)
		live := pending("00000000-0000-0000-0000-000000000104", now.Add(time.Second))
		for _, p := range []domain.PendingTransaction{lapsed, live} {
			if err := repo.CreatePending(ctx, p); err != nil {
				t.Fatalf("create: %v", err)
			}
		}

		n, err := repo.DeleteExpiredPending(ctx, now)
		if err != nil {
			t.Fatalf("delete expired: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 removed, got %d", n)
		}
		if _, err := repo.GetPending(ctx, live.ID); err != nil {
			t.Fatalf("live record removed: %v", err)
		}
	})
}
