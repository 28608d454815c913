package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

func orderEvent(orderID, eventType string) domain.OutboxMessage {
	return domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       []byte(`{"order_id":` + orderID + `}`),
	}
}

func TestOutboxRepository_PostgresDeliveryCycle(t *testing.T) {
	repo := NewOutboxRepository(migratedTestStore(t))
	ctx := context.Background()

	created, err := repo.Enqueue(ctx, orderEvent("1", "order.created"))
	if err != nil {
		t.Fatalf("enqueue created: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated outbox id")
	}

	deleted := orderEvent("1", "order.deleted")
	deleted.ID = "outbox-fixed-id"
	storedDeleted, err := repo.Enqueue(ctx, deleted)
	if err != nil {
		t.Fatalf("enqueue deleted: %v", err)
	}
	if storedDeleted.ID != deleted.ID {
		t.Fatalf("expected id %q to be kept, got %q", deleted.ID, storedDeleted.ID)
	}

	pending, err := repo.PullPending(ctx, 0)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 2 || pending[0].EventType != "order.created" {
		t.Fatalf("expected created then deleted, got %+v", pending)
	}

	if err := repo.MarkSent(ctx, created.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(ctx, storedDeleted.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	pending, err = repo.PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull pending after delivery: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(pending))
	}
	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats after delivery: %+v", stats)
	}
}

func TestOutboxRepository_PostgresUnknownID(t *testing.T) {
	repo := NewOutboxRepository(migratedTestStore(t))
	ctx := context.Background()

	if err := repo.MarkSent(ctx, "missing"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("mark sent: expected ErrOutboxPublish, got %v", err)
	}
	if err := repo.MarkFailed(ctx, "missing"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("mark failed: expected ErrOutboxPublish, got %v", err)
	}
}

func TestOutboxRepository_PostgresBacklogAge(t *testing.T) {
	repo := NewOutboxRepository(migratedTestStore(t))
	ctx := context.Background()

	first, err := repo.Enqueue(ctx, orderEvent("1", "order.created"))
	if err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := repo.Enqueue(ctx, orderEvent("2", "order.created")); err != nil {
		t.Fatalf("enqueue second: %v", err)
	}

	before, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if before.PendingCount != 2 || before.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", before)
	}

	if err := repo.MarkSent(ctx, first.ID); err != nil {
		t.Fatalf("mark sent first: %v", err)
	}
	after, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats after mark: %v", err)
	}
	if after.PendingCount != 1 || !after.OldestPendingAt.After(before.OldestPendingAt) {
		t.Fatalf("oldest pending should move forward: before %+v, after %+v", before, after)
	}
}
