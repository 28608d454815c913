package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
)

func newOrder(customer, date string, prices ...string) *domain.Order {
	orderDate, _ := time.Parse("2006-01-02", date)
	order := domain.NewOrder(customer, orderDate)
	for _, price := range prices {
		order.AddItem(domain.NewOrderItem("item", 1, decimal.RequireFromString(price)))
	}
	order.BeforeCreate(time.Now())
	return order
}

func TestOrderRepository_PersistFind(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder("John Doe", "2025-12-04", "75.00", "1.50")

	if err := repo.Persist(ctx, order); err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	if order.ID != 1 {
		t.Fatalf("expected id 1, got %d", order.ID)
	}
	if order.Items[0].ID == 0 || order.Items[1].ID == 0 || order.Items[0].ID == order.Items[1].ID {
		t.Fatalf("expected distinct item ids, got %d/%d", order.Items[0].ID, order.Items[1].ID)
	}

	stored, err := repo.Find(ctx, order.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored == order {
		t.Fatal("expected a copy, got the same pointer")
	}
	if !stored.TotalAmount.Equal(decimal.RequireFromString("76.50")) {
		t.Fatalf("unexpected total %s", stored.TotalAmount)
	}
	if stored.Items[0].Order() != stored {
		t.Fatal("expected back-reference to the copy")
	}

	stored.CustomerName = "mutated"
	again, _ := repo.Find(ctx, order.ID)
	if again.CustomerName != "John Doe" {
		t.Fatalf("stored order was mutated: %s", again.CustomerName)
	}
}

func TestOrderRepository_FindMissing(t *testing.T) {
	repo := memory.NewOrderRepository()
	if _, err := repo.Find(context.Background(), 42); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_PageAndCount(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	fixtures := []*domain.Order{
		newOrder("Alice", "2025-01-03", "30.00"),
		newOrder("Bob", "2025-01-01", "10.00"),
		newOrder("Alice", "2025-01-02", "10.00"),
		newOrder("Carol", "2025-01-05", "99.99"),
	}
	for _, o := range fixtures {
		if err := repo.Persist(ctx, o); err != nil {
			t.Fatalf("persist failed: %v", err)
		}
	}

	page, err := repo.Page(ctx, domain.OrderFilter{}, domain.Sort{Field: domain.SortByID, Desc: true}, domain.NewPageRequest(1, 3))
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	assertIDs(t, page, 4, 3, 2)

	page, err = repo.Page(ctx, domain.OrderFilter{}, domain.Sort{Field: domain.SortByID, Desc: true}, domain.NewPageRequest(2, 3))
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	assertIDs(t, page, 1)

	// равные суммы упорядочиваются по id в том же направлении
	page, err = repo.Page(ctx, domain.OrderFilter{}, domain.Sort{Field: domain.SortByTotalAmount}, domain.NewPageRequest(1, 10))
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	assertIDs(t, page, 2, 3, 1, 4)

	filter := domain.OrderFilter{CustomerName: "Alice"}
	page, err = repo.Page(ctx, filter, domain.Sort{Field: domain.SortByOrderDate, Desc: true}, domain.NewPageRequest(1, 10))
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	assertIDs(t, page, 1, 3)

	count, err := repo.Count(ctx, filter)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 orders for Alice, got %d", count)
	}

	rangeFilter := domain.OrderFilter{
		From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	count, err = repo.Count(ctx, rangeFilter)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 orders in range, got %d", count)
	}

	page, err = repo.Page(ctx, domain.OrderFilter{}, domain.Sort{}, domain.NewPageRequest(9, 10))
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("expected empty page, got %d", len(page))
	}
}

func TestOrderRepository_SpendingPerCustomer(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	for _, o := range []*domain.Order{
		newOrder("Bob", "2025-01-01", "10.00"),
		newOrder("John Doe", "2025-01-01", "100.00"),
		newOrder("Carol", "2025-01-01", "10.00"),
		newOrder("John Doe", "2025-01-02", "50.50"),
	} {
		if err := repo.Persist(ctx, o); err != nil {
			t.Fatalf("persist failed: %v", err)
		}
	}

	spending, err := repo.SpendingPerCustomer(ctx)
	if err != nil {
		t.Fatalf("spending failed: %v", err)
	}
	if len(spending) != 3 {
		t.Fatalf("expected 3 customers, got %d", len(spending))
	}
	if spending[0].CustomerName != "John Doe" || spending[0].TotalSpending.StringFixed(2) != "150.50" {
		t.Fatalf("unexpected top spender: %+v", spending[0])
	}
	if spending[1].CustomerName != "Bob" || spending[2].CustomerName != "Carol" {
		t.Fatalf("expected ties in first-appearance order, got %s, %s", spending[1].CustomerName, spending[2].CustomerName)
	}
}

func TestOrderRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder("Jane", "2025-01-01", "1.00")
	if err := repo.Persist(ctx, order); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	if err := repo.Delete(ctx, 999); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if count, _ := repo.Count(ctx, domain.OrderFilter{}); count != 1 {
		t.Fatalf("failed delete must not mutate storage, count=%d", count)
	}

	if err := repo.Delete(ctx, order.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Find(ctx, order.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound after delete, got %v", err)
	}
}

func TestOrderRepository_ConcurrentPersist(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Persist(ctx, newOrder("Jane", "2025-01-01", "1.00"))
		}()
	}
	wg.Wait()

	count, err := repo.Count(ctx, domain.OrderFilter{})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 50 {
		t.Fatalf("expected 50 orders, got %d", count)
	}
}

func TestOrderRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := memory.NewOrderRepository()
	if err := repo.Persist(ctx, newOrder("Jane", "2025-01-01", "1.00")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func assertIDs(t *testing.T, orders []*domain.Order, want ...int64) {
	t.Helper()
	if len(orders) != len(want) {
		t.Fatalf("expected %d orders, got %d", len(want), len(orders))
	}
	for i, o := range orders {
		if o.ID != want[i] {
			t.Fatalf("position %d: expected id %d, got %d", i, want[i], o.ID)
		}
	}
}
