package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func persistOrder(t *testing.T, repo domain.OrderRepository, customer, date string, items ...string) *domain.Order {
	t.Helper()
	orderDate, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)

	order := domain.NewOrder(customer, orderDate)
	for _, price := range items {
		order.AddItem(domain.NewOrderItem("Widget", 2, decimal.RequireFromString(price)))
	}
	order.BeforeCreate(time.Date(2025, 12, 4, 10, 30, 15, 0, time.UTC))
	require.NoError(t, repo.Persist(context.Background(), order))
	return order
}

func TestStore_OpenAppliesSchemaTwice(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.Ping(ctx))

	_, err := store.DB().ExecContext(ctx, schema)
	require.NoError(t, err)
}

func TestOrderRepository_PersistAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(openTestStore(t))

	order := persistOrder(t, repo, "John Doe", "2025-12-04", "75.00")
	require.Equal(t, int64(1), order.ID)
	require.NotZero(t, order.Items[0].ID)

	found, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", found.CustomerName)
	assert.Equal(t, "150.00", found.TotalAmount.StringFixed(2))
	assert.Equal(t, time.Date(2025, 12, 4, 0, 0, 0, 0, time.UTC), found.OrderDate)
	assert.Equal(t, time.Date(2025, 12, 4, 10, 30, 15, 0, time.UTC), found.CreatedAt)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "150.00", found.Items[0].SubTotal().StringFixed(2))
	assert.Same(t, found, found.Items[0].Order())

	_, err = repo.Find(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_PageSortAndFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(openTestStore(t))

	persistOrder(t, repo, "Alice", "2025-01-03", "15.00")
	persistOrder(t, repo, "Bob", "2025-01-01", "5.00")
	persistOrder(t, repo, "Alice", "2025-01-02", "100.00")
	persistOrder(t, repo, "Carol", "2025-01-05", "5.00")

	page, err := repo.Page(ctx, domain.OrderFilter{}, domain.Sort{Field: domain.SortByTotalAmount, Desc: true}, domain.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 4, 2}, ids(page))

	page, err = repo.Page(ctx, domain.OrderFilter{}, domain.Sort{Field: domain.SortByID}, domain.NewPageRequest(2, 3))
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids(page))

	filter := domain.OrderFilter{CustomerName: "Alice"}
	page, err = repo.Page(ctx, filter, domain.Sort{Field: domain.SortByOrderDate, Desc: true}, domain.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(page))
	for _, o := range page {
		assert.Len(t, o.Items, 1)
	}

	count, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.Count(ctx, domain.OrderFilter{
		From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	page, err = repo.Page(ctx, domain.OrderFilter{}, domain.Sort{}, domain.NewPageRequest(10, 10))
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestOrderRepository_DeleteCascadesItems(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	repo := NewOrderRepository(store)

	order := persistOrder(t, repo, "Jane", "2025-02-01", "1.00", "2.00")

	assert.ErrorIs(t, repo.Delete(ctx, order.ID+100), domain.ErrOrderNotFound)
	require.NoError(t, repo.Delete(ctx, order.ID))

	var items int
	require.NoError(t, store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items`).Scan(&items))
	assert.Zero(t, items)

	_, err := repo.Find(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_SpendingPerCustomer(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(openTestStore(t))

	persistOrder(t, repo, "Bob", "2025-01-01", "5.00")
	persistOrder(t, repo, "John Doe", "2025-01-01", "50.00")
	persistOrder(t, repo, "John Doe", "2025-01-02", "25.25")
	persistOrder(t, repo, "Carol", "2025-01-02", "5.00")

	spending, err := repo.SpendingPerCustomer(ctx)
	require.NoError(t, err)
	require.Len(t, spending, 3)
	assert.Equal(t, "John Doe", spending[0].CustomerName)
	assert.Equal(t, "150.50", spending[0].TotalSpending.StringFixed(2))
	assert.Equal(t, "Bob", spending[1].CustomerName)
	assert.Equal(t, "Carol", spending[2].CustomerName)
}

func ids(orders []*domain.Order) []int64 {
	out := make([]int64, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}
