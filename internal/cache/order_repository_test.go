package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[key] = append([]byte(nil), value...)
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	value, ok := c.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	return value, nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) GenerateKey(operation, key string) string {
	return "test:" + operation + ":" + key
}

type countingRepo struct {
	domain.OrderRepository
	finds int
}

func (r *countingRepo) Find(ctx context.Context, id int64) (*domain.Order, error) {
	r.finds++
	return r.OrderRepository.Find(ctx, id)
}

func seedOrder(t *testing.T, repo domain.OrderRepository) *domain.Order {
	t.Helper()
	order := domain.NewOrder("John Doe", time.Date(2025, 12, 4, 0, 0, 0, 0, time.UTC))
	order.AddItem(domain.NewOrderItem("Test Product", 2, decimal.RequireFromString("75.00")))
	order.BeforeCreate(time.Date(2025, 12, 4, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Persist(context.Background(), order))
	return order
}

func TestOrderRepository_FindReadsThrough(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{OrderRepository: memory.NewOrderRepository()}
	fc := newFakeCache()
	repo := NewOrderRepository(inner, fc, 0, nil)

	order := seedOrder(t, repo)

	first, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	second, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.finds)
	assert.Equal(t, DefaultTTL, fc.ttls["test:order:1"])

	assert.Equal(t, first.CustomerName, second.CustomerName)
	assert.Equal(t, "150.00", second.TotalAmount.StringFixed(2))
	assert.True(t, second.OrderDate.Equal(first.OrderDate))
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
	require.Len(t, second.Items, 1)
	assert.Equal(t, first.Items[0].ID, second.Items[0].ID)
	assert.Same(t, second, second.Items[0].Order())
}

func TestOrderRepository_NotFoundIsNotCached(t *testing.T) {
	inner := &countingRepo{OrderRepository: memory.NewOrderRepository()}
	fc := newFakeCache()
	repo := NewOrderRepository(inner, fc, time.Minute, nil)

	_, err := repo.Find(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Empty(t, fc.entries)
}

func TestOrderRepository_DeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	repo := NewOrderRepository(memory.NewOrderRepository(), fc, time.Minute, nil)

	order := seedOrder(t, repo)
	_, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, fc.entries, 1)

	require.NoError(t, repo.Delete(ctx, order.ID))
	assert.Empty(t, fc.entries)

	_, err = repo.Find(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, order.ID), domain.ErrOrderNotFound)
}

func TestOrderRepository_DeleteNotFoundStillInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewOrderRepository()
	fc := newFakeCache()
	repo := NewOrderRepository(inner, fc, time.Minute, nil)

	order := seedOrder(t, repo)
	_, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, fc.entries, 1)

	// другой экземпляр удалил заказ мимо кэша
	require.NoError(t, inner.Delete(ctx, order.ID))

	assert.ErrorIs(t, repo.Delete(ctx, order.ID), domain.ErrOrderNotFound)
	assert.Empty(t, fc.entries)

	_, err = repo.Find(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_CacheFailuresAreBypassed(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{OrderRepository: memory.NewOrderRepository()}
	fc := newFakeCache()
	fc.err = errors.New("connection refused")
	repo := NewOrderRepository(inner, fc, time.Minute, nil)

	order := seedOrder(t, repo)

	got, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = repo.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.finds)

	require.NoError(t, repo.Delete(ctx, order.ID))
}

func TestOrderRepository_CorruptedEntryFallsBack(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{OrderRepository: memory.NewOrderRepository()}
	fc := newFakeCache()
	repo := NewOrderRepository(inner, fc, time.Minute, nil)

	order := seedOrder(t, repo)
	fc.entries["test:order:1"] = []byte("{not json")

	got, err := repo.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", got.CustomerName)
	assert.Equal(t, 1, inner.finds)
	assert.NotEqual(t, "{not json", string(fc.entries["test:order:1"]))
}

func TestRedisCache_GenerateKey(t *testing.T) {
	c := NewRedisCache("127.0.0.1:0", "orders")
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, "orders:order:15", c.GenerateKey("order", "15"))
}
