package orders_test

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
)

func awaitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestAsyncService_MatchesBlockingResults(t *testing.T) {
	svc := newService(t, memory.NewOrderRepository())
	async := orders.NewAsyncService(svc, 4)
	ctx := awaitCtx(t)

	created, err := async.CreateOrder(ctx, domain.NewOrderInput{
		CustomerName: "John Doe",
		Items:        []domain.NewItemInput{item("Widget", 2, "75.00")},
	}).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "150.00", created.TotalAmount.StringFixed(2))

	got, err := async.GetOrder(ctx, created.ID).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	page, err := async.ListOrders(ctx, orders.ListOrdersQuery{}).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	byCustomer, err := async.ListOrdersByCustomer(ctx, "John Doe", 1, 10).Await(ctx)
	require.NoError(t, err)
	assert.Len(t, byCustomer.Items, 1)

	spending, err := async.ListSpendingPerCustomer(ctx, 1, 10).Await(ctx)
	require.NoError(t, err)
	require.Len(t, spending.Items, 1)
	assert.Equal(t, "150.00", spending.Items[0].TotalSpending.StringFixed(2))

	_, err = async.DeleteOrder(ctx, created.ID).Await(ctx)
	require.NoError(t, err)

	_, err = async.DeleteOrder(ctx, created.ID).Await(ctx)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestAsyncService_ValidationError(t *testing.T) {
	async := orders.NewAsyncService(newService(t, memory.NewOrderRepository()), 0)
	ctx := awaitCtx(t)

	_, err := async.CreateOrder(ctx, domain.NewOrderInput{CustomerName: "J"}).Await(ctx)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestAsyncService_BoundsConcurrency(t *testing.T) {
	repo := &blockingRepo{
		OrderRepository: memory.NewOrderRepository(),
		release:         make(chan struct{}),
	}
	async := orders.NewAsyncService(newService(t, repo), 2)
	ctx := awaitCtx(t)

	futures := make([]*orders.Future[*domain.Order], 0, 6)
	for i := 0; i < 6; i++ {
		futures = append(futures, async.GetOrder(ctx, int64(i+1)))
	}

	require.Eventually(t, func() bool { return repo.inFlight.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), repo.maxInFlight.Load())

	close(repo.release)
	for _, f := range futures {
		_, err := f.Await(ctx)
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	}
	assert.Equal(t, int32(2), repo.maxInFlight.Load())
}

func TestFuture_AwaitHonoursContext(t *testing.T) {
	repo := &blockingRepo{
		OrderRepository: memory.NewOrderRepository(),
		release:         make(chan struct{}),
	}
	defer close(repo.release)
	async := orders.NewAsyncService(newService(t, repo), 1)

	future := async.GetOrder(context.Background(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := future.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-future.Done():
		t.Fatal("future must still be pending")
	default:
	}
}

// blockingRepo держит Find до закрытия release и считает параллельные вызовы.
type blockingRepo struct {
	domain.OrderRepository
	release     chan struct{}
	mu          sync.Mutex
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (r *blockingRepo) Find(ctx context.Context, id int64) (*domain.Order, error) {
	current := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)

	r.mu.Lock()
	if current > r.maxInFlight.Load() {
		r.maxInFlight.Store(current)
	}
	r.mu.Unlock()

	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.OrderRepository.Find(ctx, id)
}

func TestAsyncService_HugePageIndexIsEmpty(t *testing.T) {
	svc := newService(t, memory.NewOrderRepository())
	createOrder(t, svc, "John Doe", time.Time{}, item("Widget", 1, "10.00"))
	reactive := orders.NewAsyncService(svc, 2).Awaiting()
	ctx := awaitCtx(t)

	spending, err := reactive.ListSpendingPerCustomer(ctx, math.MaxInt, 20)
	require.NoError(t, err)
	assert.Empty(t, spending.Items)
	assert.Equal(t, int64(1), spending.Total)

	list, err := reactive.ListOrders(ctx, orders.ListOrdersQuery{Page: math.MaxInt, Size: 20})
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	byCustomer, err := reactive.ListOrdersByCustomer(ctx, "John Doe", math.MaxInt, 20)
	require.NoError(t, err)
	assert.Empty(t, byCustomer.Items)
}

type panickingRepo struct {
	domain.OrderRepository
}

func (panickingRepo) SpendingPerCustomer(context.Context) ([]domain.CustomerSpending, error) {
	panic("boom")
}

func TestAsyncService_PanicBecomesError(t *testing.T) {
	svc := newService(t, panickingRepo{OrderRepository: memory.NewOrderRepository()})
	ctx := awaitCtx(t)

	_, err := orders.NewAsyncService(svc, 1).ListSpendingPerCustomer(ctx, 1, 20).Await(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
