package orders

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// DefaultAsyncConcurrency: лимит одновременно выполняемых асинхронных вызовов.
const DefaultAsyncConcurrency = 64

// Future: результат асинхронной операции.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done закрывается, когда результат готов.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await ждёт результат или отмену ctx.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AsyncService выполняет операции Service в отдельных горутинах.
// Число одновременно выполняемых операций ограничено семафором.
type AsyncService struct {
	svc *Service
	sem *semaphore.Weighted
}

// NewAsyncService создаёт асинхронную обёртку над svc.
func NewAsyncService(svc *Service, concurrency int) *AsyncService {
	if concurrency <= 0 {
		concurrency = DefaultAsyncConcurrency
	}
	return &AsyncService{
		svc: svc,
		sem: semaphore.NewWeighted(int64(concurrency)),
	}
}

func submit[T any](ctx context.Context, sem *semaphore.Weighted, fn func(context.Context) (T, error)) *Future[T] {
	future := newFuture[T]()
	go func() {
		if err := sem.Acquire(ctx, 1); err != nil {
			var zero T
			future.complete(zero, err)
			return
		}
		defer sem.Release(1)
		future.complete(runRecovered(ctx, fn))
	}()
	return future
}

// runRecovered превращает панику fn в ошибку: горутина submit не должна ронять процесс.
func runRecovered[T any](ctx context.Context, fn func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value, err = zero, fmt.Errorf("async operation panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// CreateOrder: асинхронный вариант Service.CreateOrder.
func (a *AsyncService) CreateOrder(ctx context.Context, in domain.NewOrderInput) *Future[*domain.Order] {
	return submit(ctx, a.sem, func(ctx context.Context) (*domain.Order, error) {
		return a.svc.CreateOrder(ctx, in)
	})
}

// GetOrder: асинхронный вариант Service.GetOrder.
func (a *AsyncService) GetOrder(ctx context.Context, id int64) *Future[*domain.Order] {
	return submit(ctx, a.sem, func(ctx context.Context) (*domain.Order, error) {
		return a.svc.GetOrder(ctx, id)
	})
}

// ListOrders: асинхронный вариант Service.ListOrders.
func (a *AsyncService) ListOrders(ctx context.Context, q ListOrdersQuery) *Future[domain.Page[*domain.Order]] {
	return submit(ctx, a.sem, func(ctx context.Context) (domain.Page[*domain.Order], error) {
		return a.svc.ListOrders(ctx, q)
	})
}

// ListOrdersByCustomer: асинхронный вариант Service.ListOrdersByCustomer.
func (a *AsyncService) ListOrdersByCustomer(ctx context.Context, customerName string, page, size int) *Future[domain.Page[*domain.Order]] {
	return submit(ctx, a.sem, func(ctx context.Context) (domain.Page[*domain.Order], error) {
		return a.svc.ListOrdersByCustomer(ctx, customerName, page, size)
	})
}

// ListSpendingPerCustomer: асинхронный вариант Service.ListSpendingPerCustomer.
func (a *AsyncService) ListSpendingPerCustomer(ctx context.Context, page, size int) *Future[domain.Page[domain.CustomerSpending]] {
	return submit(ctx, a.sem, func(ctx context.Context) (domain.Page[domain.CustomerSpending], error) {
		return a.svc.ListSpendingPerCustomer(ctx, page, size)
	})
}

// DeleteOrder: асинхронный вариант Service.DeleteOrder.
func (a *AsyncService) DeleteOrder(ctx context.Context, id int64) *Future[struct{}] {
	return submit(ctx, a.sem, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.svc.DeleteOrder(ctx, id)
	})
}

// Awaiting возвращает Operations, которые ждут Future в контексте вызова.
// Так асинхронный вариант подключается к тем же транспортам, что и Service.
func (a *AsyncService) Awaiting() Operations {
	return awaiting{async: a}
}

type awaiting struct {
	async *AsyncService
}

func (w awaiting) CreateOrder(ctx context.Context, in domain.NewOrderInput) (*domain.Order, error) {
	return w.async.CreateOrder(ctx, in).Await(ctx)
}

func (w awaiting) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return w.async.GetOrder(ctx, id).Await(ctx)
}

func (w awaiting) ListOrders(ctx context.Context, q ListOrdersQuery) (domain.Page[*domain.Order], error) {
	return w.async.ListOrders(ctx, q).Await(ctx)
}

func (w awaiting) ListOrdersByCustomer(ctx context.Context, customerName string, page, size int) (domain.Page[*domain.Order], error) {
	return w.async.ListOrdersByCustomer(ctx, customerName, page, size).Await(ctx)
}

func (w awaiting) ListSpendingPerCustomer(ctx context.Context, page, size int) (domain.Page[domain.CustomerSpending], error) {
	return w.async.ListSpendingPerCustomer(ctx, page, size).Await(ctx)
}

func (w awaiting) DeleteOrder(ctx context.Context, id int64) error {
	_, err := w.async.DeleteOrder(ctx, id).Await(ctx)
	return err
}
