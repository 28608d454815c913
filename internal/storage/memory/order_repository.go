package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// orderRepositoryInMemory: простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu         sync.RWMutex
	items      map[int64]*domain.Order
	nextID     int64
	nextItemID int64
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[int64]*domain.Order),
	}
}

// Persist сохраняет копию заказа и назначает ID заказу и позициям.
func (r *orderRepositoryInMemory) Persist(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	order.ID = r.nextID
	for _, item := range order.Items {
		r.nextItemID++
		item.ID = r.nextItemID
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = order.Clone()
	return nil
}

// Find возвращает копию заказа или ErrOrderNotFound.
func (r *orderRepositoryInMemory) Find(ctx context.Context, id int64) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order.Clone(), nil
}

// Page сортирует подходящие заказы и возвращает запрошенный срез.
func (r *orderRepositoryInMemory) Page(ctx context.Context, filter domain.OrderFilter, s domain.Sort, req domain.PageRequest) ([]*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matched := r.filtered(filter)
	sort.Slice(matched, func(i, j int) bool {
		return less(matched[i], matched[j], s)
	})

	page := domain.Paginate(matched, req)
	result := make([]*domain.Order, 0, len(page.Items))
	for _, order := range page.Items {
		result = append(result, order.Clone())
	}
	return result, nil
}

// Count считает заказы под фильтр.
func (r *orderRepositoryInMemory) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(r.filtered(filter))), nil
}

// Delete удаляет заказ вместе с позициями.
func (r *orderRepositoryInMemory) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.items, id)
	return nil
}

// SpendingPerCustomer агрегирует траты, перебирая заказы по возрастанию id.
func (r *orderRepositoryInMemory) SpendingPerCustomer(ctx context.Context) ([]domain.CustomerSpending, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	orders := r.filtered(domain.OrderFilter{})
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return domain.AggregateSpending(orders), nil
}

func (r *orderRepositoryInMemory) filtered(filter domain.OrderFilter) []*domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if filter.Matches(order) {
			result = append(result, order)
		}
	}
	return result
}

// less сравнивает заказы по полю сортировки, при равенстве по id в том же направлении.
func less(a, b *domain.Order, s domain.Sort) bool {
	cmp := compare(a, b, s.Field)
	if cmp == 0 {
		cmp = compareInt64(a.ID, b.ID)
	}
	if s.Desc {
		return cmp > 0
	}
	return cmp < 0
}

func compare(a, b *domain.Order, field domain.SortField) int {
	switch field {
	case domain.SortByCustomerName:
		switch {
		case a.CustomerName < b.CustomerName:
			return -1
		case a.CustomerName > b.CustomerName:
			return 1
		}
		return 0
	case domain.SortByOrderDate:
		return a.OrderDate.Compare(b.OrderDate)
	case domain.SortByTotalAmount:
		return a.TotalAmount.Cmp(b.TotalAmount)
	case domain.SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case domain.SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return compareInt64(a.ID, b.ID)
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
