package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// DefaultTTL: время жизни снимка заказа по умолчанию.
const DefaultTTL = 5 * time.Minute

const findOperation = "order"

// OrderRepository оборачивает репозиторий заказов read-through кэшем для Find.
// Ошибки кэша логируются и не влияют на результат.
type OrderRepository struct {
	domain.OrderRepository

	cache  Cache
	ttl    time.Duration
	logger *log.Entry
}

// NewOrderRepository создаёт кэширующий декоратор. ttl <= 0 заменяется на DefaultTTL.
func NewOrderRepository(inner domain.OrderRepository, cache Cache, ttl time.Duration, logger *log.Entry) *OrderRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.WithField("component", "order-cache")
	}
	return &OrderRepository{
		OrderRepository: inner,
		cache:           cache,
		ttl:             ttl,
		logger:          logger,
	}
}

var _ domain.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) Find(ctx context.Context, id int64) (*domain.Order, error) {
	key := r.key(id)

	raw, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		order, decodeErr := decodeOrder(raw)
		if decodeErr == nil {
			return order, nil
		}
		r.logger.WithError(decodeErr).WithField("key", key).Warn("drop corrupted cache entry")
	case !errors.Is(err, ErrMiss):
		r.logger.WithError(err).WithField("key", key).Warn("cache read failed")
	}

	order, err := r.OrderRepository.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	raw, err = encodeOrder(order)
	if err != nil {
		r.logger.WithError(err).WithField("order_id", id).Warn("encode order snapshot")
		return order, nil
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return order, nil
}

// Delete сбрасывает ключ при любом исходе удаления: запись могла остаться
// от заказа, который уже удалил другой экземпляр сервиса.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	err := r.OrderRepository.Delete(ctx, id)
	if cerr := r.cache.Delete(ctx, r.key(id)); cerr != nil {
		r.logger.WithError(cerr).WithField("order_id", id).Warn("cache invalidation failed")
	}
	return err
}

func (r *OrderRepository) key(id int64) string {
	return r.cache.GenerateKey(findOperation, strconv.FormatInt(id, 10))
}

type orderSnapshot struct {
	ID           int64          `json:"id"`
	CustomerName string         `json:"customer_name"`
	OrderDate    time.Time      `json:"order_date"`
	Items        []itemSnapshot `json:"items"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type itemSnapshot struct {
	ID          int64           `json:"id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func encodeOrder(order *domain.Order) ([]byte, error) {
	snap := orderSnapshot{
		ID:           order.ID,
		CustomerName: order.CustomerName,
		OrderDate:    order.OrderDate,
		Items:        make([]itemSnapshot, 0, len(order.Items)),
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
	for _, item := range order.Items {
		snap.Items = append(snap.Items, itemSnapshot{
			ID:          item.ID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	return json.Marshal(snap)
}

// decodeOrder восстанавливает агрегат: позиции заново привязываются к заказу, сумма пересчитывается.
func decodeOrder(raw []byte) (*domain.Order, error) {
	var snap orderSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	order := domain.NewOrder(snap.CustomerName, snap.OrderDate)
	order.ID = snap.ID
	for _, s := range snap.Items {
		item := domain.NewOrderItem(s.ProductName, s.Quantity, s.Price)
		item.ID = s.ID
		order.AddItem(item)
	}
	order.CreatedAt = snap.CreatedAt
	order.UpdatedAt = snap.UpdatedAt
	return order, nil
}
