// Package orders содержит бизнес-операции над заказами, общие для всех транспортов.
package orders

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
)

// Названия операций для PersistenceError и сообщений "Failed to <action>".
const (
	ActionCreateOrder  = "create order"
	ActionGetOrder     = "retrieve order"
	ActionListOrders   = "retrieve orders"
	ActionListCustomer = "retrieve orders for customer"
	ActionListSpending = "retrieve customer spending data"
	ActionDeleteOrder  = "delete order"
)

// DefaultDirection: направление сортировки списка, если оно не задано.
const DefaultDirection = "desc"

// ListOrdersQuery: параметры постраничной выборки заказов.
// Page и Size приводятся к допустимым границам как есть: размер по умолчанию
// подставляет транспорт, когда параметр не передан.
type ListOrdersQuery struct {
	Page         int
	Size         int
	Sort         string
	Direction    string
	CustomerName string
	From         time.Time
	To           time.Time
}

// Operations: операции над заказами, которые обслуживают транспорты.
type Operations interface {
	CreateOrder(ctx context.Context, in domain.NewOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context, q ListOrdersQuery) (domain.Page[*domain.Order], error)
	ListOrdersByCustomer(ctx context.Context, customerName string, page, size int) (domain.Page[*domain.Order], error)
	ListSpendingPerCustomer(ctx context.Context, page, size int) (domain.Page[domain.CustomerSpending], error)
	DeleteOrder(ctx context.Context, id int64) error
}

var _ Operations = (*Service)(nil)

// Option настраивает Service.
type Option func(*Service)

// WithOutbox включает запись событий заказа в outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(s *Service) {
		s.outbox = outbox
	}
}

// WithMetrics задаёт метрики сервиса.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service реализует операции над заказами поверх OrderRepository.
type Service struct {
	repo    domain.OrderRepository
	outbox  domain.OutboxRepository
	metrics *metrics.OrderMetrics
	logger  *log.Entry
	now     func() time.Time
}

// NewService создаёт сервис заказов.
func NewService(repo domain.OrderRepository, logger *log.Entry, opts ...Option) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	s := &Service{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder валидирует вход, собирает агрегат и сохраняет его.
func (s *Service) CreateOrder(ctx context.Context, in domain.NewOrderInput) (*domain.Order, error) {
	if err := domain.ValidateNewOrder(in); err != nil {
		s.metrics.RecordValidationFailure()
		s.logger.WithError(err).WithField("customer_name", in.CustomerName).Warn("create order rejected")
		return nil, err
	}

	order := domain.NewOrder(in.CustomerName, in.OrderDate)
	for _, item := range in.Items {
		order.AddItem(domain.NewOrderItem(item.ProductName, *item.Quantity, *item.Price))
	}
	now := s.now()
	order.BeforeCreate(now)

	if err := s.repo.Persist(ctx, order); err != nil {
		s.logger.WithError(err).WithField("customer_name", order.CustomerName).Error("persist order failed")
		return nil, &domain.PersistenceError{Op: ActionCreateOrder, Err: err}
	}

	s.metrics.RecordOrderCreated(order.TotalAmount)
	s.enqueueEvent(ctx, kafka.EventTypeOrderCreated, order, now)
	s.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"customer":     order.CustomerName,
		"items":        len(order.Items),
		"total_amount": order.TotalAmount.StringFixed(2),
	}).Info("order created")

	return order, nil
}

// GetOrder возвращает заказ по id.
func (s *Service) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, s.wrap(ActionGetOrder, err, log.Fields{"order_id": id})
	}
	return order, nil
}

// ListOrders возвращает страницу заказов с сортировкой и фильтрами.
// Номер страницы и размер нормализуются, неизвестное поле сортировки считается ошибкой валидации.
func (s *Service) ListOrders(ctx context.Context, q ListOrdersQuery) (domain.Page[*domain.Order], error) {
	direction := q.Direction
	if direction == "" {
		direction = DefaultDirection
	}
	sort, err := domain.ParseSort(q.Sort, direction)
	if err != nil {
		return domain.Page[*domain.Order]{}, err
	}
	filter := domain.OrderFilter{CustomerName: q.CustomerName, From: q.From, To: q.To}
	if err := filter.Validate(); err != nil {
		return domain.Page[*domain.Order]{}, err
	}

	return s.page(ctx, ActionListOrders, filter, sort, domain.NewPageRequest(q.Page, q.Size))
}

// ListOrdersByCustomer возвращает заказы клиента, новые по дате заказа первыми.
func (s *Service) ListOrdersByCustomer(ctx context.Context, customerName string, page, size int) (domain.Page[*domain.Order], error) {
	filter := domain.OrderFilter{CustomerName: customerName}
	sort := domain.Sort{Field: domain.SortByOrderDate, Desc: true}
	return s.page(ctx, ActionListCustomer, filter, sort, domain.NewPageRequest(page, size))
}

// ListSpendingPerCustomer возвращает страницу сумм трат по клиентам, по убыванию суммы.
func (s *Service) ListSpendingPerCustomer(ctx context.Context, page, size int) (domain.Page[domain.CustomerSpending], error) {
	all, err := s.repo.SpendingPerCustomer(ctx)
	if err != nil {
		return domain.Page[domain.CustomerSpending]{}, s.wrap(ActionListSpending, err, nil)
	}
	return domain.Paginate(all, domain.NewPageRequest(page, size)), nil
}

// DeleteOrder удаляет заказ вместе с позициями.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	order, err := s.repo.Find(ctx, id)
	if err != nil {
		return s.wrap(ActionDeleteOrder, err, log.Fields{"order_id": id})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.wrap(ActionDeleteOrder, err, log.Fields{"order_id": id})
	}

	s.metrics.RecordOrderDeleted()
	s.enqueueEvent(ctx, kafka.EventTypeOrderDeleted, order, s.now())
	s.logger.WithField("order_id", id).Info("order deleted")
	return nil
}

func (s *Service) page(ctx context.Context, action string, filter domain.OrderFilter, sort domain.Sort, req domain.PageRequest) (domain.Page[*domain.Order], error) {
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return domain.Page[*domain.Order]{}, s.wrap(action, err, nil)
	}
	items, err := s.repo.Page(ctx, filter, sort, req)
	if err != nil {
		return domain.Page[*domain.Order]{}, s.wrap(action, err, nil)
	}
	if items == nil {
		items = []*domain.Order{}
	}
	return domain.Page[*domain.Order]{
		Items: items,
		Total: total,
		Index: req.Index,
		Size:  req.Size,
	}, nil
}

// wrap пропускает not found как есть, остальное оборачивает в PersistenceError.
func (s *Service) wrap(action string, err error, fields log.Fields) error {
	entry := s.logger.WithError(err).WithField("action", action)
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	if errors.Is(err, domain.ErrOrderNotFound) {
		entry.Warn("order not found")
		return err
	}
	entry.Error("order operation failed")
	return &domain.PersistenceError{Op: action, Err: err}
}

func (s *Service) enqueueEvent(ctx context.Context, eventType kafka.EventType, order *domain.Order, occurredAt time.Time) {
	if s.outbox == nil {
		return
	}
	msg, err := kafka.NewOrderOutboxMessage(eventType, order, occurredAt)
	if err == nil {
		_, err = s.outbox.Enqueue(ctx, msg)
	}
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue event failed")
	}
}
