package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Persist сохраняет новый заказ вместе с позициями и проставляет им ID.
	Persist(ctx context.Context, order *Order) error
	// Find возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Find(ctx context.Context, id int64) (*Order, error)
	// Page возвращает отсортированный срез заказов, подходящих под фильтр.
	Page(ctx context.Context, filter OrderFilter, sort Sort, req PageRequest) ([]*Order, error)
	// Count считает заказы, подходящие под фильтр, независимо от страницы.
	Count(ctx context.Context, filter OrderFilter) (int64, error)
	// Delete удаляет заказ с позициями или возвращает ErrOrderNotFound.
	Delete(ctx context.Context, id int64) error
	// SpendingPerCustomer возвращает траты всех клиентов по убыванию суммы.
	SpendingPerCustomer(ctx context.Context) ([]CustomerSpending, error)
}
