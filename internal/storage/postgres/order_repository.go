package postgres

import (
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/storage/sqlrepo"
)

const (
	opTimeout = 5 * time.Second
)

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
// Агрегат трат считается в БД через GROUP BY.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return sqlrepo.NewOrderRepository(store.DB(), sqlrepo.Postgres)
}
