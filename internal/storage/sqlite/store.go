// Package sqlite содержит встраиваемое хранилище заказов на modernc.org/sqlite (без CGO).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Регистрирует драйвер "sqlite".
	_ "modernc.org/sqlite"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/storage/sqlrepo"
)

const defaultConnTimeout = 5 * time.Second

// schema применяется при каждом Open; все выражения идемпотентны.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_name TEXT NOT NULL,
    order_date    TEXT NOT NULL,
    total_amount  TEXT NOT NULL,
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_customer_name ON orders(customer_name, order_date);

CREATE TABLE IF NOT EXISTS order_items (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id     INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    product_name TEXT NOT NULL,
    quantity     INTEGER NOT NULL CHECK (quantity >= 1),
    price        TEXT NOT NULL,
    sub_total    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
`

// Store оборачивает SQL-подключение к SQLite.
type Store struct {
	db *sql.DB
}

// Open открывает (или создаёт) базу по пути path и применяет схему.
// Путь ":memory:" создаёт базу в памяти процесса.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// Один писатель: SQLite сериализует запись, а :memory: живёт в рамках одного соединения.
	db.SetMaxOpenConns(1)

	initCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if _, err := db.ExecContext(initCtx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &Store{db: db}, nil
}

func dsn(path string) string {
	pragmas := "_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?_pragma=journal_mode(WAL)&" + pragmas
}

// DB возвращает raw SQL DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store is not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewOrderRepository создаёт SQLite-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return sqlrepo.NewOrderRepository(store.DB(), sqlrepo.SQLite)
}
