package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	orderColumns = "id, customer_name, order_date, total_amount, created_at, updated_at"
	itemColumns  = "id, order_id, product_name, quantity, price"
)

// OrderRepository: реализация domain.OrderRepository поверх database/sql.
type OrderRepository struct {
	db      *sqlx.DB
	dialect Dialect
}

// NewOrderRepository оборачивает подключение в sqlx и создаёт репозиторий.
func NewOrderRepository(db *sql.DB, dialect Dialect) *OrderRepository {
	return &OrderRepository{
		db:      sqlx.NewDb(db, dialect.DriverName),
		dialect: dialect,
	}
}

func (r *OrderRepository) Persist(ctx context.Context, order *domain.Order) (err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var orderID int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(`
		INSERT INTO orders (customer_name, order_date, total_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`),
		order.CustomerName,
		r.dialect.dateArg(order.OrderDate),
		money(order.TotalAmount),
		r.dialect.timeArg(order.CreatedAt),
		r.dialect.timeArg(order.UpdatedAt),
	).Scan(&orderID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemIDs := make([]int64, len(order.Items))
	for idx, item := range order.Items {
		if err = tx.QueryRowxContext(ctx, tx.Rebind(`
			INSERT INTO order_items (order_id, product_name, quantity, price, sub_total)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id
		`),
			orderID, item.ProductName, item.Quantity, money(item.Price), money(item.SubTotal()),
		).Scan(&itemIDs[idx]); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	// ID проставляются только после успешного commit.
	order.ID = orderID
	for idx, item := range order.Items {
		item.ID = itemIDs[idx]
	}
	return nil
}

func (r *OrderRepository) Find(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var row orderRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+orderColumns+` FROM orders WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	orders := []*domain.Order{row.toDomain()}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders[0], nil
}

func (r *OrderRepository) Page(ctx context.Context, filter domain.OrderFilter, s domain.Sort, req domain.PageRequest) ([]*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where, args := r.where(filter)
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY %s %s, id %s LIMIT ? OFFSET ?`,
		orderColumns, where, r.dialect.sortColumn(s.Field), direction, direction)
	args = append(args, req.Size, req.Offset())

	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select orders page: %w", err)
	}

	orders := make([]*domain.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.toDomain())
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where, args := r.where(filter)
	var count int64
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM orders`+where), args...); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id int64) (err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM order_items WHERE order_id = ?`), id); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM orders WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for delete order: %w", err)
	}
	if affected == 0 {
		err = domain.ErrOrderNotFound
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete order: %w", err)
	}
	return nil
}

func (r *OrderRepository) SpendingPerCustomer(ctx context.Context) ([]domain.CustomerSpending, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if r.dialect.PushDownSpending {
		var rows []spendingRow
		if err := r.db.SelectContext(ctx, &rows, `
			SELECT customer_name, SUM(total_amount) AS total_spending
			FROM orders
			GROUP BY customer_name
			ORDER BY SUM(total_amount) DESC, MIN(id) ASC
		`); err != nil {
			return nil, fmt.Errorf("select spending per customer: %w", err)
		}
		result := make([]domain.CustomerSpending, 0, len(rows))
		for _, row := range rows {
			result = append(result, domain.CustomerSpending{
				CustomerName:  row.CustomerName,
				TotalSpending: row.TotalSpending,
			})
		}
		return result, nil
	}

	rows, err := r.db.QueryxContext(ctx, `SELECT customer_name, total_amount AS total_spending FROM orders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select order totals: %w", err)
	}
	defer rows.Close()

	tally := domain.NewSpendingTally()
	for rows.Next() {
		var row spendingRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan order total: %w", err)
		}
		tally.Add(row.CustomerName, row.TotalSpending)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order totals: %w", err)
	}
	return tally.Result(), nil
}

func (r *OrderRepository) where(filter domain.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.CustomerName != "" {
		conds = append(conds, "customer_name = ?")
		args = append(args, filter.CustomerName)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "order_date >= ?")
		args = append(args, r.dialect.dateArg(domain.DateOf(filter.From)))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "order_date <= ?")
		args = append(args, r.dialect.dateArg(domain.DateOf(filter.To)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *OrderRepository) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	query, args, err := sqlx.In(`SELECT `+itemColumns+` FROM order_items WHERE order_id IN (?) ORDER BY order_id, id`, ids)
	if err != nil {
		return fmt.Errorf("build load items query: %w", err)
	}

	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("select order items: %w", err)
	}

	grouped := make(map[int64][]*domain.OrderItem, len(orders))
	for _, row := range rows {
		grouped[row.OrderID] = append(grouped[row.OrderID], row.toDomain())
	}
	for id, o := range byID {
		o.AttachItems(grouped[id])
	}
	return nil
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
