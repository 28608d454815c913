package sqlrepo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

var timeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// timeValue сканирует time.Time из нативного значения драйвера или из TEXT.
type timeValue struct {
	time.Time
}

func (v *timeValue) Scan(src any) error {
	switch val := src.(type) {
	case nil:
		v.Time = time.Time{}
		return nil
	case time.Time:
		v.Time = val.UTC()
		return nil
	case string:
		return v.parse(val)
	case []byte:
		return v.parse(string(val))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (v *timeValue) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			v.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", s)
}

type orderRow struct {
	ID           int64           `db:"id"`
	CustomerName string          `db:"customer_name"`
	OrderDate    timeValue       `db:"order_date"`
	TotalAmount  decimal.Decimal `db:"total_amount"`
	CreatedAt    timeValue       `db:"created_at"`
	UpdatedAt    timeValue       `db:"updated_at"`
}

func (r orderRow) toDomain() *domain.Order {
	return &domain.Order{
		ID:           r.ID,
		CustomerName: r.CustomerName,
		OrderDate:    domain.DateOf(r.OrderDate.Time),
		TotalAmount:  r.TotalAmount,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

type itemRow struct {
	ID          int64           `db:"id"`
	OrderID     int64           `db:"order_id"`
	ProductName string          `db:"product_name"`
	Quantity    int             `db:"quantity"`
	Price       decimal.Decimal `db:"price"`
}

func (r itemRow) toDomain() *domain.OrderItem {
	item := domain.NewOrderItem(r.ProductName, r.Quantity, r.Price)
	item.ID = r.ID
	return item
}

type spendingRow struct {
	CustomerName  string          `db:"customer_name"`
	TotalSpending decimal.Decimal `db:"total_spending"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
