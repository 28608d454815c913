// Package sqlrepo содержит общую SQL-реализацию OrderRepository для PostgreSQL и SQLite.
package sqlrepo

import (
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

// Dialect описывает различия между поддерживаемыми СУБД.
type Dialect struct {
	// DriverName передаётся в sqlx для выбора формата плейсхолдеров.
	DriverName string
	// PushDownSpending включает GROUP BY на стороне БД для агрегата трат.
	PushDownSpending bool

	amountExpr string
	dateArg    func(time.Time) any
	timeArg    func(time.Time) any
}

// Postgres: диалект для pgx (плейсхолдеры $n, NUMERIC/DATE/TIMESTAMPTZ).
var Postgres = Dialect{
	DriverName:       "pgx",
	PushDownSpending: true,
	amountExpr:       "total_amount",
	dateArg:          func(t time.Time) any { return t },
	timeArg:          func(t time.Time) any { return t.UTC() },
}

// SQLite: диалект для modernc.org/sqlite. Деньги и даты хранятся как TEXT:
// SUM по REAL потерял бы точность, поэтому агрегат считается в Go.
var SQLite = Dialect{
	DriverName:       "sqlite",
	PushDownSpending: false,
	amountExpr:       "CAST(total_amount AS REAL)",
	dateArg:          func(t time.Time) any { return t.Format("2006-01-02") },
	timeArg:          func(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) },
}

func (d Dialect) sortColumn(field domain.SortField) string {
	switch field {
	case domain.SortByCustomerName:
		return "customer_name"
	case domain.SortByOrderDate:
		return "order_date"
	case domain.SortByTotalAmount:
		return d.amountExpr
	case domain.SortByCreatedAt:
		return "created_at"
	case domain.SortByUpdatedAt:
		return "updated_at"
	default:
		return "id"
	}
}
