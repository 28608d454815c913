package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CustomerSpending: суммарные траты клиента по всем заказам.
type CustomerSpending struct {
	CustomerName  string
	TotalSpending decimal.Decimal
}

// SpendingTally накапливает суммы по клиентам, запоминая порядок первого появления.
type SpendingTally struct {
	index  map[string]int
	totals []CustomerSpending
}

// NewSpendingTally создаёт пустой аккумулятор.
func NewSpendingTally() *SpendingTally {
	return &SpendingTally{index: make(map[string]int)}
}

// Add прибавляет сумму к тратам клиента.
func (t *SpendingTally) Add(customerName string, amount decimal.Decimal) {
	idx, ok := t.index[customerName]
	if !ok {
		t.index[customerName] = len(t.totals)
		t.totals = append(t.totals, CustomerSpending{CustomerName: customerName, TotalSpending: amount})
		return
	}
	t.totals[idx].TotalSpending = t.totals[idx].TotalSpending.Add(amount)
}

// Result возвращает траты по убыванию суммы; при равенстве сохраняется порядок первого появления.
func (t *SpendingTally) Result() []CustomerSpending {
	result := make([]CustomerSpending, len(t.totals))
	copy(result, t.totals)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TotalSpending.GreaterThan(result[j].TotalSpending)
	})
	return result
}

// AggregateSpending группирует заказы по имени клиента и суммирует TotalAmount.
// Заказы ожидаются в порядке возрастания id.
func AggregateSpending(orders []*Order) []CustomerSpending {
	tally := NewSpendingTally()
	for _, o := range orders {
		tally.Add(o.CustomerName, o.TotalAmount)
	}
	return tally.Result()
}
