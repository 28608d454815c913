package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// moneyScale: количество знаков после запятой для денежных значений.
const moneyScale = 2

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID назначается хранилищем при сохранении заказа.
	ID          int64
	ProductName string
	Quantity    int
	// Price: цена за единицу товара.
	Price decimal.Decimal

	order *Order
}

// NewOrderItem создаёт позицию без привязки к заказу.
func NewOrderItem(productName string, quantity int, price decimal.Decimal) *OrderItem {
	return &OrderItem{
		ProductName: productName,
		Quantity:    quantity,
		Price:       price,
	}
}

// SubTotal возвращает price * quantity, округлённое до копеек (half-up).
func (i *OrderItem) SubTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(moneyScale)
}

// Order возвращает заказ-владелец или nil, если позиция не привязана.
func (i *OrderItem) Order() *Order {
	return i.order
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID           int64
	CustomerName string
	// OrderDate хранится как календарная дата (полночь UTC).
	OrderDate   time.Time
	TotalAmount decimal.Decimal
	Items       []*OrderItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrder создаёт пустой заказ клиента.
func NewOrder(customerName string, orderDate time.Time) *Order {
	o := &Order{CustomerName: customerName}
	if !orderDate.IsZero() {
		o.OrderDate = DateOf(orderDate)
	}
	o.RecomputeTotal()
	return o
}

// AddItem добавляет позицию, привязывает её к заказу и пересчитывает сумму.
func (o *Order) AddItem(item *OrderItem) {
	if item == nil {
		return
	}
	item.order = o
	o.Items = append(o.Items, item)
	o.RecomputeTotal()
}

// RemoveItem удаляет позицию (по указателю) и пересчитывает сумму.
// Если позиции нет в заказе, ничего не меняется и возвращается false.
func (o *Order) RemoveItem(item *OrderItem) bool {
	for idx, current := range o.Items {
		if current != item {
			continue
		}
		o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
		item.order = nil
		o.RecomputeTotal()
		return true
	}
	return false
}

// RecomputeTotal пересчитывает TotalAmount как сумму SubTotal всех позиций.
func (o *Order) RecomputeTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.SubTotal())
	}
	o.TotalAmount = total
}

// BeforeCreate проставляет временные метки перед первым сохранением.
func (o *Order) BeforeCreate(now time.Time) {
	now = now.UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = DateOf(now)
	}
	o.UpdatedAt = now
	o.RecomputeTotal()
}

// BeforeUpdate обновляет UpdatedAt и сумму перед повторным сохранением.
func (o *Order) BeforeUpdate(now time.Time) {
	o.UpdatedAt = now.UTC()
	o.RecomputeTotal()
}

// Clone возвращает глубокую копию заказа с корректными back-reference.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = make([]*OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		itemCopy := *item
		itemCopy.order = &cp
		cp.Items = append(cp.Items, &itemCopy)
	}
	return &cp
}

// AttachItems привязывает загруженные из хранилища позиции к заказу.
func (o *Order) AttachItems(items []*OrderItem) {
	o.Items = make([]*OrderItem, 0, len(items))
	for _, item := range items {
		item.order = o
		o.Items = append(o.Items, item)
	}
	o.RecomputeTotal()
}

// DateOf обрезает время до календарной даты в UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
