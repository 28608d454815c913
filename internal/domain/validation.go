package domain

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	customerNameMinLen = 2
	customerNameMaxLen = 100
)

// minPrice: минимальная цена позиции (одна копейка).
var minPrice = decimal.New(1, -moneyScale)

// Сообщения валидации, которые видит клиент API.
const (
	MsgCustomerNameRequired = "Customer name is required"
	MsgCustomerNameLength   = "Customer name must be between 2 and 100 characters"
	MsgItemsRequired        = "Items are required"
	MsgItemsEmpty           = "Order must have at least one item"
	MsgProductNameRequired  = "Product name is required"
	MsgQuantityRequired     = "Quantity is required"
	MsgQuantityMin          = "Quantity must be at least 1"
	MsgPriceRequired        = "Price is required"
	MsgPricePositive        = "Price must be greater than 0"
)

// Имена полей в ответе о валидации.
const (
	FieldCustomerName = "customerName"
	FieldItems        = "items"
	FieldProductName  = "productName"
	FieldQuantity     = "quantity"
	FieldPrice        = "price"
	FieldSort         = "sort"
	FieldFrom         = "from"
)

// ValidationErrors: структурированная ошибка валидации: поле -> список сообщений.
type ValidationErrors map[string][]string

// Add добавляет сообщение к полю.
func (v ValidationErrors) Add(field, message string) {
	v[field] = append(v[field], message)
}

// Fields возвращает отсортированный список полей с ошибками.
func (v ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// OrNil возвращает nil, если ошибок нет.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, field := range v.Fields() {
		parts = append(parts, field+": "+strings.Join(v[field], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewOrderInput: данные для создания заказа до валидации.
type NewOrderInput struct {
	CustomerName string
	// OrderDate может быть нулевым, тогда используется дата создания.
	OrderDate time.Time
	// Items == nil означает, что поле не передано.
	Items []NewItemInput
}

// NewItemInput: данные позиции; nil в Quantity/Price означает отсутствие значения.
type NewItemInput struct {
	ProductName string
	Quantity    *int
	Price       *decimal.Decimal
}

// ValidateNewOrder проверяет входные данные заказа и всех позиций.
func ValidateNewOrder(in NewOrderInput) error {
	errs := ValidationErrors{}
	validateCustomerName(errs, in.CustomerName)
	validateItems(errs, in.Items)
	return errs.OrNil()
}

func validateCustomerName(errs ValidationErrors, name string) {
	if strings.TrimSpace(name) == "" {
		errs.Add(FieldCustomerName, MsgCustomerNameRequired)
	}
	if n := utf8.RuneCountInString(name); n < customerNameMinLen || n > customerNameMaxLen {
		errs.Add(FieldCustomerName, MsgCustomerNameLength)
	}
}

func validateItems(errs ValidationErrors, items []NewItemInput) {
	if items == nil {
		errs.Add(FieldItems, MsgItemsRequired)
		return
	}
	if len(items) == 0 {
		errs.Add(FieldItems, MsgItemsEmpty)
		return
	}
	for _, item := range items {
		validateProductName(errs, item.ProductName)
		validateQuantity(errs, item.Quantity)
		validatePrice(errs, item.Price)
	}
}

func validateProductName(errs ValidationErrors, name string) {
	if strings.TrimSpace(name) == "" {
		errs.Add(FieldProductName, MsgProductNameRequired)
	}
}

func validateQuantity(errs ValidationErrors, qty *int) {
	switch {
	case qty == nil:
		errs.Add(FieldQuantity, MsgQuantityRequired)
	case *qty < 1:
		errs.Add(FieldQuantity, MsgQuantityMin)
	}
}

func validatePrice(errs ValidationErrors, price *decimal.Decimal) {
	switch {
	case price == nil:
		errs.Add(FieldPrice, MsgPriceRequired)
	case price.LessThan(minPrice):
		errs.Add(FieldPrice, MsgPricePositive)
	}
}
