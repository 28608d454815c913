package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// DefaultPageSize используется, если размер страницы не передан.
	DefaultPageSize = 20
	// MaxPageSize: верхняя граница размера страницы.
	MaxPageSize = 100
)

// PageRequest: нормализованный запрос страницы (индекс с 1).
type PageRequest struct {
	Index int
	Size  int
}

// NewPageRequest нормализует индекс (>=1) и ограничивает размер диапазоном [1, MaxPageSize].
// Индекс ограничен сверху так, чтобы смещение (index-1)*size помещалось в int.
func NewPageRequest(index, size int) PageRequest {
	switch {
	case size < 1:
		size = 1
	case size > MaxPageSize:
		size = MaxPageSize
	}
	if maxIndex := math.MaxInt / size; index > maxIndex {
		index = maxIndex
	}
	if index < 1 {
		index = 1
	}
	return PageRequest{Index: index, Size: size}
}

// Offset возвращает смещение 0-based для хранилища.
func (r PageRequest) Offset() int {
	return (r.Index - 1) * r.Size
}

// SortField: поле сортировки списка заказов.
type SortField string

const (
	SortByID           SortField = "id"
	SortByCustomerName SortField = "customerName"
	SortByOrderDate    SortField = "orderDate"
	SortByTotalAmount  SortField = "totalAmount"
	SortByCreatedAt    SortField = "createdAt"
	SortByUpdatedAt    SortField = "updatedAt"
)

var sortFields = map[string]SortField{
	strings.ToLower(string(SortByID)):           SortByID,
	strings.ToLower(string(SortByCustomerName)): SortByCustomerName,
	strings.ToLower(string(SortByOrderDate)):    SortByOrderDate,
	strings.ToLower(string(SortByTotalAmount)):  SortByTotalAmount,
	strings.ToLower(string(SortByCreatedAt)):    SortByCreatedAt,
	strings.ToLower(string(SortByUpdatedAt)):    SortByUpdatedAt,
}

// Sort задаёт поле и направление. При равенстве значений порядок определяется id в том же направлении.
type Sort struct {
	Field SortField
	Desc  bool
}

// ParseSortDirection: "desc" в любом регистре означает убывание, всё остальное возрастание.
func ParseSortDirection(direction string) bool {
	return strings.EqualFold(strings.TrimSpace(direction), "desc")
}

// ParseSort разбирает поле и направление сортировки. Пустое поле означает id.
func ParseSort(field, direction string) (Sort, error) {
	desc := ParseSortDirection(direction)
	key := strings.ToLower(strings.TrimSpace(field))
	if key == "" {
		return Sort{Field: SortByID, Desc: desc}, nil
	}
	sf, ok := sortFields[key]
	if !ok {
		errs := ValidationErrors{}
		errs.Add(FieldSort, fmt.Sprintf("Unsupported sort field '%s'", field))
		return Sort{}, errs
	}
	return Sort{Field: sf, Desc: desc}, nil
}

// OrderFilter: необязательные условия выборки заказов.
type OrderFilter struct {
	// CustomerName: точное совпадение, пустая строка отключает фильтр.
	CustomerName string
	// From/To: включительный диапазон даты заказа.
	From time.Time
	To   time.Time
}

// Validate проверяет согласованность диапазона дат.
func (f OrderFilter) Validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		errs := ValidationErrors{}
		errs.Add(FieldFrom, "From date must not be after to date")
		return errs
	}
	return nil
}

// Matches проверяет заказ на соответствие фильтру.
func (f OrderFilter) Matches(o *Order) bool {
	if f.CustomerName != "" && o.CustomerName != f.CustomerName {
		return false
	}
	if !f.From.IsZero() && o.OrderDate.Before(DateOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && o.OrderDate.After(DateOf(f.To)) {
		return false
	}
	return true
}

// Page: срез результатов и общее количество совпадений.
type Page[T any] struct {
	Items []T
	Total int64
	Index int
	Size  int
}

// TotalPages = ceil(Total / Size).
func (p Page[T]) TotalPages() int64 {
	if p.Size <= 0 {
		return 0
	}
	size := int64(p.Size)
	return (p.Total + size - 1) / size
}

// Paginate нарезает уже отсортированный список в памяти.
// Смещение за пределами списка даёт пустую страницу.
func Paginate[T any](all []T, req PageRequest) Page[T] {
	page := Page[T]{
		Items: []T{},
		Total: int64(len(all)),
		Index: req.Index,
		Size:  req.Size,
	}
	offset := req.Offset()
	if offset < 0 || offset >= len(all) {
		return page
	}
	end := offset + req.Size
	if end > len(all) {
		end = len(all)
	}
	page.Items = append(page.Items, all[offset:end]...)
	return page
}
