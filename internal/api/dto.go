package api

import "github.com/vladislavdragonenkov/orders/internal/domain"

// OrderRequest: тело запроса на создание заказа.
// Items == nil означает, что поле отсутствует в запросе.
type OrderRequest struct {
	CustomerName string             `json:"customerName"`
	OrderDate    *Date              `json:"orderDate,omitempty"`
	Items        []OrderItemRequest `json:"items"`
}

// OrderItemRequest: позиция в запросе.
type OrderItemRequest struct {
	ProductName string `json:"productName"`
	Quantity    *int   `json:"quantity"`
	Price       *Money `json:"price"`
}

// OrderResponse: заказ в ответе API.
type OrderResponse struct {
	ID           int64               `json:"id"`
	CustomerName string              `json:"customerName"`
	OrderDate    Date                `json:"orderDate"`
	TotalAmount  Money               `json:"totalAmount"`
	Items        []OrderItemResponse `json:"items"`
	CreatedAt    Timestamp           `json:"createdAt"`
	UpdatedAt    Timestamp           `json:"updatedAt"`
}

// OrderItemResponse: позиция заказа в ответе API.
type OrderItemResponse struct {
	ID          int64  `json:"id"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Price       Money  `json:"price"`
	SubTotal    Money  `json:"subTotal"`
}

// CustomerSpendingResponse: сумма трат клиента.
type CustomerSpendingResponse struct {
	CustomerName  string `json:"customerName"`
	TotalSpending Money  `json:"totalSpending"`
}

// ToNewOrderInput переводит запрос в вход доменной валидации.
func (r OrderRequest) ToNewOrderInput() domain.NewOrderInput {
	in := domain.NewOrderInput{CustomerName: r.CustomerName}
	if r.OrderDate != nil {
		in.OrderDate = r.OrderDate.Time
	}
	if r.Items != nil {
		in.Items = make([]domain.NewItemInput, 0, len(r.Items))
		for _, item := range r.Items {
			input := domain.NewItemInput{
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
			}
			if item.Price != nil {
				price := item.Price.Decimal
				input.Price = &price
			}
			in.Items = append(in.Items, input)
		}
	}
	return in
}

// FromOrder конвертирует агрегат в DTO ответа.
func FromOrder(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ID:          item.ID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       NewMoney(item.Price),
			SubTotal:    NewMoney(item.SubTotal()),
		})
	}
	return OrderResponse{
		ID:           order.ID,
		CustomerName: order.CustomerName,
		OrderDate:    NewDate(order.OrderDate),
		TotalAmount:  NewMoney(order.TotalAmount),
		Items:        items,
		CreatedAt:    Timestamp{Time: order.CreatedAt},
		UpdatedAt:    Timestamp{Time: order.UpdatedAt},
	}
}

// FromOrders конвертирует список заказов; пустой список остаётся [] в JSON.
func FromOrders(orders []*domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, FromOrder(order))
	}
	return out
}

// FromSpending конвертирует агрегат трат.
func FromSpending(spending []domain.CustomerSpending) []CustomerSpendingResponse {
	out := make([]CustomerSpendingResponse, 0, len(spending))
	for _, s := range spending {
		out = append(out, CustomerSpendingResponse{
			CustomerName:  s.CustomerName,
			TotalSpending: NewMoney(s.TotalSpending),
		})
	}
	return out
}

// PageInfo строит метаданные пагинации из доменной страницы.
func PageInfo[T any](page domain.Page[T]) PaginationInfo {
	return PaginationInfo{
		Total:      page.Total,
		Page:       page.Index,
		Size:       page.Size,
		TotalPages: page.TotalPages(),
	}
}
