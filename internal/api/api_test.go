package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

func TestMoney_MarshalsTwoFractionDigits(t *testing.T) {
	cases := map[string]string{
		"150":    "150.00",
		"0.5":    "0.50",
		"10.005": "10.01",
		"75.25":  "75.25",
	}
	for in, want := range cases {
		data, err := json.Marshal(NewMoney(decimal.RequireFromString(in)))
		require.NoError(t, err)
		assert.Equal(t, want, string(data), in)
	}
}

func TestMoney_UnmarshalNumberAndString(t *testing.T) {
	var req OrderItemRequest
	require.NoError(t, json.Unmarshal([]byte(`{"productName":"A","quantity":1,"price":75.5}`), &req))
	require.NotNil(t, req.Price)
	assert.Equal(t, "75.50", req.Price.StringFixed(2))

	require.NoError(t, json.Unmarshal([]byte(`{"price":"0.01"}`), &req))
	assert.Equal(t, "0.01", req.Price.String())

	req = OrderItemRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"price":null}`), &req))
	assert.Nil(t, req.Price)

	assert.Error(t, json.Unmarshal([]byte(`{"price":"abc"}`), &req))
}

func TestDate_RoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2025-12-04"`), &d))
	assert.Equal(t, time.Date(2025, 12, 4, 0, 0, 0, 0, time.UTC), d.Time)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-12-04"`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`"04.12.2025"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20251204`), &d))
}

func TestTimestamp_Format(t *testing.T) {
	ts := Timestamp{Time: time.Date(2025, 12, 4, 13, 5, 9, 123456789, time.FixedZone("MSK", 3*3600))}

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2025-12-04 10:05:09"`, string(data))

	var parsed Timestamp
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, time.Date(2025, 12, 4, 10, 5, 9, 0, time.UTC), parsed.Time)
}

func TestOrderRequest_ToNewOrderInput(t *testing.T) {
	var req OrderRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"customerName": "John Doe",
		"orderDate": "2025-12-04",
		"items": [{"productName": "Test Product", "quantity": 2, "price": 75.00}]
	}`), &req))

	in := req.ToNewOrderInput()
	assert.Equal(t, "John Doe", in.CustomerName)
	assert.Equal(t, time.Date(2025, 12, 4, 0, 0, 0, 0, time.UTC), in.OrderDate)
	require.Len(t, in.Items, 1)
	assert.Equal(t, 2, *in.Items[0].Quantity)
	assert.Equal(t, "75", in.Items[0].Price.String())
	assert.NoError(t, domain.ValidateNewOrder(in))
}

func TestOrderRequest_DistinguishesMissingAndEmptyItems(t *testing.T) {
	var missing OrderRequest
	require.NoError(t, json.Unmarshal([]byte(`{"customerName":"Jane"}`), &missing))
	assert.Nil(t, missing.ToNewOrderInput().Items)

	var empty OrderRequest
	require.NoError(t, json.Unmarshal([]byte(`{"customerName":"Jane","items":[]}`), &empty))
	in := empty.ToNewOrderInput()
	assert.NotNil(t, in.Items)
	assert.Empty(t, in.Items)

	var noFields OrderRequest
	require.NoError(t, json.Unmarshal([]byte(`{"customerName":"Jane","items":[{}]}`), &noFields))
	item := noFields.ToNewOrderInput().Items[0]
	assert.Nil(t, item.Quantity)
	assert.Nil(t, item.Price)
}

func TestFromOrder_JohnDoeEnvelope(t *testing.T) {
	order := domain.NewOrder("John Doe", time.Date(2025, 12, 4, 0, 0, 0, 0, time.UTC))
	order.AddItem(domain.NewOrderItem("Test Product", 2, decimal.RequireFromString("75.00")))
	order.BeforeCreate(time.Date(2025, 12, 4, 10, 0, 0, 0, time.UTC))
	order.ID = 1
	order.Items[0].ID = 1

	data, err := json.Marshal(Created("Order created successfully", FromOrder(order)))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"code": 201,
		"status": "CREATED",
		"message": "Order created successfully",
		"data": {
			"id": 1,
			"customerName": "John Doe",
			"orderDate": "2025-12-04",
			"totalAmount": 150.00,
			"items": [{"id": 1, "productName": "Test Product", "quantity": 2, "price": 75.00, "subTotal": 150.00}],
			"createdAt": "2025-12-04 10:00:00",
			"updatedAt": "2025-12-04 10:00:00"
		}
	}`, string(data))
	assert.Contains(t, string(data), `"totalAmount":150.00`)
}

func TestEnvelope_OmitsNilData(t *testing.T) {
	data, err := json.Marshal(NotFound(MsgOrderNotFound))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":404,"status":"NOT_FOUND","message":"Order not found"}`, string(data))
}

func TestPaginated_EmptyPageKeepsArray(t *testing.T) {
	page := domain.Page[*domain.Order]{Items: []*domain.Order{}, Total: 5, Index: 4, Size: 2}

	data, err := json.Marshal(Paginated("Orders retrieved successfully", FromOrders(page.Items), PageInfo(page)))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"code": 200,
		"status": "SUCCESS",
		"message": "Orders retrieved successfully",
		"data": [],
		"paginate": {"total": 5, "page": 4, "size": 2, "totalPages": 3}
	}`, string(data))
}

func TestFromSpending(t *testing.T) {
	out := FromSpending([]domain.CustomerSpending{
		{CustomerName: "John Doe", TotalSpending: decimal.RequireFromString("150.5")},
	})
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, `[{"customerName":"John Doe","totalSpending":150.50}]`, string(data))
}

func TestErrorResponse(t *testing.T) {
	verr := domain.ValidationErrors{}
	verr.Add(domain.FieldQuantity, domain.MsgQuantityMin)

	code, body := ErrorResponse(verr, "create order")
	assert.Equal(t, http.StatusBadRequest, code)
	validation, ok := body.(ValidationErrorResponse)
	require.True(t, ok)
	assert.Equal(t, MsgValidationFailed, validation.Message)
	assert.Equal(t, []string{domain.MsgQuantityMin}, validation.Errors[domain.FieldQuantity])

	code, body = ErrorResponse(domain.ErrOrderNotFound, "retrieve order")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, NotFound(MsgOrderNotFound), body)

	perr := &domain.PersistenceError{Op: "create order", Err: errors.New("connection refused")}
	code, body = ErrorResponse(perr, "create order")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, InternalServerError("Failed to create order: connection refused"), body)

	code, body = ErrorResponse(errors.New("boom"), "delete order")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, InternalServerError("Failed to delete order: boom"), body)
}
