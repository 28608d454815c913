// Package grpcsvc реализует gRPC API заказов. Контракт сообщений совпадает с HTTP API.
package grpcsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/orders/internal/api"
	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
)

// Сообщения успешных ответов.
const (
	msgOrderCreated       = "Order created successfully"
	msgOrdersRetrieved    = "Orders retrieved successfully"
	msgOrderRetrieved     = "Order retrieved successfully"
	msgSpendingRetrieved  = "Customer spending data retrieved successfully"
	msgOrderDeleted       = "Order deleted successfully"
	msgCustomerOrdersTmpl = "Orders for customer '%s' retrieved successfully"
)

// IDRequest: запрос GetOrder и DeleteOrder.
type IDRequest struct {
	ID int64 `json:"id"`
}

// PageRequest: запрос ListSpendingPerCustomer.
// Size == nil означает domain.DefaultPageSize, явный 0 приводится к 1.
type PageRequest struct {
	Page int  `json:"page,omitempty"`
	Size *int `json:"size,omitempty"`
}

// ListOrdersRequest: запрос ListOrders.
type ListOrdersRequest struct {
	Page         int       `json:"page,omitempty"`
	Size         *int      `json:"size,omitempty"`
	Sort         string    `json:"sort,omitempty"`
	Order        string    `json:"order,omitempty"`
	CustomerName string    `json:"customerName,omitempty"`
	From         *api.Date `json:"from,omitempty"`
	To           *api.Date `json:"to,omitempty"`
}

// CustomerOrdersRequest: запрос ListOrdersByCustomer.
type CustomerOrdersRequest struct {
	CustomerName string `json:"customerName"`
	Page         int    `json:"page,omitempty"`
	Size         *int   `json:"size,omitempty"`
}

// OrderService реализует gRPC API поверх сервиса заказов.
type OrderService struct {
	svc    orders.Operations
	logger *log.Entry
}

// NewOrderService конструирует сервис с зависимостями.
func NewOrderService(svc orders.Operations, logger *log.Entry) *OrderService {
	if logger == nil {
		logger = log.WithField("component", "grpc")
	}
	return &OrderService{svc: svc, logger: logger}
}

var _ OrderServiceServer = (*OrderService)(nil)

func (s *OrderService) CreateOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.OrderRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, invalidRequest(err)
	}
	order, err := s.svc.CreateOrder(ctx, req.ToNewOrderInput())
	if err != nil {
		return nil, s.toStatus(err, orders.ActionCreateOrder)
	}
	return toStruct(api.Created(msgOrderCreated, api.FromOrder(order)))
}

func (s *OrderService) GetOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req IDRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, invalidRequest(err)
	}
	order, err := s.svc.GetOrder(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(err, orders.ActionGetOrder)
	}
	return toStruct(api.Success(msgOrderRetrieved, api.FromOrder(order)))
}

func (s *OrderService) ListOrders(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ListOrdersRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, invalidRequest(err)
	}
	q := orders.ListOrdersQuery{
		Page:         req.Page,
		Size:         pageSize(req.Size),
		Sort:         req.Sort,
		Direction:    req.Order,
		CustomerName: req.CustomerName,
	}
	if req.From != nil {
		q.From = req.From.Time
	}
	if req.To != nil {
		q.To = req.To.Time
	}
	result, err := s.svc.ListOrders(ctx, q)
	if err != nil {
		return nil, s.toStatus(err, orders.ActionListOrders)
	}
	return toStruct(api.Paginated(msgOrdersRetrieved, api.FromOrders(result.Items), api.PageInfo(result)))
}

func (s *OrderService) ListOrdersByCustomer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CustomerOrdersRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, invalidRequest(err)
	}
	result, err := s.svc.ListOrdersByCustomer(ctx, req.CustomerName, req.Page, pageSize(req.Size))
	if err != nil {
		return nil, s.toStatus(err, orders.ActionListCustomer)
	}
	message := fmt.Sprintf(msgCustomerOrdersTmpl, req.CustomerName)
	return toStruct(api.Paginated(message, api.FromOrders(result.Items), api.PageInfo(result)))
}

func (s *OrderService) ListSpendingPerCustomer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req PageRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, invalidRequest(err)
	}
	result, err := s.svc.ListSpendingPerCustomer(ctx, req.Page, pageSize(req.Size))
	if err != nil {
		return nil, s.toStatus(err, orders.ActionListSpending)
	}
	return toStruct(api.Paginated(msgSpendingRetrieved, api.FromSpending(result.Items), api.PageInfo(result)))
}

func (s *OrderService) DeleteOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req IDRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, invalidRequest(err)
	}
	if err := s.svc.DeleteOrder(ctx, req.ID); err != nil {
		return nil, s.toStatus(err, orders.ActionDeleteOrder)
	}
	return toStruct(api.Success(msgOrderDeleted, nil))
}

// toStatus переводит ошибку сервиса в gRPC-статус.
// Ошибка валидации несёт в деталях Struct с конвертом ошибок по полям.
func (s *OrderService) toStatus(err error, action string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}

	switch domain.KindOf(err) {
	case domain.KindValidation:
		var verr domain.ValidationErrors
		errors.As(err, &verr)
		st := status.New(codes.InvalidArgument, api.MsgValidationFailed)
		detail, derr := toStruct(api.ValidationFailed(verr))
		if derr != nil {
			return st.Err()
		}
		if withDetail, werr := st.WithDetails(detail); werr == nil {
			st = withDetail
		}
		return st.Err()
	case domain.KindNotFound:
		return status.Error(codes.NotFound, api.MsgOrderNotFound)
	default:
		s.logger.WithError(err).WithField("action", action).Error("grpc request failed")
		return status.Error(codes.Internal, api.FailureMessage(action, err))
	}
}

func pageSize(size *int) int {
	if size == nil {
		return domain.DefaultPageSize
	}
	return *size
}

func invalidRequest(err error) error {
	return status.Error(codes.InvalidArgument, "Invalid request body: "+err.Error())
}

// ValidationErrorsFromStatus достаёт ошибки по полям из деталей статуса InvalidArgument.
func ValidationErrorsFromStatus(err error) (map[string][]string, bool) {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.InvalidArgument {
		return nil, false
	}
	for _, d := range st.Details() {
		detail, ok := d.(*structpb.Struct)
		if !ok {
			continue
		}
		var resp api.ValidationErrorResponse
		if err := fromStruct(detail, &resp); err != nil {
			return nil, false
		}
		return resp.Errors, true
	}
	return nil, false
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, out any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
