package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName: полное имя gRPC-сервиса заказов.
const ServiceName = "orders.v1.OrderService"

// Имена методов сервиса.
const (
	MethodCreateOrder             = "CreateOrder"
	MethodGetOrder                = "GetOrder"
	MethodListOrders              = "ListOrders"
	MethodListOrdersByCustomer    = "ListOrdersByCustomer"
	MethodListSpendingPerCustomer = "ListSpendingPerCustomer"
	MethodDeleteOrder             = "DeleteOrder"
)

// OrderServiceServer: серверная часть orders.v1.OrderService.
// Запросы и ответы передаются как google.protobuf.Struct с тем же JSON, что и в HTTP API.
type OrderServiceServer interface {
	CreateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOrdersByCustomer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSpendingPerCustomer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// FullMethod возвращает путь метода вида /orders.v1.OrderService/<method>.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type unaryCall func(OrderServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrderServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrderServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc описывает orders.v1.OrderService для grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: MethodCreateOrder,
			Handler:    unaryHandler(MethodCreateOrder, OrderServiceServer.CreateOrder),
		},
		{
			MethodName: MethodGetOrder,
			Handler:    unaryHandler(MethodGetOrder, OrderServiceServer.GetOrder),
		},
		{
			MethodName: MethodListOrders,
			Handler:    unaryHandler(MethodListOrders, OrderServiceServer.ListOrders),
		},
		{
			MethodName: MethodListOrdersByCustomer,
			Handler:    unaryHandler(MethodListOrdersByCustomer, OrderServiceServer.ListOrdersByCustomer),
		},
		{
			MethodName: MethodListSpendingPerCustomer,
			Handler:    unaryHandler(MethodListSpendingPerCustomer, OrderServiceServer.ListSpendingPerCustomer),
		},
		{
			MethodName: MethodDeleteOrder,
			Handler:    unaryHandler(MethodDeleteOrder, OrderServiceServer.DeleteOrder),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orders/v1/order_service.proto",
}

// RegisterOrderServiceServer регистрирует реализацию на сервере.
func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client вызывает orders.v1.OrderService по соединению.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient создаёт клиента поверх соединения.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call вызывает метод. req сериализуется в JSON и передаётся как Struct.
func (c *Client) Call(ctx context.Context, method string, req any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in := &structpb.Struct{}
	if req != nil {
		var err error
		if in, err = toStruct(req); err != nil {
			return nil, err
		}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode переводит ответ в Go-значение через JSON.
func Decode(resp *structpb.Struct, out any) error {
	return fromStruct(resp, out)
}
