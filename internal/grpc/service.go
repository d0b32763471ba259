package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

const ServiceName = "kairos.orders.v1.OrdersService"

type GetOrderRequest struct {
	OrderNumber string `json:"order_number"`
}

type GetOrderResponse struct {
	Order *domain.Order `json:"order"`
}

type ListCustomerOrdersRequest struct {
	CustomerID int64 `json:"customer_id"`
	Limit      int   `json:"limit,omitempty"`
	Offset     int   `json:"offset,omitempty"`
}

type ListCustomerOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

// OrdersServiceServer is the server API for the order lookup service.
type OrdersServiceServer interface {
	GetOrder(ctx context.Context, req *GetOrderRequest) (*GetOrderResponse, error)
	ListCustomerOrders(ctx context.Context, req *ListCustomerOrdersRequest) (*ListCustomerOrdersResponse, error)
}

func RegisterOrdersServiceServer(s grpc.ServiceRegistrar, srv OrdersServiceServer) {
	s.RegisterService(&ordersServiceDesc, srv)
}

var ordersServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrdersServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetOrder", Handler: getOrderHandler},
		{MethodName: "ListCustomerOrders", Handler: listCustomerOrdersHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kairos/orders/v1/orders",
}

func getOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrdersServiceServer).GetOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/GetOrder",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrdersServiceServer).GetOrder(ctx, req.(*GetOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listCustomerOrdersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListCustomerOrdersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrdersServiceServer).ListCustomerOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/ListCustomerOrders",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrdersServiceServer).ListCustomerOrders(ctx, req.(*ListCustomerOrdersRequest))
	}
	return interceptor(ctx, in, info, handler)
}
