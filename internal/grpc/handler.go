package grpc

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

// OrderReader is the part of the order workflow the RPC exposes.
type OrderReader interface {
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error)
}

type OrdersHandler struct {
	orders OrderReader
}

func NewOrdersHandler(orders OrderReader) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

// NewServer returns a gRPC server with the orders service, tracing and
// reflection registered.
func NewServer(orders OrderReader) *grpc.Server {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	RegisterOrdersServiceServer(s, NewOrdersHandler(orders))
	reflection.Register(s)
	return s
}

func (h *OrdersHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*GetOrderResponse, error) {
	number := strings.TrimSpace(req.OrderNumber)
	if number == "" {
		return nil, status.Error(codes.InvalidArgument, "order_number is required")
	}

	order, err := h.orders.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "order not found: %s", number)
		}
		return nil, toStatus(err, "failed to get order")
	}

	return &GetOrderResponse{Order: order}, nil
}

func (h *OrdersHandler) ListCustomerOrders(ctx context.Context, req *ListCustomerOrdersRequest) (*ListCustomerOrdersResponse, error) {
	if req.CustomerID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "customer_id must be positive")
	}
	if req.Limit < 0 || req.Offset < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit and offset must not be negative")
	}

	orders, err := h.orders.List(ctx, domain.OrderFilter{CustomerID: &req.CustomerID, Limit: req.Limit, Offset: req.Offset})
	if err != nil {
		return nil, toStatus(err, "failed to list orders")
	}

	return &ListCustomerOrdersResponse{Orders: orders}, nil
}

func toStatus(err error, msg string) error {
	appErr := apperr.From(err)
	switch appErr.Status {
	case http.StatusBadRequest:
		return status.Errorf(codes.InvalidArgument, "%s: %s", msg, appErr.Message)
	case http.StatusServiceUnavailable:
		return status.Errorf(codes.Unavailable, "%s: %s", msg, appErr.Message)
	}
	return status.Errorf(codes.Internal, "%s: %v", msg, err)
}
