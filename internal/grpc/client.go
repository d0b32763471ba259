package grpc

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

// Client calls the order lookup service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to addr without transport security. Extra options are
// appended, which tests use to plug in an in-memory dialer.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to orders service: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error) {
	out := new(GetOrderResponse)
	err := c.conn.Invoke(ctx, "/"+ServiceName+"/GetOrder", &GetOrderRequest{OrderNumber: orderNumber}, out)
	if err != nil {
		return nil, err
	}
	return out.Order, nil
}

func (c *Client) ListCustomerOrders(ctx context.Context, customerID int64, limit, offset int) ([]domain.Order, error) {
	out := new(ListCustomerOrdersResponse)
	req := &ListCustomerOrdersRequest{CustomerID: customerID, Limit: limit, Offset: offset}
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/ListCustomerOrders", req, out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}
