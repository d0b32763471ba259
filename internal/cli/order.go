package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	ordersgrpc "github.com/japintos/KairosMarket-sub001/internal/grpc"
)

var (
	orderTimeout time.Duration
	orderLimit   int
	orderOffset  int
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Look up orders through the gRPC service",
}

var orderGetCmd = &cobra.Command{
	Use:   "get <order-number>",
	Short: "Print one order as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrderGet,
}

var orderListCmd = &cobra.Command{
	Use:   "list <customer-id>",
	Short: "Print a customer's orders as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrderList,
}

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.AddCommand(orderGetCmd, orderListCmd)

	orderCmd.PersistentFlags().DurationVar(&orderTimeout, "timeout", 5*time.Second, "RPC deadline")
	orderListCmd.Flags().IntVar(&orderLimit, "limit", 20, "maximum number of orders")
	orderListCmd.Flags().IntVar(&orderOffset, "offset", 0, "number of orders to skip")
}

func runOrderGet(cmd *cobra.Command, args []string) error {
	client, err := dialOrders()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), orderTimeout)
	defer cancel()

	order, err := client.GetOrder(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get order %s: %w", args[0], err)
	}
	return printJSON(cmd, order)
}

func runOrderList(cmd *cobra.Command, args []string) error {
	customerID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid customer id %q", args[0])
	}

	client, err := dialOrders()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), orderTimeout)
	defer cancel()

	orders, err := client.ListCustomerOrders(ctx, customerID, orderLimit, orderOffset)
	if err != nil {
		return fmt.Errorf("failed to list orders for customer %d: %w", customerID, err)
	}
	return printJSON(cmd, orders)
}

func dialOrders() (*ordersgrpc.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client, err := ordersgrpc.Dial(cfg.GRPC.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.GRPC.Addr, err)
	}
	return client, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
