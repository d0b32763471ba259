package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/japintos/KairosMarket-sub001/internal/auth"
	"github.com/japintos/KairosMarket-sub001/internal/cache"
	"github.com/japintos/KairosMarket-sub001/internal/gateway"
	ordersgrpc "github.com/japintos/KairosMarket-sub001/internal/grpc"
	kairoshttp "github.com/japintos/KairosMarket-sub001/internal/http"
	"github.com/japintos/KairosMarket-sub001/internal/publisher"
	"github.com/japintos/KairosMarket-sub001/internal/repository"
	"github.com/japintos/KairosMarket-sub001/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the gRPC order service and the outbox publisher",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Println("kairos starting...")
	var wg sync.WaitGroup

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()

	// PostgreSQL
	repo, err := repository.NewRepository(credentials(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Println("Database migrations completed")

	// Redis product cache
	redisClient, err := connectRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	productCache := cache.NewRedisCache(redisClient)

	// MongoDB favorites
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.DBName)
	if err != nil {
		return err
	}
	defer mongoDB.Client().Disconnect(context.Background())
	favorites := repository.NewFavoritesRepository(mongoDB)
	if err := favorites.CreateIndexes(ctx); err != nil {
		return err
	}
	log.Printf("Connected to MongoDB at %s", cfg.Mongo.URI)

	gw := gateway.NewClient(gateway.Config{
		BaseURL:     cfg.Gateway.BaseURL,
		AccessToken: cfg.Gateway.AccessToken,
		Timeout:     cfg.Gateway.Timeout,
	})

	catalog := service.NewCatalogService(repo, productCache)
	orders := service.NewOrderService(repo, catalog)
	payments := service.NewPaymentService(repo, gw, catalog, service.PaymentConfig{
		SuccessURL:      cfg.Payments.SuccessURL,
		FailureURL:      cfg.Payments.FailureURL,
		PendingURL:      cfg.Payments.PendingURL,
		NotificationURL: cfg.Payments.NotificationURL,
		PreferenceTTL:   cfg.Payments.PreferenceTTL,
		Currency:        cfg.Payments.Currency,
	})

	router := kairoshttp.NewRouter(kairoshttp.Config{
		Production:         cfg.IsProduction(),
		RequestTimeout:     cfg.HTTP.RequestTimeout,
		MaxRequestBodySize: cfg.HTTP.MaxRequestBodySize,
	}, kairoshttp.Dependencies{
		Verifier:  auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer),
		Health:    repo,
		Catalog:   catalog,
		Orders:    orders,
		Customers: service.NewCustomerService(repo, favorites),
		Payments:  payments,
		Cash:      service.NewCashService(repo),
		Contact:   service.NewContactService(repo),
		Settings:  service.NewSettingsService(repo),
	})

	// Outbox publisher
	poller := publisher.NewOutboxPoller(repo, cfg.Kafka.Topic, cfg.Kafka.Brokers...)
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(pollerCtx)
	}()

	// gRPC order lookup
	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		pollerCancel()
		return fmt.Errorf("failed to listen on grpc port %s: %w", cfg.GRPC.Port, err)
	}
	grpcServer := ordersgrpc.NewServer(orders)
	go func() {
		log.Printf("Orders gRPC service listening on :%s", cfg.GRPC.Port)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("grpc server error: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP API listening on :%s", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err = <-serverErr:
		log.Printf("http server error: %v", err)
	}

	log.Println("shutting down kairos...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if e2 := srv.Shutdown(shutdownCtx); e2 != nil {
		log.Printf("http server forced to shutdown: %v", e2)
	}
	grpcServer.GracefulStop()
	pollerCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Println("Outbox poller stopped cleanly")
	case <-time.After(5 * time.Second):
		log.Println("Outbox poller didn't stop in time")
	}

	if e2 := poller.Close(); e2 != nil {
		log.Printf("failed to close kafka writer: %v", e2)
	}
	log.Println("kairos stopped")
	return err
}
