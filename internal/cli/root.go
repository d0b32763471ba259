// Package cli holds the kairos command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/japintos/KairosMarket-sub001/internal/config"
	"github.com/japintos/KairosMarket-sub001/internal/repository"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "kairos",
	Short: "KairosMarket shop backend",
	Long: `kairos runs the KairosMarket backend: the HTTP API, the order lookup
gRPC service, the outbox publisher and the catalog cache consumer.

Settings come from defaults, an optional config file and environment
variables (DB_HOST, REDIS_ADDR, KAFKA_BROKERS, ...).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (yaml, json or toml)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func credentials(cfg *config.Config) *repository.Credentials {
	return &repository.Credentials{
		Host:             cfg.DB.Host,
		Port:             cfg.DB.Port,
		User:             cfg.DB.User,
		Password:         cfg.DB.Password,
		DBName:           cfg.DB.Name,
		SSLMode:          cfg.DB.SSLMode,
		MaxOpenConns:     cfg.DB.MaxOpenConns,
		MaxIdleConns:     cfg.DB.MaxIdleConns,
		QueueLimit:       cfg.DB.QueueLimit,
		AcquireTimeout:   cfg.DB.AcquireTimeout,
		StatementTimeout: cfg.DB.StatementTimeout,
	}
}
