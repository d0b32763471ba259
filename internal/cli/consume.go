package cli

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/japintos/KairosMarket-sub001/internal/cache"
	"github.com/japintos/KairosMarket-sub001/internal/config"
	"github.com/japintos/KairosMarket-sub001/internal/consumer"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Evict cached products named in order events",
	Long: `consume joins the Kafka consumer group (catalog-cache by default) on the
order events topic and deletes the Redis entry of every product an event
touched. It runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runConsume,
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}

func runConsume(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := connectRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	c := consumer.NewConsumer(cache.NewRedisCache(redisClient), cfg.Kafka.Topic, cfg.Kafka.GroupID, cfg.Kafka.Brokers...)
	defer c.Close()

	log.Printf("Consuming %s as group %s", cfg.Kafka.Topic, cfg.Kafka.GroupID)
	c.Run(ctx)
	log.Println("Consumer stopped")
	return nil
}

func connectRedis(ctx context.Context, rc config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", rc.Addr, err)
	}
	log.Printf("Connected to Redis at %s", rc.Addr)
	return client, nil
}
