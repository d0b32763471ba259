// Package consumer reads order events from Kafka and evicts the cached copies
// of every product an event touched.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
	"github.com/japintos/KairosMarket-sub001/internal/logger"
)

const (
	DefaultTopic   = "order-events"
	DefaultGroupID = "catalog-cache"

	maxRetryBackoff = 30 * time.Second
)

type ProductCache interface {
	Delete(ctx context.Context, productIDs ...int64) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	cache        ProductCache
	reader       messageReader
	retryBackoff time.Duration
}

func NewConsumer(cache ProductCache, topic, groupID string, brokers ...string) *Consumer {
	if topic == "" {
		topic = DefaultTopic
	}
	if groupID == "" {
		groupID = DefaultGroupID
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{cache: cache, reader: reader, retryBackoff: time.Second}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		logger.Errorf(context.Background(), "error closing kafka reader: %v", err)
	}
}

// processMessage commits the offset only after the eviction succeeded or the
// message was found to be unusable. A group reader keeps fetching past an
// uncommitted offset, so a failed eviction is retried here until it succeeds
// or ctx is done.
func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		logger.Errorf(ctx, "error reading message: %v", err)
		time.Sleep(time.Second)
		return
	}

	if err := c.handleWithRetry(ctx, m); err != nil {
		logger.Errorf(ctx, "giving up on event at offset %d: %v", m.Offset, err)
		return
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil {
		logger.Errorf(ctx, "failed to commit offset %d: %v", m.Offset, err)
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, m kafka.Message) error {
	backoff := c.retryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	for {
		err := c.handle(ctx, m)
		if err == nil {
			return nil
		}
		logger.Errorf(ctx, "failed to handle event at offset %d, retrying in %s: %v", m.Offset, backoff, err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-timer.C:
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		logger.Errorf(ctx, "skipping malformed event at offset %d: %v", m.Offset, err)
		return nil
	}

	if len(event.ProductIDs) == 0 {
		return nil
	}

	if err := c.cache.Delete(ctx, event.ProductIDs...); err != nil {
		return fmt.Errorf("evict products for order %s: %w", event.OrderNumber, err)
	}

	logger.Printf(ctx, "evicted %d cached products after %s on order %s", len(event.ProductIDs), headerValue(m, "event_type"), event.OrderNumber)
	return nil
}

func headerValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
