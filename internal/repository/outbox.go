package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

// InsertOutboxEvent records an event in the same transaction as the change it
// describes. The publisher picks it up later.
func (q *Queries) InsertOutboxEvent(ctx context.Context, aggregateID, eventType string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	_, err = q.q.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		aggregateID, eventType, payloadJSON)
	if err != nil {
		return wrap("insert outbox event", err)
	}
	return nil
}

// GetUnprocessedEvents returns up to limit pending events, oldest first.
func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var events []*domain.OutboxEvent
	err := r.Do(ctx, func(q *Queries) error {
		rows, err := q.q.QueryContext(ctx,
			`SELECT id, aggregate_id, event_type, payload, created_at
			 FROM outbox_events WHERE processed_at IS NULL
			 ORDER BY id ASC LIMIT $1`, limit)
		if err != nil {
			return wrap("query outbox events", err)
		}
		defer rows.Close()

		for rows.Next() {
			var e domain.OutboxEvent
			if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
				return fmt.Errorf("scan outbox row: %w", err)
			}
			events = append(events, &e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	return r.Do(ctx, func(q *Queries) error {
		res, err := q.q.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
		if err != nil {
			return wrap("mark outbox event processed", err)
		}
		return expectOne("outbox event", res)
	})
}
