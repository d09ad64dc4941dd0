package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"queueboard/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const notifierConsumer = "notifier"

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, queueID, eventType string, payload map[string]interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, queue_id, type, payload_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), queueID, eventType, payloadJSON, time.Now().UTC())
	return err
}

func (s *Store) ListFeedEvents(ctx context.Context, offset store.FeedOffset, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	after := offset.LastEventTime
	if after.IsZero() {
		after = time.Unix(0, 0).UTC()
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, queue_id, type, payload_json, created_at
		FROM outbox_events
		WHERE created_at > $1
		ORDER BY created_at ASC
		LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.QueueID, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) GetFeedOffset(ctx context.Context) (store.FeedOffset, error) {
	var offset store.FeedOffset
	row := s.pool.QueryRow(ctx, `
		SELECT last_event_time, last_event_id
		FROM feed_offsets
		WHERE consumer = $1
	`, notifierConsumer)
	if err := row.Scan(&offset.LastEventTime, &offset.LastEventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.FeedOffset{}, nil
		}
		return store.FeedOffset{}, err
	}
	return offset, nil
}

func (s *Store) UpdateFeedOffset(ctx context.Context, offset store.FeedOffset) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feed_offsets (consumer, last_event_time, last_event_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (consumer)
		DO UPDATE SET last_event_time = $2, last_event_id = $3
	`, notifierConsumer, offset.LastEventTime, offset.LastEventID)
	return err
}

// CleanupOutbox prunes delivered rows. The /api/events catch-up endpoint only
// needs events newer than the notifier offset, so anything older is dead
// weight.
func (s *Store) CleanupOutbox(ctx context.Context, before time.Time) error {
	if before.IsZero() {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		DELETE FROM outbox_events
		WHERE created_at < $1
	`, before)
	return err
}
