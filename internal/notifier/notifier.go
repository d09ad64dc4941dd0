// Package notifier drains the outbox and pushes change events to hub
// subscribers. Delivery is at-least-once: the offset is persisted after a
// batch, so a crash between broadcast and offset write replays the batch.
package notifier

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"queueboard/internal/hub"
	"queueboard/internal/store"
)

type Store interface {
	ListFeedEvents(ctx context.Context, offset store.FeedOffset, limit int) ([]store.OutboxEvent, error)
	GetFeedOffset(ctx context.Context) (store.FeedOffset, error)
	UpdateFeedOffset(ctx context.Context, offset store.FeedOffset) error
	CleanupOutbox(ctx context.Context, before time.Time) error
}

type Broadcaster interface {
	Broadcast(payload []byte, meta hub.Subscription)
}

type Notifier struct {
	store     Store
	hub       Broadcaster
	interval  time.Duration
	batchSize int
	retention time.Duration
	offset    store.FeedOffset
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	Retention    time.Duration
}

type eventEnvelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func New(st Store, h Broadcaster, cfg Config) *Notifier {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = time.Hour
	}
	return &Notifier{
		store:     st,
		hub:       h,
		interval:  interval,
		batchSize: batch,
		retention: retention,
	}
}

// Run polls until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	offset, err := n.store.GetFeedOffset(ctx)
	if err != nil {
		log.Printf("load feed offset error: %v", err)
	}
	n.offset = offset

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := n.Poll(ctx); err != nil {
				log.Printf("notifier poll error: %v", err)
			}
		}
	}
}

// Poll drains one batch: broadcast, persist the offset, prune old rows.
func (n *Notifier) Poll(ctx context.Context) error {
	events, err := n.store.ListFeedEvents(ctx, n.offset, n.batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	for _, event := range events {
		n.offset.LastEventTime = event.CreatedAt
		n.offset.LastEventID = event.EventID
		env := eventEnvelope{Type: event.Type, Payload: event.Payload, CreatedAt: event.CreatedAt}
		payload, err := json.Marshal(env)
		if err != nil {
			continue
		}
		n.hub.Broadcast(payload, hub.Subscription{QueueID: event.QueueID})
	}

	if err := n.store.UpdateFeedOffset(ctx, n.offset); err != nil {
		return err
	}
	cutoff := n.offset.LastEventTime.Add(-n.retention)
	return n.store.CleanupOutbox(ctx, cutoff)
}
