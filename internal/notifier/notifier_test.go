package notifier

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"queueboard/internal/hub"
	"queueboard/internal/store"
)

type fakeFeedStore struct {
	events       []store.OutboxEvent
	savedOffset  store.FeedOffset
	cleanupCalls int
}

func (f *fakeFeedStore) ListFeedEvents(ctx context.Context, offset store.FeedOffset, limit int) ([]store.OutboxEvent, error) {
	var out []store.OutboxEvent
	for _, event := range f.events {
		if event.CreatedAt.After(offset.LastEventTime) {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeFeedStore) GetFeedOffset(ctx context.Context) (store.FeedOffset, error) {
	return f.savedOffset, nil
}

func (f *fakeFeedStore) UpdateFeedOffset(ctx context.Context, offset store.FeedOffset) error {
	f.savedOffset = offset
	return nil
}

func (f *fakeFeedStore) CleanupOutbox(ctx context.Context, before time.Time) error {
	f.cleanupCalls++
	return nil
}

type captureHub struct {
	payloads []string
	metas    []hub.Subscription
}

func (c *captureHub) Broadcast(payload []byte, meta hub.Subscription) {
	c.payloads = append(c.payloads, string(payload))
	c.metas = append(c.metas, meta)
}

func TestPollBroadcastsAndAdvancesOffset(t *testing.T) {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	st := &fakeFeedStore{
		events: []store.OutboxEvent{
			{EventID: "e1", QueueID: "q1", Type: "ticket.created", Payload: json.RawMessage(`{"ticket_number":1}`), CreatedAt: base},
			{EventID: "e2", QueueID: "q1", Type: "queue.updated", Payload: json.RawMessage(`{"last_issued_number":1}`), CreatedAt: base.Add(time.Second)},
		},
	}
	h := &captureHub{}
	n := New(st, h, Config{})

	if err := n.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	if len(h.payloads) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(h.payloads))
	}
	if h.metas[0].QueueID != "q1" {
		t.Fatalf("expected broadcast scoped to queue q1, got %+v", h.metas[0])
	}
	if st.savedOffset.LastEventID != "e2" || !st.savedOffset.LastEventTime.Equal(base.Add(time.Second)) {
		t.Fatalf("expected offset at e2, got %+v", st.savedOffset)
	}
	if st.cleanupCalls != 1 {
		t.Fatalf("expected one cleanup call, got %d", st.cleanupCalls)
	}

	var env eventEnvelope
	if err := json.Unmarshal([]byte(h.payloads[0]), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Type != "ticket.created" {
		t.Fatalf("unexpected envelope type %s", env.Type)
	}
}

func TestPollNothingNew(t *testing.T) {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	st := &fakeFeedStore{
		events: []store.OutboxEvent{
			{EventID: "e1", QueueID: "q1", Type: "ticket.created", CreatedAt: base},
		},
		savedOffset: store.FeedOffset{LastEventTime: base, LastEventID: "e1"},
	}
	h := &captureHub{}
	n := New(st, h, Config{})
	n.offset = st.savedOffset

	if err := n.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(h.payloads) != 0 {
		t.Fatalf("expected no broadcasts, got %d", len(h.payloads))
	}
	if st.cleanupCalls != 0 {
		t.Fatalf("expected no cleanup on empty batch")
	}
}
