package store

import (
	"context"
	"encoding/json"
	"time"

	"queueboard/internal/models"
)

type IssueTicketInput struct {
	RequestID string
	QueueID   string
	CreatedAt time.Time
}

type AdvanceInput struct {
	RequestID string
	QueueID   string
	CalledAt  time.Time
}

type TicketActionInput struct {
	RequestID  string
	QueueID    string
	TicketID   string
	OccurredAt time.Time
}

type ResetInput struct {
	RequestID string
	QueueID   string
	ResetAt   time.Time
}

// QueueStore is the single mutation surface for queue counters and ticket
// state. Every operation is atomic: callers never read-then-write counters
// themselves, and concurrent calls on the same queue are serially equivalent.
type QueueStore interface {
	CreateQueue(ctx context.Context, queueID, name string) (models.Queue, bool, error)
	GetQueue(ctx context.Context, queueID string) (models.Queue, bool, error)
	IssueTicket(ctx context.Context, input IssueTicketInput) (models.Ticket, bool, error)
	AdvanceServing(ctx context.Context, input AdvanceInput) (models.Ticket, bool, error)
	SetPaused(ctx context.Context, queueID string, paused bool) (models.Queue, error)
	TouchLastCalledAt(ctx context.Context, queueID string) (models.Queue, error)
	ResetQueue(ctx context.Context, input ResetInput) (models.Queue, bool, error)
	CancelTicket(ctx context.Context, input TicketActionInput) (models.Ticket, bool, error)
	CompleteTicket(ctx context.Context, input TicketActionInput) (models.Ticket, bool, error)
	GetTicket(ctx context.Context, queueID, ticketID string) (models.Ticket, bool, error)
	SnapshotTickets(ctx context.Context, queueID string) ([]models.Ticket, error)
	ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]OutboxEvent, error)
}

type OutboxEvent struct {
	EventID   string          `json:"event_id"`
	QueueID   string          `json:"queue_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// FeedOffset marks how far the change notifier has read the outbox.
type FeedOffset struct {
	LastEventTime time.Time
	LastEventID   string
}
