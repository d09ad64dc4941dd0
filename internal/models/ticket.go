package models

import "time"

type Ticket struct {
	TicketID     string     `json:"ticket_id"`
	QueueID      string     `json:"queue_id"`
	Epoch        int64      `json:"epoch"`
	TicketNumber int64      `json:"ticket_number"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	RequestID    string     `json:"request_id,omitempty"`
	CalledAt     *time.Time `json:"called_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

const (
	StatusWaiting   = "waiting"
	StatusServing   = "serving"
	StatusCalled    = "called"
	StatusCancelled = "cancelled"
)
