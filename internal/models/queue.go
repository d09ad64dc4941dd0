package models

import "time"

type Queue struct {
	QueueID          string     `json:"queue_id"`
	Name             string     `json:"name"`
	CurrentNumber    int64      `json:"current_number"`
	LastIssuedNumber int64      `json:"last_issued_number"`
	IsPaused         bool       `json:"is_paused"`
	Epoch            int64      `json:"epoch"`
	LastCalledAt     *time.Time `json:"last_called_at,omitempty"`
	ResetAt          *time.Time `json:"reset_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
