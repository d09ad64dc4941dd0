package store

import "errors"

var (
	ErrQueueNotFound  = errors.New("queue not found")
	ErrQueuePaused    = errors.New("queue paused")
	ErrNoneWaiting    = errors.New("no ticket waiting")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrInvalidState   = errors.New("invalid ticket state")
)
