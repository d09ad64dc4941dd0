package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"queueboard/internal/models"
	"queueboard/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const queueColumns = "queue_id, name, current_number, last_issued_number, is_paused, epoch, last_called_at, reset_at, created_at"

const ticketColumns = "ticket_id, queue_id, epoch, ticket_number, status, created_at, request_id, called_at, completed_at"

func (s *Store) CreateQueue(ctx context.Context, queueID, name string) (models.Queue, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Queue{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var queue models.Queue
	row := tx.QueryRow(ctx, `
		INSERT INTO queues (queue_id, name, current_number, last_issued_number, is_paused, epoch, created_at)
		VALUES ($1, $2, 0, 0, FALSE, 1, $3)
		ON CONFLICT (queue_id) DO NOTHING
		RETURNING `+queueColumns+`
	`, queueID, name, time.Now().UTC())
	if err = scanQueue(row, &queue); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return models.Queue{}, false, err
		}
		// Provisioning is idempotent: a second create returns the
		// existing queue untouched.
		existing, found, err := getQueueTx(ctx, tx, queueID)
		if err != nil {
			return models.Queue{}, false, err
		}
		if !found {
			return models.Queue{}, false, store.ErrQueueNotFound
		}
		if err = tx.Commit(ctx); err != nil {
			return models.Queue{}, false, err
		}
		return existing, false, nil
	}

	if err = insertOutboxEvent(ctx, tx, queue.QueueID, "queue.created", queuePayload(queue)); err != nil {
		return models.Queue{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Queue{}, false, err
	}
	return queue, true, nil
}

func (s *Store) GetQueue(ctx context.Context, queueID string) (models.Queue, bool, error) {
	var queue models.Queue
	row := s.pool.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM queues
		WHERE queue_id = $1
	`, queueID)
	if err := scanQueue(row, &queue); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Queue{}, false, nil
		}
		return models.Queue{}, false, err
	}
	return queue, true, nil
}

// IssueTicket is the sequencer: the increment of last_issued_number and the
// read-back of the new value happen in one conditional UPDATE, so two
// concurrent callers can never receive the same number. The ticket row is
// inserted in the same transaction; a failed insert rolls the increment back,
// which means no committed number ever lacks a ticket record.
func (s *Store) IssueTicket(ctx context.Context, input store.IssueTicketInput) (models.Ticket, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, err := findTicketByRequestID(ctx, tx, input.RequestID)
	if err != nil {
		return models.Ticket{}, false, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.Ticket{}, false, err
		}
		return existing, false, nil
	}

	var number int64
	var epoch int64
	var currentNumber int64
	row := tx.QueryRow(ctx, `
		UPDATE queues
		SET last_issued_number = last_issued_number + 1
		WHERE queue_id = $1 AND is_paused = FALSE
		RETURNING last_issued_number, epoch, current_number
	`, input.QueueID)
	if err = row.Scan(&number, &epoch, &currentNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_, found, lookupErr := getQueueTx(ctx, tx, input.QueueID)
			if lookupErr != nil {
				err = lookupErr
				return models.Ticket{}, false, err
			}
			if !found {
				err = store.ErrQueueNotFound
				return models.Ticket{}, false, err
			}
			err = store.ErrQueuePaused
			return models.Ticket{}, false, err
		}
		return models.Ticket{}, false, err
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	ticket := models.Ticket{
		TicketID:     uuid.NewString(),
		QueueID:      input.QueueID,
		Epoch:        epoch,
		TicketNumber: number,
		Status:       models.StatusWaiting,
		CreatedAt:    createdAt,
		RequestID:    input.RequestID,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO tickets (ticket_id, request_id, queue_id, epoch, ticket_number, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ticket.TicketID, ticket.RequestID, ticket.QueueID, ticket.Epoch, ticket.TicketNumber, ticket.Status, ticket.CreatedAt)
	if err != nil {
		return models.Ticket{}, false, err
	}

	if err = insertOutboxEvent(ctx, tx, input.QueueID, "ticket.created", ticketPayload(ticket)); err != nil {
		return models.Ticket{}, false, err
	}
	if err = insertOutboxEvent(ctx, tx, input.QueueID, "queue.updated", map[string]interface{}{
		"queue_id":           input.QueueID,
		"current_number":     currentNumber,
		"last_issued_number": number,
		"epoch":              epoch,
	}); err != nil {
		return models.Ticket{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

// AdvanceServing promotes the lowest waiting ticket past current_number to
// serving and moves the pointer to its number. The queue row lock makes
// concurrent advances on one queue serially equivalent. Cancelled tickets and
// unclaimed number gaps are skipped by construction: the scan walks waiting
// ticket rows, never raw numbers.
func (s *Store) AdvanceServing(ctx context.Context, input store.AdvanceInput) (models.Ticket, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, empty, err := findActionRequest(ctx, tx, "advance", input.RequestID)
	if err != nil {
		return models.Ticket{}, false, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.Ticket{}, false, err
		}
		if empty {
			return models.Ticket{}, false, store.ErrNoneWaiting
		}
		return existing, false, nil
	}

	var currentNumber int64
	var lastIssued int64
	var epoch int64
	row := tx.QueryRow(ctx, `
		SELECT current_number, last_issued_number, epoch
		FROM queues
		WHERE queue_id = $1
		FOR UPDATE
	`, input.QueueID)
	if err = row.Scan(&currentNumber, &lastIssued, &epoch); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrQueueNotFound
			return models.Ticket{}, false, err
		}
		return models.Ticket{}, false, err
	}

	calledAt := input.CalledAt
	if calledAt.IsZero() {
		calledAt = time.Now().UTC()
	}

	var next models.Ticket
	row = tx.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE queue_id = $1 AND epoch = $2 AND status = $3 AND ticket_number > $4
		ORDER BY ticket_number ASC
		LIMIT 1
		FOR UPDATE
	`, input.QueueID, epoch, models.StatusWaiting, currentNumber)
	if err = scanTicket(row, &next); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Nobody waiting: record the request so a retry gets the
			// same answer, but leave the counters untouched.
			if err = insertActionRequest(ctx, tx, "advance", input.RequestID, input.QueueID, ""); err != nil {
				return models.Ticket{}, false, err
			}
			if err = tx.Commit(ctx); err != nil {
				return models.Ticket{}, false, err
			}
			return models.Ticket{}, false, store.ErrNoneWaiting
		}
		return models.Ticket{}, false, err
	}

	finished, err := finishServingTicket(ctx, tx, input.QueueID, epoch, calledAt)
	if err != nil {
		return models.Ticket{}, false, err
	}
	if finished != nil {
		if err = insertOutboxEvent(ctx, tx, input.QueueID, "ticket.called", ticketPayload(*finished)); err != nil {
			return models.Ticket{}, false, err
		}
	}

	row = tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $1, called_at = $2
		WHERE ticket_id = $3
		RETURNING `+ticketColumns+`
	`, models.StatusServing, calledAt, next.TicketID)
	if err = scanTicket(row, &next); err != nil {
		return models.Ticket{}, false, err
	}
	next.RequestID = input.RequestID

	_, err = tx.Exec(ctx, `
		UPDATE queues
		SET current_number = $1, last_called_at = $2
		WHERE queue_id = $3
	`, next.TicketNumber, calledAt, input.QueueID)
	if err != nil {
		return models.Ticket{}, false, err
	}

	if err = insertActionRequest(ctx, tx, "advance", input.RequestID, input.QueueID, next.TicketID); err != nil {
		return models.Ticket{}, false, err
	}
	if err = insertOutboxEvent(ctx, tx, input.QueueID, "ticket.serving", ticketPayload(next)); err != nil {
		return models.Ticket{}, false, err
	}
	if err = insertOutboxEvent(ctx, tx, input.QueueID, "queue.updated", map[string]interface{}{
		"queue_id":           input.QueueID,
		"current_number":     next.TicketNumber,
		"last_issued_number": lastIssued,
		"epoch":              epoch,
	}); err != nil {
		return models.Ticket{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, false, err
	}
	return next, true, nil
}

func (s *Store) SetPaused(ctx context.Context, queueID string, paused bool) (models.Queue, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Queue{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var queue models.Queue
	row := tx.QueryRow(ctx, `
		UPDATE queues
		SET is_paused = $1
		WHERE queue_id = $2
		RETURNING `+queueColumns+`
	`, paused, queueID)
	if err = scanQueue(row, &queue); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrQueueNotFound
			return models.Queue{}, err
		}
		return models.Queue{}, err
	}

	if err = insertOutboxEvent(ctx, tx, queueID, "queue.updated", queuePayload(queue)); err != nil {
		return models.Queue{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Queue{}, err
	}
	return queue, nil
}

// TouchLastCalledAt re-announces the current number. Only the timestamp
// changes; the event tells subscribers to replay their alert.
func (s *Store) TouchLastCalledAt(ctx context.Context, queueID string) (models.Queue, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Queue{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var queue models.Queue
	row := tx.QueryRow(ctx, `
		UPDATE queues
		SET last_called_at = $1
		WHERE queue_id = $2
		RETURNING `+queueColumns+`
	`, time.Now().UTC(), queueID)
	if err = scanQueue(row, &queue); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrQueueNotFound
			return models.Queue{}, err
		}
		return models.Queue{}, err
	}

	if err = insertOutboxEvent(ctx, tx, queueID, "queue.recalled", queuePayload(queue)); err != nil {
		return models.Queue{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Queue{}, err
	}
	return queue, nil
}

// ResetQueue starts a new numbering epoch. Both counters go to zero in a
// single UPDATE, so no reader can observe one reset without the other.
// Tickets of the old epoch keep their rows but fall out of every scan.
func (s *Store) ResetQueue(ctx context.Context, input store.ResetInput) (models.Queue, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Queue{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, found, _, err := findActionRequest(ctx, tx, "reset", input.RequestID)
	if err != nil {
		return models.Queue{}, false, err
	}
	if found {
		queue, exists, err := getQueueTx(ctx, tx, input.QueueID)
		if err != nil {
			return models.Queue{}, false, err
		}
		if !exists {
			return models.Queue{}, false, store.ErrQueueNotFound
		}
		if err = tx.Commit(ctx); err != nil {
			return models.Queue{}, false, err
		}
		return queue, false, nil
	}

	resetAt := input.ResetAt
	if resetAt.IsZero() {
		resetAt = time.Now().UTC()
	}

	var queue models.Queue
	row := tx.QueryRow(ctx, `
		UPDATE queues
		SET current_number = 0,
			last_issued_number = 0,
			is_paused = FALSE,
			last_called_at = NULL,
			epoch = epoch + 1,
			reset_at = $1
		WHERE queue_id = $2
		RETURNING `+queueColumns+`
	`, resetAt, input.QueueID)
	if err = scanQueue(row, &queue); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrQueueNotFound
			return models.Queue{}, false, err
		}
		return models.Queue{}, false, err
	}

	if err = insertActionRequest(ctx, tx, "reset", input.RequestID, input.QueueID, ""); err != nil {
		return models.Queue{}, false, err
	}
	if err = insertOutboxEvent(ctx, tx, input.QueueID, "queue.reset", queuePayload(queue)); err != nil {
		return models.Queue{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Queue{}, false, err
	}
	return queue, true, nil
}

func (s *Store) CancelTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, bool, error) {
	return s.updateTicketStatus(ctx, input, "cancel", models.StatusWaiting, models.StatusCancelled, "ticket.cancelled", "")
}

func (s *Store) CompleteTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, bool, error) {
	return s.updateTicketStatus(ctx, input, "complete", models.StatusServing, models.StatusCalled, "ticket.called", "completed_at")
}

func (s *Store) GetTicket(ctx context.Context, queueID, ticketID string) (models.Ticket, bool, error) {
	var ticket models.Ticket
	row := s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE ticket_id = $1 AND queue_id = $2
	`, ticketID, queueID)
	if err := scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, store.ErrTicketNotFound
		}
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

func (s *Store) SnapshotTickets(ctx context.Context, queueID string) ([]models.Ticket, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE queue_id = $1
			AND epoch = (SELECT epoch FROM queues WHERE queue_id = $1)
			AND status IN ('waiting', 'serving')
		ORDER BY ticket_number ASC
	`, queueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var ticket models.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT event_id, queue_id, type, payload_json, created_at
		FROM outbox_events
	`
	args := []interface{}{}
	if !after.IsZero() {
		query += " WHERE created_at > $1 ORDER BY created_at ASC LIMIT $2"
		args = append(args, after, limit)
	} else {
		query += " ORDER BY created_at ASC LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

func (s *Store) updateTicketStatus(ctx context.Context, input store.TicketActionInput, action, fromStatus, toStatus, eventType, timestampColumn string) (models.Ticket, bool, error) {
	if !store.ValidTransition(action, fromStatus) {
		return models.Ticket{}, false, store.ErrInvalidState
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, empty, err := findActionRequest(ctx, tx, action, input.RequestID)
	if err != nil {
		return models.Ticket{}, false, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.Ticket{}, false, err
		}
		if empty {
			return models.Ticket{}, false, store.ErrInvalidState
		}
		return existing, false, nil
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	updateQuery := `
		UPDATE tickets
		SET status = $1
	`
	args := []interface{}{toStatus}
	argPos := 2
	if timestampColumn != "" {
		updateQuery += fmt.Sprintf(", %s = $%d", timestampColumn, argPos)
		args = append(args, occurredAt)
		argPos++
	}
	updateQuery += fmt.Sprintf(`
		WHERE ticket_id = $%d AND queue_id = $%d AND status = $%d
		RETURNING `+ticketColumns, argPos, argPos+1, argPos+2)
	args = append(args, input.TicketID, input.QueueID, fromStatus)

	var ticket models.Ticket
	row := tx.QueryRow(ctx, updateQuery, args...)
	if err = scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_, exists, lookupErr := loadTicketStatus(ctx, tx, input.TicketID, input.QueueID)
			if lookupErr != nil {
				err = lookupErr
				return models.Ticket{}, false, err
			}
			if !exists {
				err = store.ErrTicketNotFound
				return models.Ticket{}, false, err
			}
			err = store.ErrInvalidState
			return models.Ticket{}, false, err
		}
		return models.Ticket{}, false, err
	}
	ticket.RequestID = input.RequestID

	if err = insertActionRequest(ctx, tx, action, input.RequestID, input.QueueID, ticket.TicketID); err != nil {
		return models.Ticket{}, false, err
	}
	if err = insertOutboxEvent(ctx, tx, input.QueueID, eventType, ticketPayload(ticket)); err != nil {
		return models.Ticket{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

// finishServingTicket closes out whatever ticket is still marked serving when
// the pointer moves on. Returns nil when there was none.
func finishServingTicket(ctx context.Context, tx pgx.Tx, queueID string, epoch int64, completedAt time.Time) (*models.Ticket, error) {
	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $1, completed_at = $2
		WHERE queue_id = $3 AND epoch = $4 AND status = $5
		RETURNING `+ticketColumns+`
	`, models.StatusCalled, completedAt, queueID, epoch, models.StatusServing)
	if err := scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

func getQueueTx(ctx context.Context, tx pgx.Tx, queueID string) (models.Queue, bool, error) {
	var queue models.Queue
	row := tx.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM queues
		WHERE queue_id = $1
	`, queueID)
	if err := scanQueue(row, &queue); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Queue{}, false, nil
		}
		return models.Queue{}, false, err
	}
	return queue, true, nil
}

func findTicketByRequestID(ctx context.Context, tx pgx.Tx, requestID string) (models.Ticket, bool, error) {
	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE request_id = $1
	`, requestID)
	if err := scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

func findActionRequest(ctx context.Context, tx pgx.Tx, action, requestID string) (models.Ticket, bool, bool, error) {
	var ticketID sql.NullString
	row := tx.QueryRow(ctx, `
		SELECT ticket_id
		FROM queue_action_requests
		WHERE request_id = $1 AND action = $2
	`, requestID, action)
	if err := row.Scan(&ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, false, nil
		}
		return models.Ticket{}, false, false, err
	}

	if !ticketID.Valid {
		return models.Ticket{}, true, true, nil
	}

	var ticket models.Ticket
	row = tx.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE ticket_id = $1
	`, ticketID.String)
	if err := scanTicket(row, &ticket); err != nil {
		return models.Ticket{}, false, false, err
	}
	ticket.RequestID = requestID
	return ticket, true, false, nil
}

func insertActionRequest(ctx context.Context, tx pgx.Tx, action, requestID, queueID, ticketID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO queue_action_requests (request_id, action, queue_id, ticket_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (request_id) DO NOTHING
	`, requestID, action, queueID, nullIfEmpty(ticketID), time.Now().UTC())
	return err
}

func loadTicketStatus(ctx context.Context, tx pgx.Tx, ticketID, queueID string) (string, bool, error) {
	var status string
	row := tx.QueryRow(ctx, `
		SELECT status
		FROM tickets
		WHERE ticket_id = $1 AND queue_id = $2
	`, ticketID, queueID)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return status, true, nil
}

func queuePayload(queue models.Queue) map[string]interface{} {
	return map[string]interface{}{
		"queue_id":           queue.QueueID,
		"name":               queue.Name,
		"current_number":     queue.CurrentNumber,
		"last_issued_number": queue.LastIssuedNumber,
		"is_paused":          queue.IsPaused,
		"epoch":              queue.Epoch,
		"last_called_at":     queue.LastCalledAt,
		"reset_at":           queue.ResetAt,
	}
}

func ticketPayload(ticket models.Ticket) map[string]interface{} {
	return map[string]interface{}{
		"ticket_id":     ticket.TicketID,
		"queue_id":      ticket.QueueID,
		"epoch":         ticket.Epoch,
		"ticket_number": ticket.TicketNumber,
		"status":        ticket.Status,
		"created_at":    ticket.CreatedAt,
		"request_id":    ticket.RequestID,
		"called_at":     ticket.CalledAt,
		"completed_at":  ticket.CompletedAt,
	}
}

func scanQueue(row pgx.Row, queue *models.Queue) error {
	var lastCalledAt sql.NullTime
	var resetAt sql.NullTime
	if err := row.Scan(&queue.QueueID, &queue.Name, &queue.CurrentNumber, &queue.LastIssuedNumber, &queue.IsPaused, &queue.Epoch, &lastCalledAt, &resetAt, &queue.CreatedAt); err != nil {
		return err
	}
	queue.LastCalledAt = nullTimePtr(lastCalledAt)
	queue.ResetAt = nullTimePtr(resetAt)
	return nil
}

func scanTicket(row pgx.Row, ticket *models.Ticket) error {
	var calledAt sql.NullTime
	var completedAt sql.NullTime
	var requestID sql.NullString
	if err := row.Scan(&ticket.TicketID, &ticket.QueueID, &ticket.Epoch, &ticket.TicketNumber, &ticket.Status, &ticket.CreatedAt, &requestID, &calledAt, &completedAt); err != nil {
		return err
	}
	if requestID.Valid {
		ticket.RequestID = requestID.String
	}
	ticket.CalledAt = nullTimePtr(calledAt)
	ticket.CompletedAt = nullTimePtr(completedAt)
	return nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	return &value.Time
}
