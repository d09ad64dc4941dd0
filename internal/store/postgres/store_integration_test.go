package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"queueboard/internal/database"
	"queueboard/internal/models"
	"queueboard/internal/store"
	"queueboard/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestIssueTicketConcurrency(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	queueID := createQueue(t, ctx, st)

	var wg sync.WaitGroup
	results := make(chan issueResult, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, _, err := st.IssueTicket(ctx, store.IssueTicketInput{
				RequestID: uuid.NewString(),
				QueueID:   queueID,
			})
			results <- issueResult{number: ticket.TicketNumber, err: err}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for result := range results {
		if result.err != nil {
			t.Fatalf("issue error: %v", result.err)
		}
		if seen[result.number] {
			t.Fatalf("duplicate ticket number %d", result.number)
		}
		seen[result.number] = true
	}
	for want := int64(1); want <= 3; want++ {
		if !seen[want] {
			t.Fatalf("expected number %d to be issued, got %v", want, seen)
		}
	}

	queue, found, err := st.GetQueue(ctx, queueID)
	if err != nil || !found {
		t.Fatalf("get queue: found=%v err=%v", found, err)
	}
	if queue.LastIssuedNumber != 3 || queue.CurrentNumber != 0 {
		t.Fatalf("unexpected counters after issuance: %+v", queue)
	}
}

func TestIssueTicketIdempotency(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	queueID := createQueue(t, ctx, st)
	requestID := uuid.NewString()

	first, created, err := st.IssueTicket(ctx, store.IssueTicketInput{RequestID: requestID, QueueID: queueID})
	if err != nil || !created {
		t.Fatalf("first issue: created=%v err=%v", created, err)
	}
	second, created, err := st.IssueTicket(ctx, store.IssueTicketInput{RequestID: requestID, QueueID: queueID})
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if created {
		t.Fatalf("expected duplicate request to reuse existing ticket")
	}
	if first.TicketID != second.TicketID || first.TicketNumber != second.TicketNumber {
		t.Fatalf("expected same ticket for duplicate request: %+v vs %+v", first, second)
	}

	var count int
	row := pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM outbox_events WHERE type = 'ticket.created'
	`)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count outbox events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 ticket.created event, got %d", count)
	}
}

func TestAdvanceSkipsCancelledTickets(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	queueID := createQueue(t, ctx, st)
	issueTicket(t, ctx, st, queueID)
	second := issueTicket(t, ctx, st, queueID)
	issueTicket(t, ctx, st, queueID)

	if _, _, err := st.CancelTicket(ctx, store.TicketActionInput{
		RequestID: uuid.NewString(),
		QueueID:   queueID,
		TicketID:  second.TicketID,
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	first, _, err := st.AdvanceServing(ctx, store.AdvanceInput{RequestID: uuid.NewString(), QueueID: queueID})
	if err != nil {
		t.Fatalf("first advance: %v", err)
	}
	if first.TicketNumber != 1 || first.Status != models.StatusServing {
		t.Fatalf("expected ticket 1 serving, got %+v", first)
	}

	next, _, err := st.AdvanceServing(ctx, store.AdvanceInput{RequestID: uuid.NewString(), QueueID: queueID})
	if err != nil {
		t.Fatalf("second advance: %v", err)
	}
	if next.TicketNumber != 3 {
		t.Fatalf("expected cancelled ticket 2 skipped, got %d", next.TicketNumber)
	}

	previous, found, err := st.GetTicket(ctx, queueID, first.TicketID)
	if err != nil || !found {
		t.Fatalf("get previous ticket: found=%v err=%v", found, err)
	}
	if previous.Status != models.StatusCalled {
		t.Fatalf("expected previous serving ticket closed out, got %s", previous.Status)
	}

	queue, _, err := st.GetQueue(ctx, queueID)
	if err != nil {
		t.Fatalf("get queue: %v", err)
	}
	if queue.CurrentNumber != 3 {
		t.Fatalf("expected current_number 3, got %d", queue.CurrentNumber)
	}
	if queue.LastCalledAt == nil {
		t.Fatalf("expected last_called_at set after advance")
	}
}

func TestAdvanceEmptyQueueLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	queueID := createQueue(t, ctx, st)
	requestID := uuid.NewString()

	_, _, err := st.AdvanceServing(ctx, store.AdvanceInput{RequestID: requestID, QueueID: queueID})
	if !errors.Is(err, store.ErrNoneWaiting) {
		t.Fatalf("expected ErrNoneWaiting, got %v", err)
	}

	// A retry with the same request id must give the same answer.
	_, _, err = st.AdvanceServing(ctx, store.AdvanceInput{RequestID: requestID, QueueID: queueID})
	if !errors.Is(err, store.ErrNoneWaiting) {
		t.Fatalf("expected ErrNoneWaiting on retry, got %v", err)
	}

	queue, _, err := st.GetQueue(ctx, queueID)
	if err != nil {
		t.Fatalf("get queue: %v", err)
	}
	if queue.CurrentNumber != 0 || queue.LastIssuedNumber != 0 || queue.LastCalledAt != nil {
		t.Fatalf("expected untouched queue, got %+v", queue)
	}
}

func TestPausedQueueRejectsIssuance(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	queueID := createQueue(t, ctx, st)
	if _, err := st.SetPaused(ctx, queueID, true); err != nil {
		t.Fatalf("pause: %v", err)
	}

	_, _, err := st.IssueTicket(ctx, store.IssueTicketInput{RequestID: uuid.NewString(), QueueID: queueID})
	if !errors.Is(err, store.ErrQueuePaused) {
		t.Fatalf("expected ErrQueuePaused, got %v", err)
	}

	if _, err := st.SetPaused(ctx, queueID, false); err != nil {
		t.Fatalf("resume: %v", err)
	}
	ticket := issueTicket(t, ctx, st, queueID)
	if ticket.TicketNumber != 1 {
		t.Fatalf("expected numbering to continue from 1 after resume, got %d", ticket.TicketNumber)
	}
}

func TestResetStartsNewEpoch(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	queueID := createQueue(t, ctx, st)
	issueTicket(t, ctx, st, queueID)
	issueTicket(t, ctx, st, queueID)
	if _, _, err := st.AdvanceServing(ctx, store.AdvanceInput{RequestID: uuid.NewString(), QueueID: queueID}); err != nil {
		t.Fatalf("advance: %v", err)
	}

	queue, _, err := st.ResetQueue(ctx, store.ResetInput{RequestID: uuid.NewString(), QueueID: queueID})
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if queue.CurrentNumber != 0 || queue.LastIssuedNumber != 0 || queue.Epoch != 2 {
		t.Fatalf("expected zeroed counters and bumped epoch, got %+v", queue)
	}
	if queue.ResetAt == nil {
		t.Fatalf("expected reset_at stamped")
	}
	if queue.LastCalledAt != nil {
		t.Fatalf("expected last_called_at cleared on reset")
	}

	tickets, err := st.SnapshotTickets(ctx, queueID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(tickets) != 0 {
		t.Fatalf("expected old-epoch tickets out of the snapshot, got %d", len(tickets))
	}

	fresh := issueTicket(t, ctx, st, queueID)
	if fresh.TicketNumber != 1 || fresh.Epoch != 2 {
		t.Fatalf("expected numbering restarted in new epoch, got %+v", fresh)
	}
}

func TestCompleteRequiresServing(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	queueID := createQueue(t, ctx, st)
	ticket := issueTicket(t, ctx, st, queueID)

	_, _, err := st.CompleteTicket(ctx, store.TicketActionInput{
		RequestID: uuid.NewString(),
		QueueID:   queueID,
		TicketID:  ticket.TicketID,
	})
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for waiting ticket, got %v", err)
	}

	if _, _, err := st.AdvanceServing(ctx, store.AdvanceInput{RequestID: uuid.NewString(), QueueID: queueID}); err != nil {
		t.Fatalf("advance: %v", err)
	}

	done, _, err := st.CompleteTicket(ctx, store.TicketActionInput{
		RequestID: uuid.NewString(),
		QueueID:   queueID,
		TicketID:  ticket.TicketID,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != models.StatusCalled || done.CompletedAt == nil {
		t.Fatalf("expected completed ticket, got %+v", done)
	}
}

func TestRecallOnlyTouchesTimestamp(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	queueID := createQueue(t, ctx, st)
	issueTicket(t, ctx, st, queueID)

	queue, err := st.TouchLastCalledAt(ctx, queueID)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if queue.LastCalledAt == nil {
		t.Fatalf("expected last_called_at set")
	}
	if queue.CurrentNumber != 0 || queue.LastIssuedNumber != 1 {
		t.Fatalf("expected counters untouched by recall, got %+v", queue)
	}
}

type issueResult struct {
	number int64
	err    error
}

func setupTestStore(t *testing.T, ctx context.Context) (*Store, *pgxpool.Pool, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := createSchema(ctx, dsn, schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	pool, err := newPoolWithSchema(ctx, dsn, schema)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	if err := database.NewMigrator(pool, migrations.FS).Run(ctx); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	st := NewStore(pool)
	cleanup := func() {
		pool.Close()
		_ = dropSchema(context.Background(), dsn, schema)
	}
	return st, pool, cleanup
}

func createSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "CREATE SCHEMA "+schema)
	return err
}

func dropSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
	return err
}

func newPoolWithSchema(ctx context.Context, dsn, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	return pgxpool.NewWithConfig(ctx, cfg)
}

func createQueue(t *testing.T, ctx context.Context, st *Store) string {
	t.Helper()
	queueID := uuid.NewString()
	if _, _, err := st.CreateQueue(ctx, queueID, "Test Queue"); err != nil {
		t.Fatalf("create queue: %v", err)
	}
	return queueID
}

func issueTicket(t *testing.T, ctx context.Context, st *Store, queueID string) models.Ticket {
	t.Helper()
	ticket, _, err := st.IssueTicket(ctx, store.IssueTicketInput{
		RequestID: uuid.NewString(),
		QueueID:   queueID,
	})
	if err != nil {
		t.Fatalf("issue ticket: %v", err)
	}
	return ticket
}
