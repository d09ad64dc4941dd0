package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"queueboard/internal/store"

	"github.com/google/uuid"
)

type Handler struct {
	store store.QueueStore
}

type createQueueRequest struct {
	RequestID string `json:"request_id"`
	QueueID   string `json:"queue_id"`
	Name      string `json:"name"`
}

type issueTicketRequest struct {
	RequestID string `json:"request_id"`
}

type queueActionRequest struct {
	RequestID string `json:"request_id"`
}

type ticketActionRequest struct {
	RequestID string `json:"request_id"`
	QueueID   string `json:"queue_id"`
}

type advanceResponse struct {
	NoneWaiting bool `json:"none_waiting"`
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(store store.QueueStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/queues", h.handleCreateQueue)
	mux.HandleFunc("/api/queues/", h.handleQueueSubtree)
	mux.HandleFunc("/api/tickets/", h.handleTicketSubtree)
	mux.HandleFunc("/api/events", h.handleEvents)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleCreateQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createQueueRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.QueueID = strings.TrimSpace(req.QueueID)
	req.Name = strings.TrimSpace(req.Name)

	if req.Name == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if req.QueueID == "" {
		req.QueueID = uuid.NewString()
	} else if !isValidUUID(req.QueueID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "queue_id must be a UUID")
		return
	}

	queue, created, err := h.store.CreateQueue(r.Context(), req.QueueID, req.Name)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, queue)
}

// handleQueueSubtree dispatches /api/queues/{id}[/tickets | /actions/{action}].
func (h *Handler) handleQueueSubtree(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/queues/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	queueID := parts[0]
	if !isValidUUID(queueID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "queue_id must be a UUID")
		return
	}

	switch {
	case len(parts) == 1:
		h.handleQueueSnapshot(w, r, queueID)
	case len(parts) == 2 && parts[1] == "tickets":
		switch r.Method {
		case http.MethodGet:
			h.handleTicketSnapshot(w, r, queueID)
		case http.MethodPost:
			h.handleIssueTicket(w, r, queueID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 3 && parts[1] == "actions":
		h.handleQueueAction(w, r, queueID, parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleQueueSnapshot(w http.ResponseWriter, r *http.Request, queueID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	queue, found, err := h.store.GetQueue(r.Context(), queueID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	if !found {
		writeError(w, "", http.StatusNotFound, "queue_not_found", "queue not found")
		return
	}

	writeJSON(w, http.StatusOK, queue)
}

func (h *Handler) handleTicketSnapshot(w http.ResponseWriter, r *http.Request, queueID string) {
	tickets, err := h.store.SnapshotTickets(r.Context(), queueID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleIssueTicket(w http.ResponseWriter, r *http.Request, queueID string) {
	var req issueTicketRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	if req.RequestID == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id is required")
		return
	}
	if !isValidUUID(req.RequestID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id must be a UUID")
		return
	}

	ticket, _, err := h.store.IssueTicket(r.Context(), store.IssueTicketInput{
		RequestID: req.RequestID,
		QueueID:   queueID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleQueueAction(w http.ResponseWriter, r *http.Request, queueID, action string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "advance":
		h.handleAdvance(w, r, queueID)
	case "pause":
		h.handleSetPaused(w, r, queueID, true)
	case "resume":
		h.handleSetPaused(w, r, queueID, false)
	case "recall":
		h.handleRecall(w, r, queueID)
	case "reset":
		h.handleReset(w, r, queueID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request, queueID string) {
	req, ok := decodeQueueAction(w, r)
	if !ok {
		return
	}

	ticket, _, err := h.store.AdvanceServing(r.Context(), store.AdvanceInput{
		RequestID: req.RequestID,
		QueueID:   queueID,
		CalledAt:  time.Now().UTC(),
	})
	if err != nil {
		// An empty queue is a normal outcome of advance, not a failure.
		if errors.Is(err, store.ErrNoneWaiting) {
			writeJSON(w, http.StatusOK, advanceResponse{NoneWaiting: true})
			return
		}
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleSetPaused(w http.ResponseWriter, r *http.Request, queueID string, paused bool) {
	queue, err := h.store.SetPaused(r.Context(), queueID, paused)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, queue)
}

func (h *Handler) handleRecall(w http.ResponseWriter, r *http.Request, queueID string) {
	queue, err := h.store.TouchLastCalledAt(r.Context(), queueID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, queue)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request, queueID string) {
	req, ok := decodeQueueAction(w, r)
	if !ok {
		return
	}

	queue, _, err := h.store.ResetQueue(r.Context(), store.ResetInput{
		RequestID: req.RequestID,
		QueueID:   queueID,
		ResetAt:   time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, queue)
}

// handleTicketSubtree dispatches /api/tickets/{id}[/actions/{action}].
func (h *Handler) handleTicketSubtree(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/tickets/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	ticketID := parts[0]
	if !isValidUUID(ticketID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "ticket_id must be a UUID")
		return
	}

	switch {
	case len(parts) == 1:
		h.handleGetTicket(w, r, ticketID)
	case len(parts) == 3 && parts[1] == "actions":
		h.handleTicketAction(w, r, ticketID, parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	queueID := strings.TrimSpace(r.URL.Query().Get("queue_id"))
	if queueID == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "queue_id is required")
		return
	}
	if !isValidUUID(queueID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "queue_id must be a UUID")
		return
	}

	ticket, found, err := h.store.GetTicket(r.Context(), queueID, ticketID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	if !found {
		writeError(w, "", http.StatusNotFound, "ticket_not_found", "ticket not found")
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicketAction(w http.ResponseWriter, r *http.Request, ticketID, action string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ticketActionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.QueueID = strings.TrimSpace(req.QueueID)
	if req.RequestID == "" || req.QueueID == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id and queue_id are required")
		return
	}
	if !isValidUUID(req.RequestID) || !isValidUUID(req.QueueID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id and queue_id must be UUIDs")
		return
	}

	input := store.TicketActionInput{
		RequestID:  req.RequestID,
		QueueID:    req.QueueID,
		TicketID:   ticketID,
		OccurredAt: time.Now().UTC(),
	}

	var (
		ticket interface{}
		err    error
	)
	switch action {
	case "cancel":
		ticket, _, err = h.store.CancelTicket(r.Context(), input)
	case "complete":
		ticket, _, err = h.store.CompleteTicket(r.Context(), input)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	afterRaw := strings.TrimSpace(r.URL.Query().Get("after"))
	var after time.Time
	if afterRaw != "" {
		parsed, err := time.Parse(time.RFC3339, afterRaw)
		if err != nil {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "after must be RFC3339 timestamp")
			return
		}
		after = parsed
	}

	limit := 100
	if limitRaw := strings.TrimSpace(r.URL.Query().Get("limit")); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed <= 0 {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := h.store.ListOutboxEvents(r.Context(), after, limit)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// decodeQueueAction reads an action body whose only field is request_id.
func decodeQueueAction(w http.ResponseWriter, r *http.Request) (queueActionRequest, bool) {
	var req queueActionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return req, false
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	if req.RequestID == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id is required")
		return req, false
	}
	if !isValidUUID(req.RequestID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id must be a UUID")
		return req, false
	}

	return req, true
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrQueueNotFound):
		return http.StatusNotFound, "queue_not_found", "queue not found"
	case errors.Is(err, store.ErrQueuePaused):
		return http.StatusConflict, "queue_paused", "queue is paused"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "ticket state does not allow this action"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
