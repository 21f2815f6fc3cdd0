// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hylla/flyt/internal/adapters/server/common"
	"github.com/hylla/flyt/internal/app"
	"github.com/hylla/flyt/internal/domain"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// errInvalidRequest marks malformed request payloads.
var errInvalidRequest = errors.New("invalid request")

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	tasks common.TaskService
	clock func() time.Time
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter over the task service.
func NewHandler(tasks common.TaskService, clock func() time.Time) *Handler {
	if clock == nil {
		clock = time.Now
	}
	return &Handler{tasks: tasks, clock: clock}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(r.URL.Path)
	switch {
	case path == "tasks":
		switch r.Method {
		case http.MethodGet:
			h.handleListTasks(w, r)
		case http.MethodPost:
			h.handleCreateTask(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case path == "parse":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleParse(w, r)
	case path == "reorder":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleReorder(w, r)
	case path == "tasks/archive_completed":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleArchiveCompleted(w, r)
	case path == "summary/weekly":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleWeeklySummary(w, r)
	default:
		h.routeTaskItem(w, r, path)
	}
}

// routeTaskItem handles `tasks/{id}` and `tasks/{id}/{action}` paths.
func (h *Handler) routeTaskItem(w http.ResponseWriter, r *http.Request, path string) {
	rest, ok := strings.CutPrefix(path, "tasks/")
	if !ok || rest == "" {
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
		return
	}

	id, action, _ := strings.Cut(rest, "/")
	if id == "" || strings.Contains(action, "/") {
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.handleGetTask(w, r, id)
		case http.MethodDelete:
			h.handleDeleteTask(w, r, id)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodDelete)
		}
	case "complete":
		h.postTaskAction(w, r, func(ctx context.Context) (domain.Task, error) {
			return h.tasks.ToggleComplete(ctx, id)
		})
	case "move":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleMoveTask(w, r, id)
	case "archive":
		h.postTaskAction(w, r, func(ctx context.Context) (domain.Task, error) {
			return h.tasks.ArchiveTask(ctx, id)
		})
	case "unarchive":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleUnarchiveTask(w, r, id)
	default:
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	}
}

// handleListTasks serves GET `/tasks`, optionally filtered by `?status=`.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	statusParam := strings.TrimSpace(r.URL.Query().Get("status"))
	var (
		tasks []domain.Task
		err   error
	)
	if statusParam == "" {
		tasks, err = h.tasks.ListTasks(r.Context())
	} else {
		var status domain.Status
		status, err = domain.ParseStatus(statusParam)
		if err == nil {
			tasks, err = h.tasks.ListTasksByStatus(r.Context(), status)
		}
	}
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": common.TaskPayloadsFromDomain(tasks)})
}

type createTaskRequest struct {
	Input            string   `json:"input,omitempty"`
	Title            string   `json:"title,omitempty"`
	Description      string   `json:"description,omitempty"`
	Status           string   `json:"status,omitempty"`
	Category         string   `json:"category,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	ScheduledDate    string   `json:"scheduled_date,omitempty"`
	ScheduledTime    string   `json:"scheduled_time,omitempty"`
	EstimatedMinutes int      `json:"estimated_minutes,omitempty"`
}

// handleCreateTask serves POST `/tasks`. A payload carrying `input` is
// captured through the parser; otherwise the structured fields are used.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}

	if strings.TrimSpace(req.Input) != "" {
		task, err := h.tasks.CaptureTask(r.Context(), req.Input)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, common.TaskPayloadFromDomain(task))
		return
	}

	in := app.CreateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		Status:           domain.Status(req.Status),
		Category:         domain.Category(req.Category),
		Tags:             req.Tags,
		ScheduledTime:    req.ScheduledTime,
		EstimatedMinutes: req.EstimatedMinutes,
	}
	if req.Status != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		in.Status = status
	}
	if req.ScheduledDate != "" {
		date, err := time.ParseInLocation(time.DateOnly, req.ScheduledDate, time.UTC)
		if err != nil {
			writeErrorFrom(w, fmt.Errorf("%w: scheduled_date must be YYYY-MM-DD", errInvalidRequest))
			return
		}
		in.ScheduledDate = &date
	}

	task, err := h.tasks.CreateTask(r.Context(), in)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, common.TaskPayloadFromDomain(task))
}

type parseRequest struct {
	Input string `json:"input"`
}

// handleParse serves POST `/parse`: a dry-run preview without persistence.
func (h *Handler) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	draft, status, err := h.tasks.PreviewTask(r.Context(), req.Input)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.DraftPayloadFromParse(draft, status))
}

type reorderRequest struct {
	Status     string   `json:"status"`
	OrderedIDs []string `json:"ordered_ids"`
}

// handleReorder serves POST `/reorder` with one bucket's full id sequence.
func (h *Handler) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	if err := h.tasks.ApplyReorder(r.Context(), status, req.OrderedIDs); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type moveRequest struct {
	Status string `json:"status"`
}

// handleMoveTask serves POST `/tasks/{id}/move`.
func (h *Handler) handleMoveTask(w http.ResponseWriter, r *http.Request, id string) {
	var req moveRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := h.tasks.MoveTask(r.Context(), id, status)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.TaskPayloadFromDomain(task))
}

type unarchiveRequest struct {
	Status string `json:"status,omitempty"`
}

// handleUnarchiveTask serves POST `/tasks/{id}/unarchive`.
func (h *Handler) handleUnarchiveTask(w http.ResponseWriter, r *http.Request, id string) {
	var req unarchiveRequest
	if err := decodeOptionalJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	dest := domain.Status(strings.TrimSpace(req.Status))
	if dest != "" {
		parsed, err := domain.ParseStatus(string(dest))
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		dest = parsed
	}
	task, err := h.tasks.UnarchiveTask(r.Context(), id, dest)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.TaskPayloadFromDomain(task))
}

// handleArchiveCompleted serves POST `/tasks/archive_completed`.
func (h *Handler) handleArchiveCompleted(w http.ResponseWriter, r *http.Request) {
	archived, err := h.tasks.ArchiveAllCompleted(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"archived": archived})
}

// handleWeeklySummary serves GET `/summary/weekly`.
func (h *Handler) handleWeeklySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.tasks.WeeklySummary(r.Context(), h.clock())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"week_start":            summary.WeekStart.Format(time.DateOnly),
		"week_end":              summary.WeekEnd.Format(time.DateOnly),
		"completed":             common.TaskPayloadsFromDomain(summary.Completed),
		"created":               summary.Created,
		"archived":              summary.Archived,
		"open_backlog":          summary.OpenBacklog,
		"completed_by_category": summary.CompletedByCategory,
		"markdown":              summary.Markdown(),
	})
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request, id string) {
	task, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.TaskPayloadFromDomain(task))
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.tasks.DeleteTask(r.Context(), id); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// postTaskAction runs one body-less POST task mutation.
func (h *Handler) postTaskAction(w http.ResponseWriter, r *http.Request, fn func(context.Context) (domain.Task, error)) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	task, err := fn(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.TaskPayloadFromDomain(task))
}

// normalizePath strips the mount prefix slashes from one request path.
func normalizePath(path string) string {
	return strings.Trim(path, "/")
}

// writeErrorFrom maps service errors onto structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, app.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, app.ErrEmptyInput),
		errors.Is(err, errInvalidRequest),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidTime),
		errors.Is(err, domain.ErrInvalidOrder),
		errors.Is(err, domain.ErrNotArchived):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(errInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", errInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}

// decodeOptionalJSONBody decodes one optional JSON body and ignores empty payloads.
func decodeOptionalJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(out)
	if err == nil {
		select {
		case <-ctx.Done():
			return fmt.Errorf("request canceled: %w", ctx.Err())
		default:
			return nil
		}
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("decode request body: %w", errors.Join(errInvalidRequest, err))
}
