package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/hylla/flyt/internal/adapters/server/common"
	"github.com/hylla/flyt/internal/app"
	"github.com/hylla/flyt/internal/domain"
	"github.com/hylla/flyt/internal/parse"
	"github.com/mark3labs/mcp-go/mcp"
)

// stubTaskService provides deterministic task responses for MCP tool tests.
type stubTaskService struct {
	tasks        []domain.Task
	captured     domain.Task
	moved        domain.Task
	toggled      domain.Task
	updated      domain.Task
	listErr      error
	captureErr   error
	moveErr      error
	toggleErr    error
	deleteErr    error
	lastCapture  string
	lastMoveID   string
	lastMoveTo   domain.Status
	lastToggleID string
	lastDeleteID string
	lastByStatus domain.Status
	lastUpdateID string
	lastUpdate   app.UpdateTaskDetailsInput
}

func (s *stubTaskService) CreateTask(_ context.Context, _ app.CreateTaskInput) (domain.Task, error) {
	return domain.Task{}, nil
}

// CaptureTask records the raw input and returns one fixture task.
func (s *stubTaskService) CaptureTask(_ context.Context, input string) (domain.Task, error) {
	s.lastCapture = input
	if s.captureErr != nil {
		return domain.Task{}, s.captureErr
	}
	return s.captured, nil
}

func (s *stubTaskService) PreviewTask(_ context.Context, _ string) (parse.Draft, domain.Status, error) {
	return parse.Draft{}, domain.StatusBacklog, nil
}

func (s *stubTaskService) GetTask(_ context.Context, _ string) (domain.Task, error) {
	return domain.Task{}, nil
}

// ListTasks returns deterministic task rows.
func (s *stubTaskService) ListTasks(_ context.Context) ([]domain.Task, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]domain.Task(nil), s.tasks...), nil
}

// ListTasksByStatus records the filter and returns the fixture rows.
func (s *stubTaskService) ListTasksByStatus(_ context.Context, status domain.Status) ([]domain.Task, error) {
	s.lastByStatus = status
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]domain.Task(nil), s.tasks...), nil
}

// MoveTask records the move request and returns one fixture task.
func (s *stubTaskService) MoveTask(_ context.Context, id string, status domain.Status) (domain.Task, error) {
	s.lastMoveID = id
	s.lastMoveTo = status
	if s.moveErr != nil {
		return domain.Task{}, s.moveErr
	}
	return s.moved, nil
}

func (s *stubTaskService) ApplyReorder(_ context.Context, _ domain.Status, _ []string) error {
	return nil
}

// UpdateTaskDetails records the update request and returns one fixture task.
func (s *stubTaskService) UpdateTaskDetails(_ context.Context, id string, in app.UpdateTaskDetailsInput) (domain.Task, error) {
	s.lastUpdateID = id
	s.lastUpdate = in
	return s.updated, nil
}

// ToggleComplete records the toggle request and returns one fixture task.
func (s *stubTaskService) ToggleComplete(_ context.Context, id string) (domain.Task, error) {
	s.lastToggleID = id
	if s.toggleErr != nil {
		return domain.Task{}, s.toggleErr
	}
	return s.toggled, nil
}

func (s *stubTaskService) ArchiveTask(_ context.Context, _ string) (domain.Task, error) {
	return domain.Task{}, nil
}

func (s *stubTaskService) UnarchiveTask(_ context.Context, _ string, _ domain.Status) (domain.Task, error) {
	return domain.Task{}, nil
}

func (s *stubTaskService) ArchiveAllCompleted(_ context.Context) (int, error) {
	return 0, nil
}

// DeleteTask records the delete request.
func (s *stubTaskService) DeleteTask(_ context.Context, id string) error {
	s.lastDeleteID = id
	return s.deleteErr
}

func (s *stubTaskService) WeeklySummary(_ context.Context, _ time.Time) (app.WeeklySummary, error) {
	return app.WeeklySummary{}, nil
}

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// callToolRequest constructs one deterministic tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()

	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "flyt-test",
				"version": "1.0.0",
			},
		},
	}
}

// newToolServer starts one MCP handler over httptest for JSON-RPC calls.
func newToolServer(t *testing.T, tasks common.TaskService) *httptest.Server {
	t.Helper()
	handler, err := NewHandler(Config{EndpointPath: "/"}, tasks)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	return server
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	handler, err := NewHandler(Config{EndpointPath: "/"}, &stubTaskService{})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	server := httptest.NewServer(handler)
	defer server.Close()

	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRejectsNilService verifies construction fails without a task service.
func TestHandlerRejectsNilService(t *testing.T) {
	if _, err := NewHandler(Config{}, nil); err == nil {
		t.Fatalf("NewHandler() error = nil, want non-nil")
	}
}

// TestHandlerRegistersTaskTools verifies MCP tool discovery lists the task tools.
func TestHandlerRegistersTaskTools(t *testing.T) {
	server := newToolServer(t, &stubTaskService{})

	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})

	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	toolNames := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		toolNames = append(toolNames, name)
	}
	for _, required := range []string{
		"list_tasks",
		"add_task",
		"complete_task",
		"move_task",
		"delete_task",
	} {
		if !slices.Contains(toolNames, required) {
			t.Fatalf("tool list missing %q: %#v", required, toolNames)
		}
	}
}

// TestListTasksToolFiltersByStatus verifies the status argument routes to the filtered lookup.
func TestListTasksToolFiltersByStatus(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tasks := &stubTaskService{
		tasks: []domain.Task{
			{ID: "t1", Title: "Review budget", Status: domain.StatusToday, Order: 1, Category: domain.CategoryWork, CreatedAt: now, UpdatedAt: now},
		},
	}
	server := newToolServer(t, tasks)

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "list_tasks", map[string]any{
		"status": "today",
	}))
	if tasks.lastByStatus != domain.StatusToday {
		t.Fatalf("status filter = %q, want %q", tasks.lastByStatus, domain.StatusToday)
	}
	text := toolResultText(t, callResp.Result)
	if !strings.Contains(text, `"id":"t1"`) {
		t.Fatalf("result text = %q, want task t1 payload", text)
	}
}

// TestAddTaskToolCapturesFreeText verifies add_task routes through free-text capture.
func TestAddTaskToolCapturesFreeText(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tasks := &stubTaskService{
		captured: domain.Task{ID: "t9", Title: "Team meeting", Status: domain.StatusToday, Order: 1, Category: domain.CategoryWork, CreatedAt: now, UpdatedAt: now},
	}
	server := newToolServer(t, tasks)

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "add_task", map[string]any{
		"title": "Team meeting today at 9am",
	}))
	if tasks.lastCapture != "Team meeting today at 9am" {
		t.Fatalf("captured input = %q, want raw title text", tasks.lastCapture)
	}
	text := toolResultText(t, callResp.Result)
	if !strings.Contains(text, `"title":"Team meeting"`) {
		t.Fatalf("result text = %q, want captured task payload", text)
	}
	if tasks.lastUpdateID != "" {
		t.Fatalf("unexpected details update for %q without description", tasks.lastUpdateID)
	}
}

// TestAddTaskToolAppliesDescription verifies the optional description lands on the created task.
func TestAddTaskToolAppliesDescription(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tasks := &stubTaskService{
		captured: domain.Task{ID: "t9", Title: "Ship release", Status: domain.StatusToday, Category: domain.CategoryWork, Tags: []string{"release"}, CreatedAt: now, UpdatedAt: now},
		updated:  domain.Task{ID: "t9", Title: "Ship release", Description: "Cut the final build.", Status: domain.StatusToday, Category: domain.CategoryWork, CreatedAt: now, UpdatedAt: now},
	}
	server := newToolServer(t, tasks)

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "add_task", map[string]any{
		"title":       "Ship release #release",
		"description": "Cut the final build.",
	}))
	if tasks.lastUpdateID != "t9" {
		t.Fatalf("update id = %q, want t9", tasks.lastUpdateID)
	}
	want := app.UpdateTaskDetailsInput{
		Title:       "Ship release",
		Description: "Cut the final build.",
		Category:    domain.CategoryWork,
		Tags:        []string{"release"},
	}
	if tasks.lastUpdate.Title != want.Title ||
		tasks.lastUpdate.Description != want.Description ||
		tasks.lastUpdate.Category != want.Category ||
		!slices.Equal(tasks.lastUpdate.Tags, want.Tags) {
		t.Fatalf("update input = %#v, want %#v", tasks.lastUpdate, want)
	}
	text := toolResultText(t, callResp.Result)
	if !strings.Contains(text, `"description":"Cut the final build."`) {
		t.Fatalf("result text = %q, want updated task payload", text)
	}
}

// TestMoveTaskToolRoutesStatus verifies move_task forwards the parsed destination bucket.
func TestMoveTaskToolRoutesStatus(t *testing.T) {
	tasks := &stubTaskService{
		moved: domain.Task{ID: "t1", Title: "Plan sprint", Status: domain.StatusTomorrow, Order: 1, Category: domain.CategoryWork},
	}
	server := newToolServer(t, tasks)

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "move_task", map[string]any{
		"task_id": "t1",
		"status":  "tomorrow",
	}))
	if tasks.lastMoveID != "t1" || tasks.lastMoveTo != domain.StatusTomorrow {
		t.Fatalf("move = (%q, %q), want (t1, tomorrow)", tasks.lastMoveID, tasks.lastMoveTo)
	}
	text := toolResultText(t, callResp.Result)
	if !strings.Contains(text, `"status":"tomorrow"`) {
		t.Fatalf("result text = %q, want moved task payload", text)
	}
}

// TestMoveTaskToolRejectsUnknownStatus verifies bad buckets surface as invalid_request errors.
func TestMoveTaskToolRejectsUnknownStatus(t *testing.T) {
	tasks := &stubTaskService{}
	server := newToolServer(t, tasks)

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "move_task", map[string]any{
		"task_id": "t1",
		"status":  "someday",
	}))
	text := toolResultText(t, callResp.Result)
	if !strings.HasPrefix(text, "invalid_request:") {
		t.Fatalf("result text = %q, want invalid_request prefix", text)
	}
	if tasks.lastMoveID != "" {
		t.Fatalf("move reached service for %q, want no call", tasks.lastMoveID)
	}
}

// TestCompleteTaskToolMapsNotFound verifies missing ids surface as not_found errors.
func TestCompleteTaskToolMapsNotFound(t *testing.T) {
	tasks := &stubTaskService{toggleErr: app.ErrNotFound}
	server := newToolServer(t, tasks)

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "complete_task", map[string]any{
		"task_id": "ghost",
	}))
	if tasks.lastToggleID != "ghost" {
		t.Fatalf("toggle id = %q, want ghost", tasks.lastToggleID)
	}
	text := toolResultText(t, callResp.Result)
	if !strings.HasPrefix(text, "not_found:") {
		t.Fatalf("result text = %q, want not_found prefix", text)
	}
}

// TestDeleteTaskToolReportsDeletion verifies delete_task forwards the id and acknowledges.
func TestDeleteTaskToolReportsDeletion(t *testing.T) {
	tasks := &stubTaskService{}
	server := newToolServer(t, tasks)

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "delete_task", map[string]any{
		"task_id": "t4",
	}))
	if tasks.lastDeleteID != "t4" {
		t.Fatalf("delete id = %q, want t4", tasks.lastDeleteID)
	}
	text := toolResultText(t, callResp.Result)
	if !strings.Contains(text, `"status":"deleted"`) {
		t.Fatalf("result text = %q, want deletion acknowledgement", text)
	}
}
