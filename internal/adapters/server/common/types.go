// Package common holds the app-facing service port and wire payloads shared
// by the REST and MCP transports.
package common

import (
	"context"
	"time"

	"github.com/hylla/flyt/internal/app"
	"github.com/hylla/flyt/internal/domain"
	"github.com/hylla/flyt/internal/parse"
)

// TaskService is the slice of the application service the transports need.
type TaskService interface {
	CreateTask(ctx context.Context, in app.CreateTaskInput) (domain.Task, error)
	CaptureTask(ctx context.Context, input string) (domain.Task, error)
	PreviewTask(ctx context.Context, input string) (parse.Draft, domain.Status, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	ListTasks(ctx context.Context) ([]domain.Task, error)
	ListTasksByStatus(ctx context.Context, status domain.Status) ([]domain.Task, error)
	MoveTask(ctx context.Context, id string, status domain.Status) (domain.Task, error)
	ApplyReorder(ctx context.Context, status domain.Status, orderedIDs []string) error
	UpdateTaskDetails(ctx context.Context, id string, in app.UpdateTaskDetailsInput) (domain.Task, error)
	ToggleComplete(ctx context.Context, id string) (domain.Task, error)
	ArchiveTask(ctx context.Context, id string) (domain.Task, error)
	UnarchiveTask(ctx context.Context, id string, dest domain.Status) (domain.Task, error)
	ArchiveAllCompleted(ctx context.Context) (int, error)
	DeleteTask(ctx context.Context, id string) error
	WeeklySummary(ctx context.Context, now time.Time) (app.WeeklySummary, error)
}

// TaskPayload is the wire representation of one task.
type TaskPayload struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Status           string     `json:"status"`
	Order            int        `json:"order"`
	Category         string     `json:"category"`
	Tags             []string   `json:"tags,omitempty"`
	ScheduledDate    string     `json:"scheduled_date,omitempty"`
	ScheduledTime    string     `json:"scheduled_time,omitempty"`
	EstimatedMinutes int        `json:"estimated_minutes,omitempty"`
	IsCompleted      bool       `json:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TaskPayloadFromDomain converts one domain task for the wire.
func TaskPayloadFromDomain(t domain.Task) TaskPayload {
	payload := TaskPayload{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Status:           string(t.Status),
		Order:            t.Order,
		Category:         string(t.Category),
		Tags:             t.Tags,
		ScheduledTime:    t.ScheduledTime,
		EstimatedMinutes: t.EstimatedMinutes,
		IsCompleted:      t.IsCompleted,
		CompletedAt:      t.CompletedAt,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if t.ScheduledDate != nil {
		payload.ScheduledDate = t.ScheduledDate.Format(time.DateOnly)
	}
	return payload
}

// TaskPayloadsFromDomain converts a task list for the wire.
func TaskPayloadsFromDomain(tasks []domain.Task) []TaskPayload {
	out := make([]TaskPayload, len(tasks))
	for i, t := range tasks {
		out[i] = TaskPayloadFromDomain(t)
	}
	return out
}

// DraftPayload is the wire representation of a parse preview.
type DraftPayload struct {
	Title            string   `json:"title"`
	ScheduledDate    string   `json:"scheduled_date,omitempty"`
	ScheduledTime    string   `json:"scheduled_time,omitempty"`
	EstimatedMinutes int      `json:"estimated_minutes,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Category         string   `json:"category,omitempty"`
	Status           string   `json:"status"`
}

// DraftPayloadFromParse converts a draft and its derived bucket for the wire.
func DraftPayloadFromParse(draft parse.Draft, status domain.Status) DraftPayload {
	payload := DraftPayload{
		Title:            draft.Title,
		ScheduledTime:    draft.ScheduledTime,
		EstimatedMinutes: draft.EstimatedMinutes,
		Tags:             draft.Tags,
		Category:         string(draft.Category),
		Status:           string(status),
	}
	if draft.ScheduledDate != nil {
		payload.ScheduledDate = draft.ScheduledDate.Format(time.DateOnly)
	}
	return payload
}
