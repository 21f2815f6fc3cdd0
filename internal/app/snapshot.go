package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hylla/flyt/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "flyt.snapshot.v1"

// Snapshot represents snapshot data used by this package.
type Snapshot struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Tasks      []SnapshotTask `json:"tasks"`
}

// SnapshotTask represents snapshot task data used by this package.
type SnapshotTask struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	Status           domain.Status   `json:"status"`
	Order            int             `json:"order"`
	Category         domain.Category `json:"category"`
	Tags             []string        `json:"tags,omitempty"`
	ScheduledDate    *time.Time      `json:"scheduled_date,omitempty"`
	ScheduledTime    string          `json:"scheduled_time,omitempty"`
	EstimatedMinutes int             `json:"estimated_minutes,omitempty"`
	IsCompleted      bool            `json:"is_completed"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ExportSnapshot captures the full task list for backup or transfer.
func (s *Service) ExportSnapshot(ctx context.Context, includeArchived bool) (Snapshot, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	sortTasks(tasks)

	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock(),
	}
	for _, task := range tasks {
		if !includeArchived && task.Status == domain.StatusArchived {
			continue
		}
		snap.Tasks = append(snap.Tasks, snapshotTaskFromDomain(task))
	}
	return snap, nil
}

// ImportSnapshot upserts every task in the snapshot: known ids are updated
// in place, unknown ids are created. The snapshot is validated up front so a
// bad file changes nothing.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	for _, st := range snap.Tasks {
		task := st.toDomain()
		_, err := s.repo.GetTask(ctx, task.ID)
		switch {
		case err == nil:
			if err := s.repo.UpdateTask(ctx, task); err != nil {
				return fmt.Errorf("import task %s: %w", task.ID, err)
			}
		case errors.Is(err, ErrNotFound):
			if err := s.repo.CreateTask(ctx, task); err != nil {
				return fmt.Errorf("import task %s: %w", task.ID, err)
			}
		default:
			return err
		}
	}
	return nil
}

// Validate checks snapshot shape before any write happens.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, s.Version)
	}
	seen := make(map[string]struct{}, len(s.Tasks))
	for i, task := range s.Tasks {
		if task.ID == "" {
			return fmt.Errorf("%w: task %d has no id", ErrInvalidSnapshot, i)
		}
		if _, dup := seen[task.ID]; dup {
			return fmt.Errorf("%w: duplicate task id %q", ErrInvalidSnapshot, task.ID)
		}
		seen[task.ID] = struct{}{}
		if task.Title == "" {
			return fmt.Errorf("%w: task %q has no title", ErrInvalidSnapshot, task.ID)
		}
		if !task.Status.Valid() {
			return fmt.Errorf("%w: task %q has status %q", ErrInvalidSnapshot, task.ID, task.Status)
		}
	}
	return nil
}

func snapshotTaskFromDomain(t domain.Task) SnapshotTask {
	return SnapshotTask{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Status:           t.Status,
		Order:            t.Order,
		Category:         t.Category,
		Tags:             t.Tags,
		ScheduledDate:    copyTimePtr(t.ScheduledDate),
		ScheduledTime:    t.ScheduledTime,
		EstimatedMinutes: t.EstimatedMinutes,
		IsCompleted:      t.IsCompleted,
		CompletedAt:      copyTimePtr(t.CompletedAt),
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func (t SnapshotTask) toDomain() domain.Task {
	category := t.Category
	if category == "" {
		category = domain.CategoryGeneral
	}
	return domain.Task{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Status:           t.Status,
		Order:            t.Order,
		Category:         category,
		Tags:             t.Tags,
		ScheduledDate:    copyTimePtr(t.ScheduledDate),
		ScheduledTime:    t.ScheduledTime,
		EstimatedMinutes: t.EstimatedMinutes,
		IsCompleted:      t.IsCompleted,
		CompletedAt:      copyTimePtr(t.CompletedAt),
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func copyTimePtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}
