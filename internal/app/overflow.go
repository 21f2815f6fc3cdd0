package app

import (
	"context"

	"github.com/hylla/flyt/internal/domain"
)

// OverflowTaskTitle is the title of the auto-created backlog review task.
const OverflowTaskTitle = "Clear backlog"

// ShouldCreateOverflowTask reports whether the backlog has grown past the
// threshold without an open review task already present. Pure; evaluated
// against one task-list snapshot.
func ShouldCreateOverflowTask(tasks []domain.Task, threshold int) bool {
	open := 0
	for _, task := range tasks {
		if task.Status != domain.StatusBacklog || task.IsCompleted {
			continue
		}
		if task.Title == OverflowTaskTitle {
			return false
		}
		open++
	}
	return open > threshold
}

// EnsureBacklogOverflowTask creates the review task at most once per process
// while the overflow condition holds; the one-shot latch re-arms as soon as
// the backlog drops back under the threshold. Returns the created task and
// true when a task was created on this call.
func (s *Service) EnsureBacklogOverflowTask(ctx context.Context) (domain.Task, bool, error) {
	tasks, err := s.repo.ListTasksByStatus(ctx, domain.StatusBacklog)
	if err != nil {
		return domain.Task{}, false, err
	}

	s.overflowMu.Lock()
	defer s.overflowMu.Unlock()

	if !ShouldCreateOverflowTask(tasks, s.backlogThreshold) {
		s.overflowCreated = false
		return domain.Task{}, false, nil
	}
	if s.overflowCreated {
		return domain.Task{}, false, nil
	}

	task, err := s.CreateTask(ctx, CreateTaskInput{
		Title:       OverflowTaskTitle,
		Description: "The backlog is overflowing. Archive or reschedule what no longer matters.",
		Status:      domain.StatusBacklog,
	})
	if err != nil {
		return domain.Task{}, false, err
	}
	s.overflowCreated = true
	return task, true, nil
}
