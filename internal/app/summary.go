package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/flyt/internal/domain"
)

// WeeklySummary aggregates one Monday-to-Sunday week of activity.
type WeeklySummary struct {
	WeekStart time.Time
	WeekEnd   time.Time

	Completed []domain.Task
	Created   int
	Archived  int

	CompletedByCategory map[domain.Category]int
	OpenBacklog         int
}

// WeeklySummary builds the summary for the week containing now.
func (s *Service) WeeklySummary(ctx context.Context, now time.Time) (WeeklySummary, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return WeeklySummary{}, err
	}

	start := weekStart(now)
	end := start.AddDate(0, 0, 7)
	summary := WeeklySummary{
		WeekStart:           start,
		WeekEnd:             end,
		CompletedByCategory: make(map[domain.Category]int),
	}

	for _, task := range tasks {
		if !task.CreatedAt.Before(start) && task.CreatedAt.Before(end) {
			summary.Created++
		}
		if task.IsCompleted && task.CompletedAt != nil &&
			!task.CompletedAt.Before(start) && task.CompletedAt.Before(end) {
			summary.Completed = append(summary.Completed, task)
			summary.CompletedByCategory[task.Category]++
		}
		if task.Status == domain.StatusArchived &&
			!task.UpdatedAt.Before(start) && task.UpdatedAt.Before(end) {
			summary.Archived++
		}
		if task.Status == domain.StatusBacklog && !task.IsCompleted {
			summary.OpenBacklog++
		}
	}
	sortTasks(summary.Completed)
	return summary, nil
}

// Markdown renders the summary as a small report.
func (w WeeklySummary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Week of %s\n\n", w.WeekStart.Format("Jan 2, 2006"))
	fmt.Fprintf(&b, "- Completed: **%d**\n", len(w.Completed))
	fmt.Fprintf(&b, "- Created: **%d**\n", w.Created)
	fmt.Fprintf(&b, "- Archived: **%d**\n", w.Archived)
	fmt.Fprintf(&b, "- Open backlog: **%d**\n", w.OpenBacklog)

	if len(w.Completed) > 0 {
		b.WriteString("\n## Done\n\n")
		for _, task := range w.Completed {
			line := task.Title
			if task.Category != domain.CategoryGeneral && task.Category != "" {
				line += fmt.Sprintf(" _(%s)_", task.Category)
			}
			fmt.Fprintf(&b, "- [x] %s\n", line)
		}
	}
	return b.String()
}

// weekStart truncates now to the Monday of its week, midnight UTC.
func weekStart(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := int(day.Weekday()-time.Monday+7) % 7
	return day.AddDate(0, 0, -offset)
}
