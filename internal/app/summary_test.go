package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hylla/flyt/internal/domain"
)

func TestWeekStart(t *testing.T) {
	cases := []struct {
		day  time.Time
		want string
	}{
		{time.Date(2025, time.March, 12, 15, 30, 0, 0, time.UTC), "2025-03-10"}, // Wednesday
		{time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), "2025-03-10"},  // Monday
		{time.Date(2025, time.March, 16, 23, 0, 0, 0, time.UTC), "2025-03-10"}, // Sunday
	}
	for _, tc := range cases {
		if got := weekStart(tc.day).Format(time.DateOnly); got != tc.want {
			t.Errorf("weekStart(%v) = %s, want %s", tc.day, got, tc.want)
		}
	}
}

func TestWeeklySummary(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	done, _ := svc.CreateTask(ctx, CreateTaskInput{Title: "ship report", Status: domain.StatusToday, Category: domain.CategoryWork})
	svc.ToggleComplete(ctx, done.ID)
	svc.CreateTask(ctx, CreateTaskInput{Title: "open item", Status: domain.StatusToday})
	svc.CreateTask(ctx, CreateTaskInput{Title: "someday", Status: domain.StatusBacklog})

	// Completed long before this week; must not count.
	old := domain.Task{
		ID: "old", Title: "ancient", Status: domain.StatusArchived,
		Category: domain.CategoryGeneral, IsCompleted: true,
		CreatedAt: testNow.AddDate(0, -2, 0), UpdatedAt: testNow.AddDate(0, -2, 0),
	}
	oldDone := testNow.AddDate(0, -2, 0)
	old.CompletedAt = &oldDone
	repo.tasks[old.ID] = old

	summary, err := svc.WeeklySummary(ctx, testNow)
	if err != nil {
		t.Fatalf("WeeklySummary: %v", err)
	}
	if summary.WeekStart.Format(time.DateOnly) != "2025-03-10" {
		t.Errorf("week start = %v", summary.WeekStart)
	}
	if len(summary.Completed) != 1 || summary.Completed[0].Title != "ship report" {
		t.Fatalf("completed = %v", summary.Completed)
	}
	if summary.Created != 3 {
		t.Errorf("created = %d, want 3", summary.Created)
	}
	if summary.CompletedByCategory[domain.CategoryWork] != 1 {
		t.Errorf("work completions = %d, want 1", summary.CompletedByCategory[domain.CategoryWork])
	}
	if summary.OpenBacklog != 1 {
		t.Errorf("open backlog = %d, want 1", summary.OpenBacklog)
	}

	md := summary.Markdown()
	if !strings.Contains(md, "Week of Mar 10, 2025") {
		t.Errorf("markdown missing week header:\n%s", md)
	}
	if !strings.Contains(md, "- [x] ship report") {
		t.Errorf("markdown missing completed task:\n%s", md)
	}
}
