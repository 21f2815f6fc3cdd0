package domain

import (
	"regexp"
	"slices"
	"strings"
	"time"
)

// Category splits the board into work/life contexts; general is the default.
type Category string

// CategoryWork and related constants define package defaults.
const (
	CategoryWork    Category = "work"
	CategoryLife    Category = "life"
	CategoryGeneral Category = "general"
)

var validCategories = []Category{CategoryWork, CategoryLife, CategoryGeneral}

// clockTimePattern validates normalized 24-hour HH:mm strings.
var clockTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Task represents one board entry. Order is meaningful only relative to
// tasks sharing the same Status.
type Task struct {
	ID               string
	Title            string
	Description      string
	Status           Status
	Order            int
	Category         Category
	Tags             []string
	ScheduledDate    *time.Time
	ScheduledTime    string
	EstimatedMinutes int
	IsCompleted      bool
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TaskInput holds the fields accepted when constructing a task.
type TaskInput struct {
	ID               string
	Title            string
	Description      string
	Status           Status
	Order            int
	Category         Category
	Tags             []string
	ScheduledDate    *time.Time
	ScheduledTime    string
	EstimatedMinutes int
}

// NewTask constructs a new validated task.
func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ScheduledTime = strings.TrimSpace(in.ScheduledTime)

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Title == "" {
		return Task{}, ErrInvalidTitle
	}
	if !in.Status.Valid() {
		return Task{}, ErrInvalidStatus
	}
	if in.Order < 0 {
		return Task{}, ErrInvalidOrder
	}
	if in.Category == "" {
		in.Category = CategoryGeneral
	}
	if !slices.Contains(validCategories, in.Category) {
		return Task{}, ErrInvalidCategory
	}
	if in.ScheduledTime != "" && !clockTimePattern.MatchString(in.ScheduledTime) {
		return Task{}, ErrInvalidTime
	}
	if in.EstimatedMinutes < 0 {
		in.EstimatedMinutes = 0
	}

	return Task{
		ID:               in.ID,
		Title:            in.Title,
		Description:      in.Description,
		Status:           in.Status,
		Order:            in.Order,
		Category:         in.Category,
		Tags:             normalizeTags(in.Tags),
		ScheduledDate:    normalizeDate(in.ScheduledDate),
		ScheduledTime:    in.ScheduledTime,
		EstimatedMinutes: in.EstimatedMinutes,
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}, nil
}

// Move places the task into a bucket at the given position.
func (t *Task) Move(status Status, order int, now time.Time) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if order < 0 {
		return ErrInvalidOrder
	}
	t.Status = status
	t.Order = order
	t.UpdatedAt = now.UTC()
	return nil
}

// SetCompleted flips completion. CompletedAt is set on the false->true
// transition and cleared on the true->false transition; the bucket is left
// untouched so a completed task stays in its column until archived.
func (t *Task) SetCompleted(done bool, now time.Time) {
	t.IsCompleted = done
	if done {
		ts := now.UTC()
		t.CompletedAt = &ts
	} else {
		t.CompletedAt = nil
	}
	t.UpdatedAt = now.UTC()
}

// Archive moves the task into the archived bucket.
func (t *Task) Archive(now time.Time) {
	t.Status = StatusArchived
	t.UpdatedAt = now.UTC()
}

// Unarchive restores the task into an active bucket at the given position.
func (t *Task) Unarchive(dest Status, order int, now time.Time) error {
	if t.Status != StatusArchived {
		return ErrNotArchived
	}
	if !dest.Active() {
		return ErrInvalidStatus
	}
	if order < 0 {
		return ErrInvalidOrder
	}
	t.Status = dest
	t.Order = order
	t.UpdatedAt = now.UTC()
	return nil
}

// UpdateDetails replaces the editable fields.
func (t *Task) UpdateDetails(title, description string, category Category, tags []string, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	if category == "" {
		category = CategoryGeneral
	}
	if !slices.Contains(validCategories, category) {
		return ErrInvalidCategory
	}
	t.Title = title
	t.Description = strings.TrimSpace(description)
	t.Category = category
	t.Tags = normalizeTags(tags)
	t.UpdatedAt = now.UTC()
	return nil
}

// SetSchedule replaces the scheduling fields.
func (t *Task) SetSchedule(date *time.Time, clock string, estimatedMinutes int, now time.Time) error {
	clock = strings.TrimSpace(clock)
	if clock != "" && !clockTimePattern.MatchString(clock) {
		return ErrInvalidTime
	}
	if estimatedMinutes < 0 {
		estimatedMinutes = 0
	}
	t.ScheduledDate = normalizeDate(date)
	t.ScheduledTime = clock
	t.EstimatedMinutes = estimatedMinutes
	t.UpdatedAt = now.UTC()
	return nil
}

// normalizeDate truncates to date precision in UTC.
func normalizeDate(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	ts := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &ts
}

// normalizeTags trims, lowercases, and de-duplicates while preserving order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
