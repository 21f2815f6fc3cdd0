// Package sqlite persists tasks in a single-file SQLite database using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/flyt/internal/app"
	"github.com/hylla/flyt/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			sort_order INTEGER NOT NULL,
			category TEXT NOT NULL DEFAULT 'general',
			tags_json TEXT NOT NULL DEFAULT '[]',
			scheduled_date TEXT,
			scheduled_time TEXT NOT NULL DEFAULT '',
			estimated_minutes INTEGER NOT NULL DEFAULT 0,
			is_completed INTEGER NOT NULL DEFAULT 0,
			completed_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status_order ON tasks(status, sort_order);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const taskColumns = `id, title, description, status, sort_order, category, tags_json,
	scheduled_date, scheduled_time, estimated_minutes, is_completed, completed_at, created_at, updated_at`

// CreateTask creates task.
func (r *Repository) CreateTask(ctx context.Context, t domain.Task) error {
	tagsJSON, err := json.Marshal(t.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tasks(`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID,
		t.Title,
		t.Description,
		string(t.Status),
		t.Order,
		string(t.Category),
		string(tagsJSON),
		nullableTS(t.ScheduledDate),
		t.ScheduledTime,
		t.EstimatedMinutes,
		boolToInt(t.IsCompleted),
		nullableTS(t.CompletedAt),
		ts(t.CreatedAt),
		ts(t.UpdatedAt),
	)
	return err
}

// UpdateTask updates state for the requested operation.
func (r *Repository) UpdateTask(ctx context.Context, t domain.Task) error {
	tagsJSON, err := json.Marshal(t.Tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, status = ?, sort_order = ?, category = ?,
			tags_json = ?, scheduled_date = ?, scheduled_time = ?, estimated_minutes = ?,
			is_completed = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`,
		t.Title,
		t.Description,
		string(t.Status),
		t.Order,
		string(t.Category),
		string(tagsJSON),
		nullableTS(t.ScheduledDate),
		t.ScheduledTime,
		t.EstimatedMinutes,
		boolToInt(t.IsCompleted),
		nullableTS(t.CompletedAt),
		ts(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// GetTask returns the requested task.
func (r *Repository) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, app.ErrNotFound
		}
		return domain.Task{}, err
	}
	return task, nil
}

// ListTasks lists every task, all buckets included.
func (r *Repository) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY status, sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListTasksByStatus lists one bucket's tasks ordered by position.
func (r *Repository) ListTasksByStatus(ctx context.Context, status domain.Status) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY sort_order, id
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// DeleteTask deletes task.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t             domain.Task
		status        string
		category      string
		tagsJSON      string
		scheduledDate sql.NullString
		isCompleted   int
		completedAt   sql.NullString
		createdAt     string
		updatedAt     string
	)
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&status,
		&t.Order,
		&category,
		&tagsJSON,
		&scheduledDate,
		&t.ScheduledTime,
		&t.EstimatedMinutes,
		&isCompleted,
		&completedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Task{}, err
	}

	t.Status = domain.Status(status)
	t.Category = domain.Category(category)
	if err := json.Unmarshal([]byte(tagsJSON), &t.Tags); err != nil {
		return domain.Task{}, fmt.Errorf("task %s tags: %w", t.ID, err)
	}
	t.ScheduledDate = parseNullTS(scheduledDate)
	t.IsCompleted = isCompleted != 0
	t.CompletedAt = parseNullTS(completedAt)
	t.CreatedAt = parseTS(createdAt)
	t.UpdatedAt = parseTS(updatedAt)
	return t, nil
}

func collectTasks(rows *sql.Rows) ([]domain.Task, error) {
	var out []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// ts formats a timestamp for storage.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseNullTS parses input into a normalized form.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
