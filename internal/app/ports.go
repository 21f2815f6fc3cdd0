package app

import (
	"context"
	"time"

	"github.com/hylla/flyt/internal/domain"
	"github.com/hylla/flyt/internal/parse"
)

// Repository represents repository data used by this package.
type Repository interface {
	CreateTask(context.Context, domain.Task) error
	UpdateTask(context.Context, domain.Task) error
	GetTask(context.Context, string) (domain.Task, error)
	ListTasks(context.Context) ([]domain.Task, error)
	ListTasksByStatus(context.Context, domain.Status) ([]domain.Task, error)
	DeleteTask(context.Context, string) error
}

// DraftParser is the optional model-backed text parser. Implementations are
// best-effort; any error makes the service fall back to deterministic
// parsing.
type DraftParser interface {
	Enabled() bool
	ParseTask(ctx context.Context, input string, now time.Time) (parse.Draft, error)
}
