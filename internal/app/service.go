package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hylla/flyt/internal/board"
	"github.com/hylla/flyt/internal/domain"
	"github.com/hylla/flyt/internal/parse"
)

// DefaultBacklogThreshold defines a package constant value.
const DefaultBacklogThreshold = 7

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	BacklogThreshold int
	DraftParser      DraftParser
}

// Service represents service data used by this package.
type Service struct {
	repo             Repository
	idGen            IDGenerator
	clock            Clock
	drafts           DraftParser
	backlogThreshold int

	overflowMu      sync.Mutex
	overflowCreated bool
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.BacklogThreshold <= 0 {
		cfg.BacklogThreshold = DefaultBacklogThreshold
	}

	return &Service{
		repo:             repo,
		idGen:            idGen,
		clock:            clock,
		drafts:           cfg.DraftParser,
		backlogThreshold: cfg.BacklogThreshold,
	}
}

// CreateTaskInput holds input values for create task operations.
type CreateTaskInput struct {
	Title            string
	Description      string
	Status           domain.Status
	Category         domain.Category
	Tags             []string
	ScheduledDate    *time.Time
	ScheduledTime    string
	EstimatedMinutes int
}

// CreateTask creates a task at the end of its bucket.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	if in.Status == "" {
		in.Status = domain.StatusBacklog
	}
	order, err := s.nextOrder(ctx, in.Status)
	if err != nil {
		return domain.Task{}, err
	}

	now := s.clock()
	task, err := domain.NewTask(domain.TaskInput{
		ID:               s.idGen(),
		Title:            in.Title,
		Description:      in.Description,
		Status:           in.Status,
		Order:            order,
		Category:         in.Category,
		Tags:             in.Tags,
		ScheduledDate:    in.ScheduledDate,
		ScheduledTime:    in.ScheduledTime,
		EstimatedMinutes: in.EstimatedMinutes,
	}, now)
	if err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// PreviewTask parses free text into a draft and its derived bucket without
// persisting anything. The model-backed parser is consulted first when
// configured; any failure falls back to the deterministic parser.
func (s *Service) PreviewTask(ctx context.Context, input string) (parse.Draft, domain.Status, error) {
	if strings.TrimSpace(input) == "" {
		return parse.Draft{}, "", ErrEmptyInput
	}

	now := s.clock()
	if s.drafts != nil && s.drafts.Enabled() {
		if draft, err := s.drafts.ParseTask(ctx, input, now); err == nil {
			return draft, parse.DeriveBucket(draft, now), nil
		}
	}
	draft := parse.Parse(input, now)
	return draft, parse.DeriveBucket(draft, now), nil
}

// CaptureTask parses free text and persists the resulting task.
func (s *Service) CaptureTask(ctx context.Context, input string) (domain.Task, error) {
	draft, status, err := s.PreviewTask(ctx, input)
	if err != nil {
		return domain.Task{}, err
	}
	return s.CreateTask(ctx, CreateTaskInput{
		Title:            draft.Title,
		Status:           status,
		Category:         draft.Category,
		Tags:             draft.Tags,
		ScheduledDate:    draft.ScheduledDate,
		ScheduledTime:    draft.ScheduledTime,
		EstimatedMinutes: draft.EstimatedMinutes,
	})
}

// GetTask returns one task by id.
func (s *Service) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return s.repo.GetTask(ctx, id)
}

// ListTasks returns all tasks sorted by bucket, order, then id.
func (s *Service) ListTasks(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	sortTasks(tasks)
	return tasks, nil
}

// ListTasksByStatus returns one bucket's tasks sorted by order, then id.
func (s *Service) ListTasksByStatus(ctx context.Context, status domain.Status) ([]domain.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	tasks, err := s.repo.ListTasksByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	sortTasks(tasks)
	return tasks, nil
}

// MoveTask places a task at the end of another bucket.
func (s *Service) MoveTask(ctx context.Context, id string, status domain.Status) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if task.Status == status {
		return task, nil
	}
	order, err := s.nextOrder(ctx, status)
	if err != nil {
		return domain.Task{}, err
	}
	if err := task.Move(status, order, s.clock()); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// ApplyReorder persists a new within-bucket order. Positions are assigned
// 1-based from the sequence; ids the bucket no longer contains are skipped,
// and only rows whose position actually changed are written.
func (s *Service) ApplyReorder(ctx context.Context, status domain.Status, orderedIDs []string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	tasks, err := s.repo.ListTasksByStatus(ctx, status)
	if err != nil {
		return err
	}
	byID := make(map[string]domain.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	now := s.clock()
	for i, id := range orderedIDs {
		task, ok := byID[id]
		if !ok {
			continue
		}
		position := i + 1
		if task.Order == position {
			continue
		}
		if err := task.Move(status, position, now); err != nil {
			return err
		}
		if err := s.repo.UpdateTask(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch applies drag-session commands in emission order.
func (s *Service) Dispatch(ctx context.Context, cmds []board.Command) error {
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case board.MoveCommand:
			if _, err := s.MoveTask(ctx, c.TaskID, c.Status); err != nil {
				return err
			}
		case board.ReorderCommand:
			if err := s.ApplyReorder(ctx, c.Status, c.OrderedIDs); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown command %T", cmd)
		}
	}
	return nil
}

// ToggleComplete flips a task's completion state.
func (s *Service) ToggleComplete(ctx context.Context, id string) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	task.SetCompleted(!task.IsCompleted, s.clock())
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// UpdateTaskDetailsInput holds the editable fields of one task.
type UpdateTaskDetailsInput struct {
	Title       string
	Description string
	Category    domain.Category
	Tags        []string
}

// UpdateTaskDetails replaces a task's editable fields.
func (s *Service) UpdateTaskDetails(ctx context.Context, id string, in UpdateTaskDetailsInput) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if err := task.UpdateDetails(in.Title, in.Description, in.Category, in.Tags, s.clock()); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// ArchiveTask moves a task into the archived bucket.
func (s *Service) ArchiveTask(ctx context.Context, id string) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	task.Archive(s.clock())
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// ArchiveAllCompleted archives every completed, not-yet-archived task and
// returns how many were archived.
func (s *Service) ArchiveAllCompleted(ctx context.Context) (int, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return 0, err
	}
	now := s.clock()
	archived := 0
	for _, task := range tasks {
		if !task.IsCompleted || task.Status == domain.StatusArchived {
			continue
		}
		task.Archive(now)
		if err := s.repo.UpdateTask(ctx, task); err != nil {
			return archived, err
		}
		archived++
	}
	return archived, nil
}

// UnarchiveTask returns an archived task to an active bucket; an empty
// destination means the backlog.
func (s *Service) UnarchiveTask(ctx context.Context, id string, dest domain.Status) (domain.Task, error) {
	if dest == "" {
		dest = domain.StatusBacklog
	}
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	order, err := s.nextOrder(ctx, dest)
	if err != nil {
		return domain.Task{}, err
	}
	if err := task.Unarchive(dest, order, s.clock()); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task permanently.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	return s.repo.DeleteTask(ctx, id)
}

// nextOrder returns the first free position at the end of a bucket.
func (s *Service) nextOrder(ctx context.Context, status domain.Status) (int, error) {
	tasks, err := s.repo.ListTasksByStatus(ctx, status)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, task := range tasks {
		if task.Order > max {
			max = task.Order
		}
	}
	return max + 1, nil
}

func sortTasks(tasks []domain.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Status != tasks[j].Status {
			return statusRank(tasks[i].Status) < statusRank(tasks[j].Status)
		}
		if tasks[i].Order != tasks[j].Order {
			return tasks[i].Order < tasks[j].Order
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func statusRank(status domain.Status) int {
	for i, s := range domain.AllStatuses() {
		if s == status {
			return i
		}
	}
	return len(domain.AllStatuses())
}
