package tui

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/hylla/flyt/internal/app"
	"github.com/hylla/flyt/internal/board"
	"github.com/hylla/flyt/internal/domain"
	"github.com/hylla/flyt/internal/parse"
)

// Service represents service data used by this package.
type Service interface {
	ListTasks(context.Context) ([]domain.Task, error)
	CaptureTask(context.Context, string) (domain.Task, error)
	Dispatch(context.Context, []board.Command) error
	ToggleComplete(context.Context, string) (domain.Task, error)
	ArchiveTask(context.Context, string) (domain.Task, error)
	UnarchiveTask(context.Context, string, domain.Status) (domain.Task, error)
	ArchiveAllCompleted(context.Context) (int, error)
	DeleteTask(context.Context, string) error
	WeeklySummary(context.Context, time.Time) (app.WeeklySummary, error)
	EnsureBacklogOverflowTask(context.Context) (domain.Task, bool, error)
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeAddTask
	modeSummary
)

// loadedMsg carries one refreshed board state.
type loadedMsg struct {
	tasks []domain.Task
	err   error
}

// actionMsg carries the result of one board mutation.
type actionMsg struct {
	status string
	err    error
}

// summaryMsg carries one rendered weekly report.
type summaryMsg struct {
	summary app.WeeklySummary
	err     error
}

// Model represents model data used by this package.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	err    error

	status string

	help help.Model
	keys keyMap

	now func() time.Time

	tasks []domain.Task
	snap  *board.Snapshot

	selectedColumn int
	selectedTask   int

	drag *board.Session

	mode     inputMode
	addInput textinput.Model
	preview  parse.Draft
	bucket   domain.Status

	summary app.WeeklySummary
	md      markdownRenderer

	showCompleted bool
	showArchived  bool
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	addInput := textinput.New()
	addInput.Prompt = "> "
	addInput.Placeholder = "Team meeting tomorrow at 2pm for 1 hour #planning"
	addInput.CharLimit = 200
	m := Model{
		svc:           svc,
		status:        "loading...",
		help:          h,
		keys:          newKeyMap(),
		now:           time.Now,
		drag:          board.NewSession(),
		addInput:      addInput,
		showCompleted: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.tasks = msg.tasks
		m.snap = board.NewSnapshot(msg.tasks)
		m.clampSelection()
		if m.drag.Dragging() {
			m.focusTaskByID(m.drag.ActiveTaskID())
		}
		if m.status == "" || m.status == "loading..." {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if msg.status != "" {
			m.status = msg.status
		}
		return m, m.loadData

	case summaryMsg:
		if msg.err != nil {
			m.err = msg.err
			m.mode = modeNone
			return m, nil
		}
		m.summary = msg.summary
		m.mode = modeSummary
		return m, nil

	case tea.KeyPressMsg:
		switch m.mode {
		case modeAddTask:
			return m.handleAddTaskKey(msg)
		case modeSummary:
			return m.handleSummaryKey(msg)
		}
		if m.drag.Dragging() {
			return m.handleDragKey(msg)
		}
		return m.handleBoardKey(msg)

	default:
		return m, nil
	}
}

// handleBoardKey processes keys while browsing the board.
func (m Model) handleBoardKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading"
		return m, m.loadData
	case key.Matches(msg, m.keys.moveLeft):
		m.selectedColumn = clamp(m.selectedColumn-1, 0, len(m.columns())-1)
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.selectedColumn = clamp(m.selectedColumn+1, 0, len(m.columns())-1)
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.selectedTask++
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.selectedTask--
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.addTask):
		m.mode = modeAddTask
		m.addInput.SetValue("")
		m.preview = parse.Draft{}
		m.bucket = domain.StatusBacklog
		return m, m.addInput.Focus()
	case key.Matches(msg, m.keys.grabTask):
		task, ok := m.selectedTaskRef()
		if !ok || !task.Status.Active() {
			return m, nil
		}
		if m.drag.Start(m.snap, task.ID) {
			m.status = "moving: " + truncate(task.Title, 32)
		}
		return m, nil
	case key.Matches(msg, m.keys.toggleComplete):
		if task, ok := m.selectedTaskRef(); ok {
			return m, m.mutate(func(ctx context.Context) (string, error) {
				updated, err := m.svc.ToggleComplete(ctx, task.ID)
				if err != nil {
					return "", err
				}
				if updated.IsCompleted {
					return "completed: " + truncate(updated.Title, 32), nil
				}
				return "reopened: " + truncate(updated.Title, 32), nil
			})
		}
		return m, nil
	case key.Matches(msg, m.keys.archiveTask):
		if task, ok := m.selectedTaskRef(); ok && task.Status.Active() {
			return m, m.mutate(func(ctx context.Context) (string, error) {
				if _, err := m.svc.ArchiveTask(ctx, task.ID); err != nil {
					return "", err
				}
				return "archived: " + truncate(task.Title, 32), nil
			})
		}
		return m, nil
	case key.Matches(msg, m.keys.restoreTask):
		if task, ok := m.selectedTaskRef(); ok && task.Status == domain.StatusArchived {
			return m, m.mutate(func(ctx context.Context) (string, error) {
				restored, err := m.svc.UnarchiveTask(ctx, task.ID, domain.StatusBacklog)
				if err != nil {
					return "", err
				}
				return "restored to " + statusLabel(restored.Status), nil
			})
		}
		return m, nil
	case key.Matches(msg, m.keys.deleteTask):
		if task, ok := m.selectedTaskRef(); ok {
			return m, m.mutate(func(ctx context.Context) (string, error) {
				if err := m.svc.DeleteTask(ctx, task.ID); err != nil {
					return "", err
				}
				return "deleted: " + truncate(task.Title, 32), nil
			})
		}
		return m, nil
	case key.Matches(msg, m.keys.archiveDone):
		return m, m.mutate(func(ctx context.Context) (string, error) {
			count, err := m.svc.ArchiveAllCompleted(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("archived %d completed", count), nil
		})
	case key.Matches(msg, m.keys.weeklySummary):
		return m, m.loadSummary
	case key.Matches(msg, m.keys.toggleCompleted):
		m.showCompleted = !m.showCompleted
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.toggleArchived):
		m.showArchived = !m.showArchived
		m.selectedColumn = clamp(m.selectedColumn, 0, len(m.columns())-1)
		m.clampSelection()
		return m, nil
	default:
		return m, nil
	}
}

// handleDragKey processes keys while a task is grabbed.
func (m Model) handleDragKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancelDrag):
		cmds := m.drag.Cancel()
		m.status = "move cancelled"
		return m, m.dispatch(cmds)
	case key.Matches(msg, m.keys.dropTask):
		cmds := m.drag.End(m.snap, m.hoverTargetID())
		m.status = "ready"
		return m, m.dispatch(cmds)
	case key.Matches(msg, m.keys.moveLeft):
		m.selectedColumn = clamp(m.selectedColumn-1, 0, len(m.dropColumns())-1)
		m.clampSelection()
		return m.hover()
	case key.Matches(msg, m.keys.moveRight):
		m.selectedColumn = clamp(m.selectedColumn+1, 0, len(m.dropColumns())-1)
		m.clampSelection()
		return m.hover()
	case key.Matches(msg, m.keys.moveDown):
		m.selectedTask++
		m.clampSelection()
		return m.hover()
	case key.Matches(msg, m.keys.moveUp):
		m.selectedTask--
		m.clampSelection()
		return m.hover()
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	default:
		return m, nil
	}
}

// hover reports the current cursor position to the drag session.
func (m Model) hover() (tea.Model, tea.Cmd) {
	cmd, ok := m.drag.Over(m.snap, m.hoverTargetID())
	if !ok {
		return m, nil
	}
	return m, m.dispatch([]board.Command{cmd})
}

// hoverTargetID resolves the cursor to a task or column drop target.
func (m Model) hoverTargetID() string {
	status := m.columns()[clamp(m.selectedColumn, 0, len(m.columns())-1)]
	tasks := m.columnTasks(status)
	if len(tasks) == 0 {
		return board.ColumnTargetID(status)
	}
	return tasks[clamp(m.selectedTask, 0, len(tasks)-1)].ID
}

// handleAddTaskKey processes keys inside the quick-add prompt.
func (m Model) handleAddTaskKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.addInput.Blur()
		m.status = "ready"
		return m, nil
	case "enter":
		input := strings.TrimSpace(m.addInput.Value())
		if input == "" {
			return m, nil
		}
		m.mode = modeNone
		m.addInput.Blur()
		return m, m.captureTask(input)
	default:
		var cmd tea.Cmd
		m.addInput, cmd = m.addInput.Update(msg)
		if input := strings.TrimSpace(m.addInput.Value()); input != "" {
			m.preview = parse.Parse(input, m.now())
			m.bucket = parse.DeriveBucket(m.preview, m.now())
		} else {
			m.preview = parse.Draft{}
			m.bucket = domain.StatusBacklog
		}
		return m, cmd
	}
}

// handleSummaryKey closes the weekly report view.
func (m Model) handleSummaryKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "s", "enter":
		m.mode = modeNone
		return m, nil
	default:
		return m, nil
	}
}

// loadData refreshes the full task list.
func (m Model) loadData() tea.Msg {
	tasks, err := m.svc.ListTasks(context.Background())
	return loadedMsg{tasks: tasks, err: err}
}

// loadSummary builds the weekly report for the current clock.
func (m Model) loadSummary() tea.Msg {
	summary, err := m.svc.WeeklySummary(context.Background(), m.now())
	return summaryMsg{summary: summary, err: err}
}

// dispatch applies drag commands and reloads the board.
func (m Model) dispatch(cmds []board.Command) tea.Cmd {
	return func() tea.Msg {
		if len(cmds) > 0 {
			if err := m.svc.Dispatch(context.Background(), cmds); err != nil {
				return loadedMsg{err: err}
			}
		}
		return m.loadData()
	}
}

// mutate runs one board mutation and reports its status line.
func (m Model) mutate(fn func(context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		status, err := fn(context.Background())
		return actionMsg{status: status, err: err}
	}
}

// captureTask creates a task from free text and runs the backlog check.
func (m Model) captureTask(input string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		task, err := m.svc.CaptureTask(ctx, input)
		if err != nil {
			return actionMsg{err: err}
		}
		status := "added to " + statusLabel(task.Status)
		if _, created, overflowErr := m.svc.EnsureBacklogOverflowTask(ctx); overflowErr == nil && created {
			status += " • backlog is overflowing"
		}
		return actionMsg{status: status}
	}
}

// columns lists the visible board columns in display order.
func (m Model) columns() []domain.Status {
	cols := domain.ActiveStatuses()
	if m.showArchived {
		cols = append(cols, domain.StatusArchived)
	}
	return cols
}

// dropColumns lists drag-reachable columns; archived is not a drop target.
func (m Model) dropColumns() []domain.Status {
	return domain.ActiveStatuses()
}

// columnTasks filters the loaded tasks for one column.
func (m Model) columnTasks(status domain.Status) []domain.Task {
	out := make([]domain.Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		if task.Status != status {
			continue
		}
		if !m.showCompleted && task.IsCompleted && status != domain.StatusArchived {
			continue
		}
		out = append(out, task)
	}
	return out
}

// selectedTaskRef resolves the cursor to a concrete task.
func (m Model) selectedTaskRef() (domain.Task, bool) {
	cols := m.columns()
	if len(cols) == 0 {
		return domain.Task{}, false
	}
	tasks := m.columnTasks(cols[clamp(m.selectedColumn, 0, len(cols)-1)])
	if len(tasks) == 0 {
		return domain.Task{}, false
	}
	return tasks[clamp(m.selectedTask, 0, len(tasks)-1)], true
}

// clampSelection keeps the cursor inside the visible board.
func (m *Model) clampSelection() {
	cols := m.columns()
	m.selectedColumn = clamp(m.selectedColumn, 0, len(cols)-1)
	tasks := m.columnTasks(cols[m.selectedColumn])
	m.selectedTask = clamp(m.selectedTask, 0, max(0, len(tasks)-1))
}

// focusTaskByID moves the cursor onto one task if it is visible.
func (m *Model) focusTaskByID(id string) {
	for colIdx, status := range m.columns() {
		for taskIdx, task := range m.columnTasks(status) {
			if task.ID == id {
				m.selectedColumn = colIdx
				m.selectedTask = taskIdx
				return
			}
		}
	}
}

// View handles view.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.AltScreen = true
		return v
	}
	if !m.ready {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	if m.mode == modeSummary {
		content := m.md.render(m.summary.Markdown(), max(24, m.width-4))
		footer := statusStyle.Render("esc to close")
		v := tea.NewView(content + "\n\n" + footer)
		v.AltScreen = true
		return v
	}

	header := titleStyle.Render("flyt")
	header += statusStyle.Render("  " + m.status)
	if m.drag.Dragging() {
		header += statusStyle.Render("  [drop: enter • cancel: esc]")
	}
	if !m.showCompleted {
		header += statusStyle.Render("  hiding completed")
	}
	if m.showArchived {
		header += statusStyle.Render("  showing archived")
	}

	cols := m.columns()
	colWidth := max(18, m.width/max(1, len(cols))-2)
	baseColStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		MarginRight(1).
		Width(colWidth)
	selColStyle := baseColStyle.BorderForeground(accent)
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	selectedTaskStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	draggedTaskStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true).Underline(true)
	doneStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Strikethrough(true)
	metaStyle := lipgloss.NewStyle().Foreground(muted)

	columnViews := make([]string, 0, len(cols))
	for colIdx, status := range cols {
		tasks := m.columnTasks(status)
		lines := []string{colTitle.Render(fmt.Sprintf("%s (%d)", statusLabel(status), len(tasks)))}
		for taskIdx, task := range tasks {
			line := taskLine(task, colWidth-4)
			switch {
			case m.drag.Dragging() && task.ID == m.drag.ActiveTaskID():
				line = draggedTaskStyle.Render(line)
			case colIdx == m.selectedColumn && taskIdx == clamp(m.selectedTask, 0, len(tasks)-1):
				line = selectedTaskStyle.Render(line)
			case task.IsCompleted:
				line = doneStyle.Render(line)
			}
			lines = append(lines, line)
			if meta := taskMeta(task); meta != "" {
				lines = append(lines, metaStyle.Render("  "+truncate(meta, colWidth-4)))
			}
		}
		if len(tasks) == 0 {
			lines = append(lines, metaStyle.Render("—"))
		}
		style := baseColStyle
		if colIdx == m.selectedColumn {
			style = selColStyle
		}
		columnViews = append(columnViews, style.Render(strings.Join(lines, "\n")))
	}
	boardView := lipgloss.JoinHorizontal(lipgloss.Top, columnViews...)

	sections := []string{header, "", boardView}
	if m.mode == modeAddTask {
		sections = append(sections, "", m.renderAddPrompt(accent, muted))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}

	v := tea.NewView(content + "\n" + helpLine)
	v.AltScreen = true
	return v
}

// renderAddPrompt renders the quick-add input with its live parse preview.
func (m Model) renderAddPrompt(accent, muted color.Color) string {
	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	metaStyle := lipgloss.NewStyle().Foreground(muted)
	lines := []string{
		labelStyle.Render("New task"),
		m.addInput.View(),
	}
	if strings.TrimSpace(m.addInput.Value()) != "" {
		preview := []string{"→ " + m.preview.Title, "bucket: " + statusLabel(m.bucket)}
		if m.preview.ScheduledDate != nil {
			preview = append(preview, "date: "+m.preview.ScheduledDate.Format(time.DateOnly))
		}
		if m.preview.ScheduledTime != "" {
			preview = append(preview, "time: "+m.preview.ScheduledTime)
		}
		if m.preview.EstimatedMinutes > 0 {
			preview = append(preview, fmt.Sprintf("estimate: %dm", m.preview.EstimatedMinutes))
		}
		if len(m.preview.Tags) > 0 {
			preview = append(preview, "tags: "+strings.Join(m.preview.Tags, ", "))
		}
		preview = append(preview, "category: "+string(m.preview.Category))
		lines = append(lines, metaStyle.Render(strings.Join(preview, "  ")))
	}
	return strings.Join(lines, "\n")
}

// taskLine renders one board row.
func taskLine(task domain.Task, width int) string {
	check := "[ ] "
	if task.IsCompleted {
		check = "[x] "
	}
	return check + truncate(task.Title, max(4, width-4))
}

// taskMeta renders the secondary schedule line for one task.
func taskMeta(task domain.Task) string {
	parts := make([]string, 0, 3)
	if task.ScheduledDate != nil {
		parts = append(parts, task.ScheduledDate.Format("Jan 2"))
	}
	if task.ScheduledTime != "" {
		parts = append(parts, task.ScheduledTime)
	}
	if task.EstimatedMinutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", task.EstimatedMinutes))
	}
	if len(task.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(task.Tags, " #"))
	}
	return strings.Join(parts, " · ")
}

// statusLabel renders one bucket name for display.
func statusLabel(status domain.Status) string {
	switch status {
	case domain.StatusToday:
		return "Today"
	case domain.StatusTomorrow:
		return "Tomorrow"
	case domain.StatusThisWeek:
		return "This Week"
	case domain.StatusNextWeek:
		return "Next Week"
	case domain.StatusBacklog:
		return "Backlog"
	case domain.StatusLongTerm:
		return "Long Term"
	case domain.StatusArchived:
		return "Archived"
	default:
		return string(status)
	}
}

func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) > maxLines {
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
