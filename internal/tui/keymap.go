package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit            key.Binding
	reload          key.Binding
	toggleHelp      key.Binding
	moveLeft        key.Binding
	moveRight       key.Binding
	moveUp          key.Binding
	moveDown        key.Binding
	addTask         key.Binding
	grabTask        key.Binding
	dropTask        key.Binding
	cancelDrag      key.Binding
	toggleComplete  key.Binding
	archiveTask     key.Binding
	restoreTask     key.Binding
	deleteTask      key.Binding
	archiveDone     key.Binding
	weeklySummary   key.Binding
	toggleCompleted key.Binding
	toggleArchived  key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:            key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:          key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:        key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:       key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		moveDown:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		addTask:         key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		grabTask:        key.NewBinding(key.WithKeys("g", " "), key.WithHelp("g/space", "grab task")),
		dropTask:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop task")),
		cancelDrag:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel drag")),
		toggleComplete:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "toggle complete")),
		archiveTask:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archive task")),
		restoreTask:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unarchive task")),
		deleteTask:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete task")),
		archiveDone:     key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "archive completed")),
		weeklySummary:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "weekly summary")),
		toggleCompleted: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "show/hide completed")),
		toggleArchived:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "show/hide archived")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addTask, k.grabTask, k.toggleComplete, k.archiveTask, k.weeklySummary, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addTask, k.toggleComplete, k.archiveTask, k.restoreTask, k.deleteTask, k.archiveDone, k.weeklySummary, k.toggleHelp, k.reload, k.quit},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.grabTask, k.dropTask, k.cancelDrag},
		{k.toggleCompleted, k.toggleArchived},
	}
}
