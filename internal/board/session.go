package board

import "github.com/hylla/flyt/internal/domain"

// Command is one store mutation requested by a finished (or in-flight)
// gesture. Commands are applied by the caller in emission order.
type Command interface{ isCommand() }

// MoveCommand asks the store to place one task into a different bucket.
type MoveCommand struct {
	TaskID string
	Status domain.Status
}

// ReorderCommand asks the store to persist a new within-bucket order; the
// caller derives 1-based integer order values from the sequence.
type ReorderCommand struct {
	Status     domain.Status
	OrderedIDs []string
}

func (MoveCommand) isCommand()    {}
func (ReorderCommand) isCommand() {}

// Session is the single-gesture drag state machine. It owns no state beyond
// the active gesture and emits commands instead of touching the store; every
// resolution miss degrades to a no-op because gestures are racy by nature.
//
// Lifecycle: Idle -> Start -> (Over)* -> End | Cancel -> Idle.
type Session struct {
	activeTaskID string
	originStatus domain.Status
	liveStatus   domain.Status
	dragging     bool
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{}
}

// Dragging reports whether a gesture is in flight.
func (s *Session) Dragging() bool {
	return s.dragging
}

// ActiveTaskID returns the dragged task id, or "" while idle.
func (s *Session) ActiveTaskID() string {
	if !s.dragging {
		return ""
	}
	return s.activeTaskID
}

// OriginStatus returns the bucket the active task was picked up from.
func (s *Session) OriginStatus() domain.Status {
	return s.originStatus
}

// LiveStatus returns the bucket the active task currently occupies after any
// speculative hover moves.
func (s *Session) LiveStatus() domain.Status {
	return s.liveStatus
}

// Start begins a gesture, snapshotting the task's bucket at pick-up time.
// Unknown task ids leave the session idle.
func (s *Session) Start(snap *Snapshot, taskID string) bool {
	origin, ok := snap.TaskStatus(taskID)
	if !ok {
		return false
	}
	s.activeTaskID = taskID
	s.originStatus = origin
	s.liveStatus = origin
	s.dragging = true
	return true
}

// Over handles a hover event mid-gesture. Hovering a target in a different
// bucket performs the live move: a speculative MoveCommand is emitted and the
// session tracks the new live bucket so Cancel can compensate. Hovering the
// current bucket, an unknown target, or the active task itself emits nothing.
func (s *Session) Over(snap *Snapshot, targetID string) (MoveCommand, bool) {
	if !s.dragging || targetID == s.activeTaskID {
		return MoveCommand{}, false
	}
	status, ok := snap.ResolveDropTarget(targetID)
	if !ok || status == s.liveStatus || !status.Active() {
		return MoveCommand{}, false
	}
	s.liveStatus = status
	return MoveCommand{TaskID: s.activeTaskID, Status: status}, true
}

// End finishes the gesture. An empty target is a cancel-equivalent drop into
// empty space. A sibling task in the active task's current bucket yields a
// ReorderCommand; a target resolving to a different bucket than the origin
// yields a MoveCommand; dropping back onto the origin emits nothing.
func (s *Session) End(snap *Snapshot, targetID string) []Command {
	if !s.dragging {
		return nil
	}
	defer s.reset()

	if targetID == "" {
		return s.compensation()
	}
	status, ok := snap.ResolveDropTarget(targetID)
	if !ok {
		return s.compensation()
	}

	// A sibling drop inside the bucket the task currently occupies is a
	// within-column reorder, never a move. It also confirms any live move
	// that placed the task there, so no compensation is owed.
	if targetID != s.activeTaskID && status == s.liveStatus {
		if _, isTask := snap.TaskStatus(targetID); isTask {
			ids := snap.ColumnOrder(status)
			reordered := Reorder(ids, s.activeTaskID, targetID)
			if sameOrder(ids, reordered) {
				return nil
			}
			return []Command{ReorderCommand{Status: status, OrderedIDs: reordered}}
		}
	}

	if !status.Active() || status == s.originStatus {
		return s.compensation()
	}
	if status == s.liveStatus {
		// The live move already placed the task; the drop confirms it.
		return nil
	}
	return []Command{MoveCommand{TaskID: s.activeTaskID, Status: status}}
}

// Cancel aborts the gesture. When a live move already shifted the task, a
// compensating move restores the pick-up bucket; otherwise nothing is
// emitted. Safe to call while idle.
func (s *Session) Cancel() []Command {
	if !s.dragging {
		return nil
	}
	defer s.reset()
	return s.compensation()
}

// compensation returns the move-back command owed after speculative hovers.
func (s *Session) compensation() []Command {
	if s.liveStatus == s.originStatus {
		return nil
	}
	return []Command{MoveCommand{TaskID: s.activeTaskID, Status: s.originStatus}}
}

func (s *Session) reset() {
	s.activeTaskID = ""
	s.originStatus = ""
	s.liveStatus = ""
	s.dragging = false
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
