package board

import (
	"slices"
	"testing"

	"github.com/hylla/flyt/internal/domain"
)

func snapshotFixture() *Snapshot {
	return NewSnapshot([]domain.Task{
		{ID: "t1", Status: domain.StatusToday, Order: 1},
		{ID: "t2", Status: domain.StatusToday, Order: 2},
		{ID: "t3", Status: domain.StatusToday, Order: 3},
		{ID: "w1", Status: domain.StatusThisWeek, Order: 1},
		{ID: "b1", Status: domain.StatusBacklog, Order: 1},
	})
}

func TestSessionStartUnknownTask(t *testing.T) {
	s := NewSession()
	if s.Start(snapshotFixture(), "nope") {
		t.Fatal("Start accepted an unknown task id")
	}
	if s.Dragging() {
		t.Fatal("session dragging after rejected Start")
	}
}

func TestSessionSiblingDropReorders(t *testing.T) {
	snap := snapshotFixture()
	s := NewSession()
	if !s.Start(snap, "t1") {
		t.Fatal("Start failed")
	}

	cmds := s.End(snap, "t3")
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	ro, ok := cmds[0].(ReorderCommand)
	if !ok {
		t.Fatalf("got %T, want ReorderCommand", cmds[0])
	}
	if ro.Status != domain.StatusToday {
		t.Errorf("status = %q, want %q", ro.Status, domain.StatusToday)
	}
	want := []string{"t2", "t3", "t1"}
	if !slices.Equal(ro.OrderedIDs, want) {
		t.Errorf("order = %v, want %v", ro.OrderedIDs, want)
	}
	if s.Dragging() {
		t.Error("session still dragging after End")
	}
}

func TestSessionOverPerformsLiveMove(t *testing.T) {
	snap := snapshotFixture()
	s := NewSession()
	s.Start(snap, "t1")

	mv, ok := s.Over(snap, ColumnTargetID(domain.StatusBacklog))
	if !ok {
		t.Fatal("Over emitted no command for a cross-bucket hover")
	}
	if mv.TaskID != "t1" || mv.Status != domain.StatusBacklog {
		t.Errorf("move = %+v, want t1 -> backlog", mv)
	}
	if s.LiveStatus() != domain.StatusBacklog {
		t.Errorf("live status = %q, want backlog", s.LiveStatus())
	}

	// Hovering the bucket the task already occupies is quiet.
	if _, ok := s.Over(snap, ColumnTargetID(domain.StatusBacklog)); ok {
		t.Error("Over re-emitted a move for the current bucket")
	}
}

func TestSessionOverIgnoresUnknownAndArchived(t *testing.T) {
	snap := snapshotFixture()
	s := NewSession()
	s.Start(snap, "t1")

	if _, ok := s.Over(snap, "section-bogus"); ok {
		t.Error("Over accepted an unknown container id")
	}
	if _, ok := s.Over(snap, ColumnTargetID(domain.StatusArchived)); ok {
		t.Error("Over accepted the archived container")
	}
	if s.LiveStatus() != domain.StatusToday {
		t.Errorf("live status drifted to %q", s.LiveStatus())
	}
}

func TestSessionEndOnColumnMoves(t *testing.T) {
	snap := snapshotFixture()
	s := NewSession()
	s.Start(snap, "t2")

	cmds := s.End(snap, ColumnTargetID(domain.StatusThisWeek))
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	mv, ok := cmds[0].(MoveCommand)
	if !ok {
		t.Fatalf("got %T, want MoveCommand", cmds[0])
	}
	if mv.TaskID != "t2" || mv.Status != domain.StatusThisWeek {
		t.Errorf("move = %+v, want t2 -> this_week", mv)
	}
}

func TestSessionEndOnSiblingInOtherBucketMoves(t *testing.T) {
	snap := snapshotFixture()
	s := NewSession()
	s.Start(snap, "t2")

	cmds := s.End(snap, "w1")
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	mv, ok := cmds[0].(MoveCommand)
	if !ok {
		t.Fatalf("got %T, want MoveCommand", cmds[0])
	}
	if mv.Status != domain.StatusThisWeek {
		t.Errorf("status = %q, want this_week", mv.Status)
	}
}

func TestSessionEndConfirmsLiveMove(t *testing.T) {
	snap := snapshotFixture()
	s := NewSession()
	s.Start(snap, "t1")
	s.Over(snap, ColumnTargetID(domain.StatusBacklog))

	// The hover already moved the task; dropping on the same container
	// must not double up.
	if cmds := s.End(snap, ColumnTargetID(domain.StatusBacklog)); len(cmds) != 0 {
		t.Fatalf("got %v, want no commands", cmds)
	}
}

func TestSessionEndEmptyTarget(t *testing.T) {
	snap := snapshotFixture()
	s := NewSession()
	s.Start(snap, "t1")

	if cmds := s.End(snap, ""); len(cmds) != 0 {
		t.Fatalf("got %v, want no commands", cmds)
	}
	if s.Dragging() {
		t.Error("session still dragging after End")
	}
}

func TestSessionEndEmptyTargetCompensatesLiveMove(t *testing.T) {
	snap := snapshotFixture()
	s := NewSession()
	s.Start(snap, "t1")
	s.Over(snap, ColumnTargetID(domain.StatusBacklog))

	cmds := s.End(snap, "")
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	mv, ok := cmds[0].(MoveCommand)
	if !ok {
		t.Fatalf("got %T, want MoveCommand", cmds[0])
	}
	if mv.TaskID != "t1" || mv.Status != domain.StatusToday {
		t.Errorf("move = %+v, want t1 back to today", mv)
	}
}

func TestSessionCancel(t *testing.T) {
	snap := snapshotFixture()
	s := NewSession()

	// Cancel while idle is harmless.
	if cmds := s.Cancel(); cmds != nil {
		t.Fatalf("idle Cancel emitted %v", cmds)
	}

	s.Start(snap, "t1")
	if cmds := s.Cancel(); cmds != nil {
		t.Fatalf("Cancel without live move emitted %v", cmds)
	}

	s.Start(snap, "t1")
	s.Over(snap, ColumnTargetID(domain.StatusBacklog))
	cmds := s.Cancel()
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	mv, ok := cmds[0].(MoveCommand)
	if !ok {
		t.Fatalf("got %T, want MoveCommand", cmds[0])
	}
	if mv.TaskID != "t1" || mv.Status != domain.StatusToday {
		t.Errorf("compensation = %+v, want t1 back to today", mv)
	}
	if s.Dragging() {
		t.Error("session still dragging after Cancel")
	}
}

func TestSessionEndIdle(t *testing.T) {
	s := NewSession()
	if cmds := s.End(snapshotFixture(), "t1"); cmds != nil {
		t.Fatalf("idle End emitted %v", cmds)
	}
}

func TestSnapshotResolveDropTarget(t *testing.T) {
	snap := snapshotFixture()

	status, ok := snap.ResolveDropTarget(ColumnTargetID(domain.StatusToday))
	if !ok || status != domain.StatusToday {
		t.Errorf("container: got (%q, %v)", status, ok)
	}
	status, ok = snap.ResolveDropTarget("w1")
	if !ok || status != domain.StatusThisWeek {
		t.Errorf("task: got (%q, %v)", status, ok)
	}
	if _, ok := snap.ResolveDropTarget("section-nonsense"); ok {
		t.Error("bogus container resolved")
	}
	if _, ok := snap.ResolveDropTarget("missing"); ok {
		t.Error("unknown task id resolved")
	}
}

func TestSnapshotColumnOrderSorted(t *testing.T) {
	snap := NewSnapshot([]domain.Task{
		{ID: "x", Status: domain.StatusToday, Order: 3},
		{ID: "y", Status: domain.StatusToday, Order: 1},
		{ID: "z", Status: domain.StatusToday, Order: 2},
	})
	want := []string{"y", "z", "x"}
	if got := snap.ColumnOrder(domain.StatusToday); !slices.Equal(got, want) {
		t.Fatalf("ColumnOrder = %v, want %v", got, want)
	}
}
