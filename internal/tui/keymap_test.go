package tui

import "testing"

// TestKeyMapDefaults verifies the default board bindings.
func TestKeyMapDefaults(t *testing.T) {
	k := newKeyMap()
	if got := k.grabTask.Keys(); len(got) != 2 || got[0] != "g" || got[1] != " " {
		t.Fatalf("unexpected grab keys %#v", got)
	}
	if got := k.dropTask.Keys(); len(got) != 1 || got[0] != "enter" {
		t.Fatalf("unexpected drop keys %#v", got)
	}
	if got := k.cancelDrag.Keys(); len(got) != 1 || got[0] != "esc" {
		t.Fatalf("unexpected cancel keys %#v", got)
	}
	if got := k.weeklySummary.Keys(); len(got) != 1 || got[0] != "s" {
		t.Fatalf("unexpected summary keys %#v", got)
	}
}

// TestKeyMapHelpCoversDragKeys verifies full help exposes the drag bindings.
func TestKeyMapHelpCoversDragKeys(t *testing.T) {
	k := newKeyMap()
	if len(k.ShortHelp()) == 0 {
		t.Fatal("expected short help entries")
	}
	full := k.FullHelp()
	if len(full) != 3 {
		t.Fatalf("expected 3 help rows, got %d", len(full))
	}
}
