package domain

import "slices"

// Status identifies the time-horizon bucket a task lives in.
type Status string

// StatusToday and related constants enumerate the board buckets.
const (
	StatusToday    Status = "today"
	StatusTomorrow Status = "tomorrow"
	StatusThisWeek Status = "this_week"
	StatusNextWeek Status = "next_week"
	StatusBacklog  Status = "backlog"
	StatusLongTerm Status = "long_term"
	StatusArchived Status = "archived"
)

// activeStatuses lists every destination a task can be moved or restored to.
var activeStatuses = []Status{
	StatusToday,
	StatusTomorrow,
	StatusThisWeek,
	StatusNextWeek,
	StatusBacklog,
	StatusLongTerm,
}

// ActiveStatuses returns the bucket order used for board rendering; archived is excluded.
func ActiveStatuses() []Status {
	return slices.Clone(activeStatuses)
}

// AllStatuses returns every valid status including archived.
func AllStatuses() []Status {
	return append(slices.Clone(activeStatuses), StatusArchived)
}

// Valid reports whether s names a known bucket.
func (s Status) Valid() bool {
	return s == StatusArchived || slices.Contains(activeStatuses, s)
}

// Active reports whether s is a destination bucket (anything but archived).
func (s Status) Active() bool {
	return slices.Contains(activeStatuses, s)
}

// ParseStatus converts raw text into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}
