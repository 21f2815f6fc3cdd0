package tui

import "time"

type Option func(*Model)

func WithShowCompleted(show bool) Option {
	return func(m *Model) {
		m.showCompleted = show
	}
}

func WithClock(clock func() time.Time) Option {
	return func(m *Model) {
		if clock != nil {
			m.now = clock
		}
	}
}
