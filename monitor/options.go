package monitor

import (
	"io"
	"time"
)

// Option customizes a Monitor.
type Option func(*Monitor)

// WithOutput sets where monitor text is printed. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(m *Monitor) {
		m.out = w
	}
}

// WithOpener replaces how the serial port is acquired.
func WithOpener(open Opener) Option {
	return func(m *Monitor) {
		m.open = open
	}
}

// WithClock sets the wall clock used for timestamps and the run deadline.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}
