package internal

import (
	"io"

	"github.com/starford/sowilo/internal/calendar"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	clock  calendar.Clock
	out    io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithClock overrides the wall clock, e.g. to plan against a fixed "now".
func WithClock(c calendar.Clock) Option {
	return func(a *application) {
		a.clock = c
	}
}

// WithOutput sets where CLI commands write their results (stdout by default).
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}
