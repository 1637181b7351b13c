// Package logger provides a thin wrapper around zerolog.Logger used for the
// diagnostic channel of goGuard: fail-open warnings, audit sink failures and
// best-effort cleanup errors.
package logger

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	xrate "golang.org/x/time/rate"
)

// Logger embeds zerolog.Logger so the full zerolog API is available directly.
type Logger struct {
	zerolog.Logger
}

// NewWithWriter constructs a JSON *Logger on w tagged with the given role.
func NewWithWriter(w io.Writer, role string) *Logger {
	l := zerolog.New(w).With().
		Str("role", role).
		Timestamp().
		Logger()
	return &Logger{l}
}

// Wrap adapts a caller-supplied zerolog.Logger.
func Wrap(l zerolog.Logger) *Logger {
	return &Logger{l}
}

// Nop returns a *Logger that discards all output.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// Child returns a logger with an extra component field.
func (l *Logger) Child(component string) *Logger {
	return &Logger{l.With().Str("component", component).Logger()}
}

// Throttle limits how often a hot-path diagnostic is written. The first event always
// passes; afterwards at most one per interval.
type Throttle struct {
	s xrate.Sometimes
}

// NewThrottle creates a Throttle allowing one call per interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{s: xrate.Sometimes{First: 1, Interval: interval}}
}

// Do runs f unless the throttle suppresses it.
func (t *Throttle) Do(f func()) {
	if t == nil {
		f()
		return
	}
	t.s.Do(f)
}
