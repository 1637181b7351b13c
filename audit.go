package goGuard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AuditEvent is an immutable record of one secure action outcome. Metadata is
// already sanitized when a sink receives it.
type AuditEvent struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	PrincipalID string         `json:"principal_id"`
	Action      ActionKind     `json:"action"`
	Resource    string         `json:"resource,omitempty"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// AuditSink receives recorded events. Append runs on the dispatcher goroutine; its
// errors and panics are logged and counted, never returned to the recording caller.
type AuditSink interface {
	Append(ctx context.Context, event AuditEvent) error
}

// AuditPurger is implemented by sinks that can drop events older than a cutoff. The
// Engine calls it on Audit.PurgeSchedule when Audit.Retention is set.
type AuditPurger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// ErrSinkFull is returned by ChannelSink when its buffer is full.
var ErrSinkFull = errors.New("audit sink full")

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Append(context.Context, AuditEvent) error { return nil }

// ChannelSink writes audit events into a buffered channel. It never blocks.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Append(ctx context.Context, event AuditEvent) error {
	select {
	case s.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSinkFull
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Append(_ context.Context, event AuditEvent) error {
	if s == nil || s.writer == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.writer.Write(data)
	return err
}

// LogSink writes audit events as structured zerolog entries at info level.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(_ context.Context, event AuditEvent) error {
	entry := s.logger.Info().
		Str("event_id", event.ID).
		Time("timestamp", event.Timestamp).
		Str("principal_id", event.PrincipalID).
		Str("action", string(event.Action)).
		Bool("success", event.Success)
	if event.Resource != "" {
		entry = entry.Str("resource", event.Resource)
	}
	if event.Error != "" {
		entry = entry.Str("error", event.Error)
	}
	if len(event.Metadata) > 0 {
		entry = entry.Interface("metadata", event.Metadata)
	}
	entry.Msg("audit")
	return nil
}

// MultiSink fans an event out to every sink and joins their errors.
type MultiSink []AuditSink

func (m MultiSink) Append(ctx context.Context, event AuditEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Purge forwards to every member implementing AuditPurger.
func (m MultiSink) Purge(ctx context.Context, before time.Time) (int64, error) {
	var (
		total int64
		errs  []error
	)
	for _, s := range m {
		p, ok := s.(AuditPurger)
		if !ok {
			continue
		}
		n, err := p.Purge(ctx, before)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}
