// Package redisstream appends audit events to a Redis stream, for consumers that
// ship them elsewhere with consumer groups.
package redisstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/redis/go-redis/v9"
)

const DefaultStream = "goguard:audit"

var ErrRedisUnavailable = errors.New("redis unavailable")

// Sink implements goGuard.AuditSink with XADD. When MaxLen is positive the stream is
// trimmed approximately to that length on every append.
type Sink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

var _ goGuard.AuditSink = (*Sink)(nil)

func New(client redis.UniversalClient, stream string, maxLen int64) *Sink {
	if stream == "" {
		stream = DefaultStream
	}
	return &Sink{client: client, stream: stream, maxLen: maxLen}
}

func (s *Sink) Append(ctx context.Context, event goGuard.AuditEvent) error {
	if s == nil || s.client == nil {
		return ErrRedisUnavailable
	}

	md := "{}"
	if len(event.Metadata) > 0 {
		b, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		md = string(b)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"id":           event.ID,
			"ts":           event.Timestamp.UTC().Format(time.RFC3339Nano),
			"principal_id": event.PrincipalID,
			"action":       string(event.Action),
			"resource":     event.Resource,
			"success":      strconv.FormatBool(event.Success),
			"error":        event.Error,
			"metadata":     md,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Recent returns up to n events, newest first.
func (s *Sink) Recent(ctx context.Context, n int64) ([]goGuard.AuditEvent, error) {
	if s == nil || s.client == nil {
		return nil, ErrRedisUnavailable
	}

	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]goGuard.AuditEvent, 0, len(msgs))
	for _, m := range msgs {
		ev, err := decode(m.Values)
		if err != nil {
			return nil, fmt.Errorf("decode stream entry %s: %w", m.ID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func decode(v map[string]any) (goGuard.AuditEvent, error) {
	str := func(k string) string {
		s, _ := v[k].(string)
		return s
	}

	ev := goGuard.AuditEvent{
		ID:          str("id"),
		PrincipalID: str("principal_id"),
		Action:      goGuard.ActionKind(str("action")),
		Resource:    str("resource"),
		Error:       str("error"),
	}

	var err error
	if ev.Timestamp, err = time.Parse(time.RFC3339Nano, str("ts")); err != nil {
		return goGuard.AuditEvent{}, err
	}
	if ev.Success, err = strconv.ParseBool(str("success")); err != nil {
		return goGuard.AuditEvent{}, err
	}
	if md := str("metadata"); md != "" && md != "{}" {
		if err := json.Unmarshal([]byte(md), &ev.Metadata); err != nil {
			return goGuard.AuditEvent{}, err
		}
	}
	return ev, nil
}
