package goGuard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRecordSanitizesAndStamps(t *testing.T) {
	sink := &captureSink{}
	clock := newTestClock()
	e := newTestEngine(t, testEngineOptions{sink: sink, clock: clock})

	e.Record(principalCtx("u1"), ActionProfileUpdate, "profile", Metadata{
		"updatedFields": []string{"name"},
		"newPassword":   "hunter2",
		"nested":        map[string]any{"api_key": "k", "plan": "pro"},
	})
	e.Close()

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.ID != "evt-1" || ev.PrincipalID != "u1" || ev.Action != ActionProfileUpdate || ev.Resource != "profile" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !ev.Timestamp.Equal(clock.Now()) || ev.Timestamp.Location() != time.UTC {
		t.Fatalf("unexpected timestamp %v", ev.Timestamp)
	}
	if !ev.Success {
		t.Fatal("success should default to true")
	}
	if ev.Metadata["newPassword"] != "[REDACTED]" {
		t.Fatalf("password not redacted: %v", ev.Metadata)
	}
	nested := ev.Metadata["nested"].(map[string]any)
	if nested["api_key"] != "[REDACTED]" || nested["plan"] != "pro" {
		t.Fatalf("nested metadata not sanitized: %v", nested)
	}
}

func TestRecordReadsOutcomeFromMetadata(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, testEngineOptions{sink: sink})

	e.Record(principalCtx("u1"), ActionLogin, "", Metadata{"success": false, "error": "bad password"})
	e.Close()

	ev := sink.Events()[0]
	if ev.Success || ev.Error != "bad password" {
		t.Fatalf("outcome not taken from metadata: %+v", ev)
	}
}

func TestRecordWithoutPrincipalIsNoOp(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, testEngineOptions{sink: sink})

	e.Record(context.Background(), ActionLogout, "", nil)
	e.Close()

	if len(sink.Events()) != 0 {
		t.Fatal("no event expected without principal")
	}
	if e.MetricsSnapshot().Counters[MetricAuditSkipped] != 1 {
		t.Fatal("skipped record not counted")
	}
}

func TestRecordWithoutSinkIsNoOp(t *testing.T) {
	e := newTestEngine(t, testEngineOptions{})
	e.Record(principalCtx("u1"), ActionLogout, "", nil)
	if e.MetricsSnapshot().Counters[MetricAuditRecorded] != 0 {
		t.Fatal("nothing should be recorded without a sink")
	}
}

func TestRecordSinkFailuresAreContained(t *testing.T) {
	var logs bytes.Buffer
	sink := &errorSink{}
	e := newTestEngine(t, testEngineOptions{sink: sink, logOut: &logs})

	for i := 0; i < 3; i++ {
		e.Record(principalCtx("u1"), ActionExportData, "data", nil)
	}
	e.Close()

	if sink.calls.Load() != 3 {
		t.Fatalf("expected 3 sink calls, got %d", sink.calls.Load())
	}
	if e.AuditFailed() != 3 {
		t.Fatalf("expected 3 failures, got %d", e.AuditFailed())
	}
	if e.MetricsSnapshot().Counters[MetricAuditSinkFailure] != 3 {
		t.Fatal("sink failures not counted")
	}
	if strings.Count(logs.String(), "audit sink failure") != 1 {
		t.Fatalf("expected one throttled warning, got %q", logs.String())
	}
}

func TestRecordSinkPanicIsContained(t *testing.T) {
	e := newTestEngine(t, testEngineOptions{sink: panicSink{}})

	e.Record(principalCtx("u1"), ActionExportData, "data", nil)
	e.Close()

	if e.AuditFailed() != 1 {
		t.Fatalf("expected panicking sink to count as failure, got %d", e.AuditFailed())
	}
}

func TestChannelSinkDoesNotBlock(t *testing.T) {
	s := NewChannelSink(1)
	if err := s.Append(context.Background(), AuditEvent{ID: "1"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(context.Background(), AuditEvent{ID: "2"}); !errors.Is(err, ErrSinkFull) {
		t.Fatalf("expected ErrSinkFull, got %v", err)
	}
	if ev := <-s.Events(); ev.ID != "1" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)
	_ = s.Append(context.Background(), AuditEvent{ID: "a", Action: ActionMFAEnable, Success: true})
	_ = s.Append(context.Background(), AuditEvent{ID: "b", Action: ActionMFADisable, Error: "boom"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	var ev AuditEvent
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if ev.ID != "b" || ev.Action != ActionMFADisable || ev.Error != "boom" {
		t.Fatalf("unexpected decoded event %+v", ev)
	}
}

func TestLogSinkWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(zerolog.New(&buf))
	_ = s.Append(context.Background(), AuditEvent{
		ID:          "e1",
		PrincipalID: "u1",
		Action:      ActionGoalDelete,
		Resource:    "goal",
		Metadata:    map[string]any{"goalId": "g1"},
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log line %q: %v", buf.String(), err)
	}
	if entry["action"] != "goal_delete" || entry["principal_id"] != "u1" || entry["message"] != "audit" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

type purgingSink struct {
	captureSink
	before time.Time
	n      int64
}

func (s *purgingSink) Purge(_ context.Context, before time.Time) (int64, error) {
	s.before = before
	return s.n, nil
}

func TestMultiSinkFansOutAndJoinsErrors(t *testing.T) {
	a := &captureSink{}
	p := &purgingSink{n: 4}
	bad := &errorSink{}
	m := MultiSink{a, nil, bad, p}

	err := m.Append(context.Background(), AuditEvent{ID: "x"})
	if err == nil || !strings.Contains(err.Error(), "sink unavailable") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(a.Events()) != 1 || len(p.Events()) != 1 {
		t.Fatal("event not delivered to every healthy sink")
	}

	n, err := m.Purge(context.Background(), time.Unix(100, 0))
	if err != nil || n != 4 || !p.before.Equal(time.Unix(100, 0)) {
		t.Fatalf("unexpected purge result n=%d err=%v", n, err)
	}
}
