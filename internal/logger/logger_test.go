package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewWithWriterWritesRoleAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "engine").Child("limiter")
	l.Warn().Str("endpoint", "profile/update").Msg("store failure")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	if entry["role"] != "engine" || entry["component"] != "limiter" {
		t.Fatalf("missing fields: %v", entry)
	}
	if entry["level"] != "warn" || entry["message"] != "store failure" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNopDiscards(t *testing.T) {
	Nop().Error().Msg("ignored")
}

func TestThrottleSuppressesBursts(t *testing.T) {
	th := NewThrottle(time.Hour)
	calls := 0
	for i := 0; i < 10; i++ {
		th.Do(func() { calls++ })
	}
	if calls != 1 {
		t.Fatalf("expected 1 call inside the interval, got %d", calls)
	}

	var nilThrottle *Throttle
	nilThrottle.Do(func() { calls++ })
	if calls != 2 {
		t.Fatal("nil throttle must not suppress")
	}
}

func TestWrapKeepsOutput(t *testing.T) {
	var buf bytes.Buffer
	l := Wrap(NewWithWriter(&buf, "x").Logger)
	l.Info().Msg("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected wrapped logger output, got %q", buf.String())
	}
}
