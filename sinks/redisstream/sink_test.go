package redisstream

import (
	"context"
	"testing"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestAppendAndRecent(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := New(rdb, "", 0)
	ctx := context.Background()
	at := time.Date(2026, 2, 3, 4, 5, 6, 7000, time.UTC)

	require.NoError(t, s.Append(ctx, goGuard.AuditEvent{
		ID: "e1", Timestamp: at, PrincipalID: "u1", Action: goGuard.ActionMFADisable,
		Resource: "mfa", Success: false, Error: "factor locked",
		Metadata: map[string]any{"factorId": "f1"},
	}))
	require.NoError(t, s.Append(ctx, goGuard.AuditEvent{
		ID: "e2", Timestamp: at.Add(time.Second), PrincipalID: "u1", Action: goGuard.ActionLogout, Success: true,
	}))

	n, err := rdb.XLen(ctx, DefaultStream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	events, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e2", events[0].ID)

	first := events[1]
	assert.True(t, first.Timestamp.Equal(at))
	assert.Equal(t, goGuard.ActionMFADisable, first.Action)
	assert.False(t, first.Success)
	assert.Equal(t, "factor locked", first.Error)
	assert.Equal(t, "f1", first.Metadata["factorId"])
	assert.Nil(t, events[0].Metadata)
}

func TestAppendTrimsStream(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := New(rdb, "audit:test", 3)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Append(ctx, goGuard.AuditEvent{ID: "e", Timestamp: time.Now(), Action: goGuard.ActionLogin}))
	}
	n, err := rdb.XLen(ctx, "audit:test").Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, n, int64(10))
	assert.GreaterOrEqual(t, n, int64(3))
}

func TestAppendRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := New(rdb, "", 0)
	mr.Close()

	err := s.Append(context.Background(), goGuard.AuditEvent{ID: "x", Timestamp: time.Now()})
	assert.ErrorIs(t, err, ErrRedisUnavailable)

	var nilSink *Sink
	assert.ErrorIs(t, nilSink.Append(context.Background(), goGuard.AuditEvent{}), ErrRedisUnavailable)
}

func TestEngineWritesToStream(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := New(rdb, "", 0)

	e, err := goGuard.New().WithAuditSink(s).WithRedis(rdb).Build()
	require.NoError(t, err)

	ctx := goGuard.WithPrincipal(context.Background(), goGuard.Principal{ID: "u1"})
	require.NoError(t, e.Run(ctx, goGuard.DataExportAction, func(context.Context) error { return nil }, goGuard.Metadata{"token": "abc"}))
	e.Close()

	events, err := s.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, goGuard.ActionExportData, events[0].Action)
	assert.Equal(t, "[REDACTED]", events[0].Metadata["token"])
}
