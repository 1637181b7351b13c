package sqlaudit

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	goGuard "github.com/MrEthical07/goGuard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var base = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func event(id, principal string, action goGuard.ActionKind, at time.Time) goGuard.AuditEvent {
	return goGuard.AuditEvent{
		ID:          id,
		Timestamp:   at,
		PrincipalID: principal,
		Action:      action,
		Resource:    "mfa",
		Success:     true,
	}
}

func TestAppendAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	failed := event("e1", "u1", goGuard.ActionMFAEnable, base)
	failed.Success = false
	failed.Error = "invalid code"
	failed.Metadata = map[string]any{"factorId": "f1", "attempt": 2}

	require.NoError(t, s.Append(ctx, failed))
	require.NoError(t, s.Append(ctx, event("e2", "u1", goGuard.ActionMFAEnable, base.Add(time.Minute))))
	require.NoError(t, s.Append(ctx, event("e3", "u2", goGuard.ActionLogin, base.Add(2*time.Minute))))

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "e3", all[0].ID, "newest first")

	mine, err := s.List(ctx, Filter{PrincipalID: "u1", Action: goGuard.ActionMFAEnable})
	require.NoError(t, err)
	require.Len(t, mine, 2)

	got := mine[1]
	assert.Equal(t, "e1", got.ID)
	assert.True(t, got.Timestamp.Equal(base))
	assert.False(t, got.Success)
	assert.Equal(t, "invalid code", got.Error)
	assert.Equal(t, "f1", got.Metadata["factorId"])
	assert.Equal(t, float64(2), got.Metadata["attempt"])
	assert.Nil(t, mine[0].Metadata)

	window, err := s.List(ctx, Filter{Since: base.Add(30 * time.Second), Until: base.Add(2 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "e2", window[0].ID)

	limited, err := s.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAppendDuplicateID(t *testing.T) {
	s := openTestStore(t)
	ev := event("dup", "u1", goGuard.ActionLogout, base)
	require.NoError(t, s.Append(context.Background(), ev))
	assert.Error(t, s.Append(context.Background(), ev))
}

func TestPurge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Append(ctx, event(id, "u1", goGuard.ActionLogin, base.Add(time.Duration(i)*time.Hour))))
	}

	n, err := s.Purge(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "c", left[0].ID)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, Migrate(context.Background(), s.db, DialectSQLite))
}

func TestMigrateNilDB(t *testing.T) {
	err := Migrate(context.Background(), nil, DialectSQLite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db is nil")
}

func TestEngineRetentionPurgesStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, event("old", "u1", goGuard.ActionLogin, base.Add(-48*time.Hour))))

	cfg := goGuard.DefaultConfig()
	cfg.Audit.Retention = 24 * time.Hour
	e, err := goGuard.New().
		WithConfig(cfg).
		WithAuditSink(s).
		WithClock(func() time.Time { return base }).
		Build()
	require.NoError(t, err)

	pctx := goGuard.WithPrincipal(ctx, goGuard.Principal{ID: "u1"})
	e.Record(pctx, goGuard.ActionSettingsUpdate, "settings", goGuard.Metadata{"theme": "dark"})
	e.Close()

	n, err := e.PurgeAudit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := s.List(ctx, Filter{PrincipalID: "u1"})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, goGuard.ActionSettingsUpdate, left[0].Action)
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return New(db, DialectPostgres), mock, db
}

func TestPostgresAppendUsesDollarPlaceholders(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	ev := event("e1", "u1", goGuard.ActionMFADisable, base)
	ev.Metadata = map[string]any{"factorId": "f1"}

	mock.ExpectExec(`INSERT INTO goguard_audit_events \(id,occurred_at,principal_id,action,resource,success,error,metadata\) VALUES \(\$1,\$2,\$3,\$4,\$5,\$6,\$7,\$8\)`).
		WithArgs("e1", base.UnixMicro(), "u1", "mfa_disable", "mfa", true, "", `{"factorId":"f1"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Append(context.Background(), ev))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPurge(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM goguard_audit_events WHERE occurred_at < \$1`).
		WithArgs(base.UnixMicro()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := s.Purge(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresErrorsAreWrapped(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	dbErr := errors.New("connection reset")
	mock.ExpectQuery(`SELECT .* FROM goguard_audit_events WHERE principal_id = \$1`).
		WithArgs("u1").
		WillReturnError(dbErr)

	_, err := s.List(context.Background(), Filter{PrincipalID: "u1"})
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListScansRows(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).
		AddRow("e9", base.UnixMicro(), "u1", "export_data", "data", false, "timeout", `{"format":"csv"}`)
	mock.ExpectQuery(`SELECT .* FROM goguard_audit_events`).WillReturnRows(rows)

	got, err := s.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, goGuard.ActionExportData, got[0].Action)
	assert.Equal(t, "csv", got[0].Metadata["format"])
	assert.Equal(t, "timeout", got[0].Error)
}
