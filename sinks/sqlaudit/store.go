// Package sqlaudit persists audit events in SQLite or PostgreSQL. The Store
// implements goGuard.AuditSink and goGuard.AuditPurger, so an Engine built with it
// gets retention purges from its janitor.
package sqlaudit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const table = "goguard_audit_events"

var columns = []string{"id", "occurred_at", "principal_id", "action", "resource", "success", "error", "metadata"}

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) gooseDialect() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite3"
}

func (d Dialect) placeholder() sq.PlaceholderFormat {
	if d == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// Store is safe for concurrent use.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ goGuard.AuditSink   = (*Store)(nil)
	_ goGuard.AuditPurger = (*Store)(nil)
)

// Open connects with the dialect's driver and migrates the schema.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// a second connection to :memory: would see an empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	if err := Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db, dialect), nil
}

// New wraps an already migrated database.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(dialect.placeholder()),
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, event goGuard.AuditEvent) error {
	md, err := encodeMetadata(event.Metadata)
	if err != nil {
		return err
	}

	query, args, err := s.sb.
		Insert(table).
		Columns(columns...).
		Values(
			event.ID,
			event.Timestamp.UTC().UnixMicro(),
			event.PrincipalID,
			string(event.Action),
			event.Resource,
			event.Success,
			event.Error,
			md,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	PrincipalID string
	Action      goGuard.ActionKind
	Since       time.Time
	Until       time.Time
	// Limit defaults to 100.
	Limit uint64
}

// List returns matching events, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]goGuard.AuditEvent, error) {
	if f.Limit == 0 {
		f.Limit = 100
	}

	b := s.sb.Select(columns...).From(table).OrderBy("occurred_at DESC", "id DESC").Limit(f.Limit)
	if f.PrincipalID != "" {
		b = b.Where(sq.Eq{"principal_id": f.PrincipalID})
	}
	if f.Action != "" {
		b = b.Where(sq.Eq{"action": string(f.Action)})
	}
	if !f.Since.IsZero() {
		b = b.Where(sq.GtOrEq{"occurred_at": f.Since.UTC().UnixMicro()})
	}
	if !f.Until.IsZero() {
		b = b.Where(sq.Lt{"occurred_at": f.Until.UTC().UnixMicro()})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []goGuard.AuditEvent
	for rows.Next() {
		var (
			ev       goGuard.AuditEvent
			micros   int64
			action   string
			metadata string
		)
		if err := rows.Scan(&ev.ID, &micros, &ev.PrincipalID, &action, &ev.Resource, &ev.Success, &ev.Error, &metadata); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Timestamp = time.UnixMicro(micros).UTC()
		ev.Action = goGuard.ActionKind(action)
		if ev.Metadata, err = decodeMetadata(metadata); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}

// Purge deletes events that occurred before the cutoff.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := s.sb.
		Delete(table).
		Where(sq.Lt{"occurred_at": before.UTC().UnixMicro()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	return n, nil
}

func encodeMetadata(md map[string]any) (string, error) {
	if len(md) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var md map[string]any
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return md, nil
}
