// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal records console coordination signals (privilege
// transitions, fallback activations, recovery attempts) in a local
// SQLite database. The journal is a diagnostic sink: the coordination
// core never reads it, and a journal failure never affects
// coordination.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Entry is one recorded console signal.
type Entry struct {
	// At is when the signal was emitted.
	At time.Time

	// Kind is the signal name (e.g., "fallback_activated").
	Kind string

	// View is the view involved, when relevant.
	View string

	// Reason is the canonical reason label, when relevant.
	Reason string

	// Detail carries free-form context (error text, requested state).
	Detail string
}

// Config holds parameters for opening a Journal.
type Config struct {
	// Path is the SQLite database file. ":memory:" is accepted for
	// tests. Required.
	Path string

	// Retention caps entry age. Entries older than Retention are
	// removed by Prune. Zero keeps everything.
	Retention time.Duration

	// Logger receives operational messages. If nil, logging is
	// discarded.
	Logger *slog.Logger
}

// Journal is a SQLite-backed signal log. Safe for concurrent use.
type Journal struct {
	pool      *sqlitex.Pool
	logger    *slog.Logger
	retention time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS signals (
    id     INTEGER PRIMARY KEY,
    at     INTEGER NOT NULL,
    kind   TEXT    NOT NULL,
    view   TEXT    NOT NULL DEFAULT '',
    reason TEXT    NOT NULL DEFAULT '',
    detail TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS signals_at ON signals (at);
`

// Open creates or opens the journal database and ensures the schema
// exists. The caller must call Close when done.
func Open(cfg Config) (*Journal, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("journal: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// A single connection is enough: the console emits signals from
	// one logical thread, and reads are rare diagnostic queries. An
	// in-memory database also requires pool size 1, since each
	// in-memory connection would otherwise be independent.
	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize: 1,
		PrepareConn: func(conn *sqlite.Conn) error {
			pragmas := []string{
				"PRAGMA journal_mode=WAL",
				"PRAGMA synchronous=NORMAL",
				"PRAGMA busy_timeout=5000",
			}
			for _, pragma := range pragmas {
				if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
					return fmt.Errorf("journal: %s: %w", pragma, err)
				}
			}
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("journal: opening %s: %w", cfg.Path, err)
	}

	logger.Info("journal opened", "path", cfg.Path)

	return &Journal{
		pool:      pool,
		logger:    logger,
		retention: cfg.Retention,
	}, nil
}

// Record appends an entry. Errors are returned for the caller to log;
// they must not be treated as fatal to coordination.
func (j *Journal) Record(ctx context.Context, entry Entry) error {
	conn, err := j.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("journal: take connection: %w", err)
	}
	defer j.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO signals (at, kind, view, reason, detail) VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				entry.At.UnixMilli(),
				entry.Kind,
				entry.View,
				entry.Reason,
				entry.Detail,
			},
		})
	if err != nil {
		return fmt.Errorf("journal: recording %s: %w", entry.Kind, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	conn, err := j.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("journal: take connection: %w", err)
	}
	defer j.pool.Put(conn)

	var entries []Entry
	err = sqlitex.Execute(conn,
		`SELECT at, kind, view, reason, detail FROM signals ORDER BY at DESC, id DESC LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, Entry{
					At:     time.UnixMilli(stmt.ColumnInt64(0)).UTC(),
					Kind:   stmt.ColumnText(1),
					View:   stmt.ColumnText(2),
					Reason: stmt.ColumnText(3),
					Detail: stmt.ColumnText(4),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("journal: querying recent signals: %w", err)
	}
	return entries, nil
}

// Prune removes entries older than the configured retention. No-op
// when retention is zero.
func (j *Journal) Prune(ctx context.Context, now time.Time) error {
	if j.retention <= 0 {
		return nil
	}

	conn, err := j.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("journal: take connection: %w", err)
	}
	defer j.pool.Put(conn)

	cutoff := now.Add(-j.retention).UnixMilli()
	err = sqlitex.Execute(conn,
		`DELETE FROM signals WHERE at < ?`,
		&sqlitex.ExecOptions{Args: []any{cutoff}})
	if err != nil {
		return fmt.Errorf("journal: pruning: %w", err)
	}
	if removed := conn.Changes(); removed > 0 {
		j.logger.Info("journal pruned", "removed", removed)
	}
	return nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if err := j.pool.Close(); err != nil {
		return fmt.Errorf("journal: closing: %w", err)
	}
	return nil
}
