package ledger

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteLedger struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteLedger(path string) *SQLiteLedger {
	return &SQLiteLedger{path: path}
}

func (l *SQLiteLedger) Init(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.path == "" {
		return errors.New("sqlite path is required")
	}
	if l.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", l.path)
	if err != nil {
		return err
	}
	// Sessions record concurrently; a single connection serializes writers
	// instead of failing them with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	l.db = db
	return nil
}

func (l *SQLiteLedger) Record(ctx context.Context, ep Episode) error {
	db, err := l.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO episodes (session_id, idx, status, steps, return, initial_distance, final_distance, started_at, elapsed_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, idx) DO UPDATE SET
			status = excluded.status,
			steps = excluded.steps,
			return = excluded.return,
			initial_distance = excluded.initial_distance,
			final_distance = excluded.final_distance,
			started_at = excluded.started_at,
			elapsed_ns = excluded.elapsed_ns
	`, ep.SessionID, ep.Index, ep.Status, ep.Steps, ep.Return, ep.InitialDistance, ep.FinalDistance,
		ep.StartedAt.UTC().UnixNano(), int64(ep.Elapsed))
	return err
}

func (l *SQLiteLedger) Episodes(ctx context.Context, sessionID string) ([]Episode, error) {
	db, err := l.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT e.session_id, e.idx, e.status, e.steps, e.return, e.initial_distance, e.final_distance, e.started_at, e.elapsed_ns
		FROM episodes e
		JOIN (SELECT session_id, MIN(started_at) AS first FROM episodes GROUP BY session_id) s
			ON s.session_id = e.session_id
		WHERE ? = '' OR e.session_id = ?
		ORDER BY s.first, e.session_id, e.idx
	`, sessionID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		var (
			ep        Episode
			startedAt int64
			elapsed   int64
		)
		if err := rows.Scan(&ep.SessionID, &ep.Index, &ep.Status, &ep.Steps, &ep.Return,
			&ep.InitialDistance, &ep.FinalDistance, &startedAt, &elapsed); err != nil {
			return nil, err
		}
		ep.StartedAt = time.Unix(0, startedAt).UTC()
		ep.Elapsed = time.Duration(elapsed)
		out = append(out, ep)
	}
	return out, rows.Err()
}

func (l *SQLiteLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func (l *SQLiteLedger) getDB() (*sql.DB, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.db == nil {
		return nil, errNotInitialized
	}
	return l.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS episodes (
			session_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			status TEXT NOT NULL,
			steps INTEGER NOT NULL,
			return REAL NOT NULL,
			initial_distance REAL NOT NULL,
			final_distance REAL NOT NULL,
			started_at INTEGER NOT NULL,
			elapsed_ns INTEGER NOT NULL,
			PRIMARY KEY (session_id, idx)
		);
	`)
	return err
}
