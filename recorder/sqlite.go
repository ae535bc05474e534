// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: sqlite.go — Event store
//
// Purpose:
//   - One `sessions` row per process run, one `events` row per ring event.
//   - Each batch is one transaction through a prepared insert.
//
// Notes:
//   - WAL journal with synchronous=NORMAL: a crash can lose the last batch,
//     never corrupt the file.
// ─────────────────────────────────────────────────────────────────────────────

package recorder

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tick2trade/ring"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	ended_at    INTEGER,
	fingerprint TEXT NOT NULL,
	events      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS events (
	session TEXT NOT NULL,
	ts      INTEGER NOT NULL,
	kind    INTEGER NOT NULL,
	venue   INTEGER NOT NULL,
	code    INTEGER NOT NULL,
	seq     INTEGER NOT NULL,
	state   INTEGER NOT NULL,
	side    INTEGER NOT NULL,
	f0      REAL NOT NULL,
	f1      REAL NOT NULL,
	f2      REAL NOT NULL,
	f3      REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS events_session_ts ON events (session, ts);
`

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA temp_store = MEMORY",
	"PRAGMA busy_timeout = 5000",
}

// SQLiteSink writes events to a sqlite database.
type SQLiteSink struct {
	db      *sql.DB
	insert  *sql.Stmt
	session string
	written int64
}

// OpenSQLite opens or creates the database at path and registers session.
func OpenSQLite(path, session, fingerprint string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteSink{db: db, session: session}
	if err := s.init(fingerprint); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSink) init(fingerprint string) error {
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("recorder: %s: %w", p, err)
		}
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("recorder: schema: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO sessions (id, started_at, fingerprint) VALUES (?, ?, ?)`,
		s.session, time.Now().UnixNano(), fingerprint,
	); err != nil {
		return fmt.Errorf("recorder: register session: %w", err)
	}

	var err error
	s.insert, err = s.db.Prepare(`
		INSERT INTO events (session, ts, kind, venue, code, seq, state, side, f0, f1, f2, f3)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("recorder: prepare insert: %w", err)
	}
	return nil
}

// Write stores batch in one transaction.
func (s *SQLiteSink) Write(batch []ring.Event) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("recorder: begin: %w", err)
	}
	stmt := tx.Stmt(s.insert)
	for i := range batch {
		ev := &batch[i]
		if _, err := stmt.Exec(
			s.session, ev.TS, int(ev.Kind), int(ev.Venue), int(ev.Code), int64(ev.Seq),
			int(ev.State), int(ev.Side), ev.F[0], ev.F[1], ev.F[2], ev.F[3],
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("recorder: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("recorder: commit: %w", err)
	}
	s.written += int64(len(batch))
	return nil
}

// Close stamps the session end and closes the database.
func (s *SQLiteSink) Close() error {
	_, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ?, events = ? WHERE id = ?`,
		time.Now().UnixNano(), s.written, s.session,
	)
	if s.insert != nil {
		s.insert.Close()
	}
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}
