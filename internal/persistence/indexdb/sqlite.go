// Package indexdb keeps a queryable SQLite index of the bridge's audit
// trail and session history. It is a secondary read model: writes are
// buffered and may be dropped under saturation; the JSONL audit logs remain
// the source of truth.
package indexdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"twbridge.dev/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64

	seq uint64 // assigned in the writer goroutine
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqSession
)

type req struct {
	kind    reqKind
	audit   world.AuditEntry
	session SessionEvent
}

// SessionEvent is one pairing lifecycle row.
type SessionEvent struct {
	SessionID string
	Player    string
	Event     string // "open" | "close"
	At        time.Time
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	// Continue the sequence across restarts so old rows are never replaced.
	_ = db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM audits`).Scan(&s.seq)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only workload; NORMAL durability is enough for a
	// secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audits (
			seq INTEGER PRIMARY KEY,
			at TEXT NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			agent TEXT,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			detail TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_at ON audits(actor, at);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_agent_at ON audits(agent, at);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT NOT NULL,
			player TEXT NOT NULL,
			event TEXT NOT NULL,
			at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_player_at ON sessions(player, at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped reports how many writes were discarded because the buffer was full.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropped.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSession(ev SessionEvent) {
	if s == nil || s.closed.Load() {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case s.ch <- req{kind: reqSession, session: ev}:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqAudit:
			s.insertAudit(r.audit)
		case reqSession:
			s.insertSession(r.session)
		}
	}
}

func (s *SQLiteIndex) insertAudit(entry world.AuditEntry) {
	s.seq++
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = s.db.Exec(
		`INSERT OR REPLACE INTO audits (seq, at, actor, action, agent, x, y, z, detail, raw_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.seq,
		entry.At.UTC().Format(time.RFC3339Nano),
		entry.Actor,
		entry.Action,
		entry.Agent,
		entry.Pos[0], entry.Pos[1], entry.Pos[2],
		entry.Detail,
		string(raw),
	)
	// Session lifecycle entries also feed the sessions read model.
	switch entry.Action {
	case "SESSION_OPEN":
		s.insertSession(SessionEvent{SessionID: entry.Detail, Player: entry.Actor, Event: "open", At: entry.At})
	case "SESSION_CLOSE":
		s.insertSession(SessionEvent{SessionID: entry.Detail, Player: entry.Actor, Event: "close", At: entry.At})
	}
}

func (s *SQLiteIndex) insertSession(ev SessionEvent) {
	_, _ = s.db.Exec(
		`INSERT INTO sessions (session_id, player, event, at) VALUES (?, ?, ?, ?)`,
		ev.SessionID, ev.Player, ev.Event, ev.At.UTC().Format(time.RFC3339Nano),
	)
}

// AuditCount is a read-model helper for the admin surface and tests.
func (s *SQLiteIndex) AuditCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM audits`).Scan(&n)
	return n, err
}

// SessionCount returns the number of recorded session events.
func (s *SQLiteIndex) SessionCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}
