package indexdb

import (
	"path/filepath"
	"testing"
	"time"

	"twbridge.dev/internal/sim/world"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func waitCount(t *testing.T, count func() (int, error), want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		n, err := count()
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("count = %d, want %d", n, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIndexWritesAudits(t *testing.T) {
	s := openTestIndex(t)
	defer s.Close()

	for i := 0; i < 5; i++ {
		err := s.WriteAudit(world.AuditEntry{
			At: time.Now(), Actor: "Steve", Action: "AGENT_MOVE", Agent: "a",
			Pos: [3]int{0, 64, i},
		})
		if err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	waitCount(t, s.AuditCount, 5)
	if s.Dropped() != 0 {
		t.Fatalf("dropped = %d", s.Dropped())
	}
}

func TestIndexDerivesSessions(t *testing.T) {
	s := openTestIndex(t)
	defer s.Close()

	_ = s.WriteAudit(world.AuditEntry{At: time.Now(), Actor: "Steve", Action: "SESSION_OPEN", Detail: "sid-1"})
	_ = s.WriteAudit(world.AuditEntry{At: time.Now(), Actor: "Steve", Action: "SESSION_CLOSE", Detail: "sid-1"})
	waitCount(t, s.SessionCount, 2)
}

func TestIndexRecordSession(t *testing.T) {
	s := openTestIndex(t)
	defer s.Close()

	s.RecordSession(SessionEvent{SessionID: "sid-2", Player: "Alex", Event: "open"})
	waitCount(t, s.SessionCount, 1)
}

func TestIndexWriteAfterClose(t *testing.T) {
	s := openTestIndex(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Writes after close are silently discarded, not a panic or error.
	if err := s.WriteAudit(world.AuditEntry{Actor: "Steve", Action: "AGENT_MOVE"}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	s.RecordSession(SessionEvent{SessionID: "late"})
	if err := s.Close(); err != nil {
		t.Fatalf("double close: %v", err)
	}
}

func TestIndexReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = s.WriteAudit(world.AuditEntry{At: time.Now(), Actor: "Steve", Action: "SET_BLOCK", Detail: "stone"})
	waitCount(t, s.AuditCount, 1)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if n, err := s2.AuditCount(); err != nil || n != 1 {
		t.Fatalf("count after reopen = %d (%v)", n, err)
	}
}
