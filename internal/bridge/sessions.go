package bridge

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnID identifies one live connection. The transport allocates them from a
// counter on upgrade; they are never reused within a process lifetime.
type ConnID uint64

// Session is the authenticated binding between one connection and one player
// identity. A session never outlives its connection.
type Session struct {
	ID        string
	Player    string
	CreatedAt time.Time
}

// SessionRegistry enforces one session per connection and one connection per
// player identity (case-insensitive). Bind is a check-and-set under a single
// lock so two simultaneous pairings for the same player cannot both win.
type SessionRegistry struct {
	mu     sync.Mutex
	byConn map[ConnID]*Session
	owners map[string]ConnID // lowercased player -> holding connection
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byConn: map[ConnID]*Session{},
		owners: map[string]ConnID{},
	}
}

// Bind creates a session for conn owning player. Fails when the connection
// already has a session or when another live connection holds the identity.
func (r *SessionRegistry) Bind(player string, conn ConnID) (*Session, bool) {
	key := strings.ToLower(player)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byConn[conn]; exists {
		return nil, false
	}
	if holder, taken := r.owners[key]; taken && holder != conn {
		return nil, false
	}
	s := &Session{
		ID:        uuid.NewString(),
		Player:    player,
		CreatedAt: time.Now(),
	}
	r.byConn[conn] = s
	r.owners[key] = conn
	return s, true
}

func (r *SessionRegistry) SessionFor(conn ConnID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byConn[conn]
}

// Validate reports whether conn holds a session whose id equals claimed.
func (r *SessionRegistry) Validate(conn ConnID, claimed string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.byConn[conn]
	return s != nil && claimed == s.ID
}

// Release drops the session bound to conn, if any, and frees the identity.
// Safe to call unconditionally on connection close.
func (r *SessionRegistry) Release(conn ConnID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.byConn[conn]
	if s == nil {
		return nil
	}
	delete(r.byConn, conn)
	key := strings.ToLower(s.Player)
	if r.owners[key] == conn {
		delete(r.owners, key)
	}
	return s
}

// Count returns the number of live sessions.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byConn)
}
