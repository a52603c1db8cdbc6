// Package ws is the bridge's WebSocket face: it gates connections through
// the origin policy and rate limiter, parses command frames, and correlates
// asynchronous results from the world loop back to the originating
// connection.
package ws

import (
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"twbridge.dev/internal/bridge"
	"twbridge.dev/internal/protocol"
	"twbridge.dev/internal/sim/world"
)

type Options struct {
	RequirePairing  bool
	PairWindow      time.Duration
	MaxMsgPerSecond int
	MaxMsgBytes     int
	Origins         []string
	Debug           bool
}

type Server struct {
	world *world.World
	log   *log.Logger
	opts  Options

	pairing  *bridge.PairingAuthority
	sessions *bridge.SessionRegistry
	limiter  *bridge.RateLimiter
	origins  *bridge.OriginPolicy

	upgrader websocket.Upgrader

	nextConn atomic.Uint64
	connsMu  sync.Mutex
	conns    map[bridge.ConnID]*client
}

func NewServer(w *world.World, opts Options, logger *log.Logger) *Server {
	if opts.MaxMsgPerSecond <= 0 {
		opts.MaxMsgPerSecond = 30
	}
	if opts.MaxMsgBytes <= 0 {
		opts.MaxMsgBytes = 8192
	}
	if opts.PairWindow <= 0 {
		opts.PairWindow = 60 * time.Second
	}
	s := &Server{
		world:    w,
		log:      logger,
		opts:     opts,
		pairing:  bridge.NewPairingAuthority(opts.RequirePairing, opts.PairWindow),
		sessions: bridge.NewSessionRegistry(),
		limiter:  bridge.NewRateLimiter(opts.MaxMsgPerSecond),
		origins:  bridge.NewOriginPolicy(opts.Origins),
		conns:    map[bridge.ConnID]*client{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			// The allow-list is applied after the upgrade so a rejected
			// browser peer gets a proper 1008 close frame, not a bare 403.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if opts.RequirePairing {
		if code, ok := s.pairing.Rotate(); ok {
			logger.Printf("pairing code: %s (valid %s)", code, opts.PairWindow)
		}
	}
	return s
}

// RotatePairCode arms a fresh code. ok=false means pairing is disabled.
func (s *Server) RotatePairCode() (string, bool) {
	code, ok := s.pairing.Rotate()
	if ok {
		s.log.Printf("pairing code: %s (valid %s)", code, s.opts.PairWindow)
	}
	return code, ok
}

// Stats is the admin-surface view of the transport.
type Stats struct {
	Connections int  `json:"connections"`
	Sessions    int  `json:"sessions"`
	Pairing     bool `json:"pairing_required"`
	CodeActive  bool `json:"pair_code_active"`
}

func (s *Server) Stats() Stats {
	s.connsMu.Lock()
	n := len(s.conns)
	s.connsMu.Unlock()
	return Stats{
		Connections: n,
		Sessions:    s.sessions.Count(),
		Pairing:     s.opts.RequirePairing,
		CodeActive:  s.pairing.Active(),
	}
}

// Close force-closes every live connection and stops the limiter.
func (s *Server) Close() {
	s.connsMu.Lock()
	clients := make([]*client, 0, len(s.conns))
	for _, c := range s.conns {
		clients = append(clients, c)
	}
	s.connsMu.Unlock()
	for _, c := range clients {
		c.close(websocket.CloseGoingAway, "server shutdown")
	}
	s.limiter.Close()
}

// client wraps one peer. All writes go through the mutex so responses
// produced on the world loop cannot interleave with other writers, and
// writes after close are no-ops.
type client struct {
	id   bridge.ConnID
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func (c *client) send(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = c.conn.WriteJSON(v)
}

func (c *client) reply(resp protocol.Response) { c.send(resp) }

// close sends a close frame with the given code and reason, then tears the
// socket down. Idempotent.
func (c *client) close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = c.conn.Close()
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		c := &client{id: bridge.ConnID(s.nextConn.Add(1)), conn: conn}

		if r.RemoteAddr == "" {
			c.close(protocol.ClosePolicyViolation, "address unknown")
			return
		}
		if !s.origins.Allowed(origin) {
			c.close(protocol.ClosePolicyViolation, "origin not allowed")
			return
		}

		s.connsMu.Lock()
		s.conns[c.id] = c
		s.connsMu.Unlock()

		s.log.Printf("ws connected: %s", r.RemoteAddr)
		s.debugf("connection opened: %s", r.RemoteAddr)

		c.send(protocol.HelloMsg{Hello: protocol.HelloName, Pairing: s.opts.RequirePairing})

		s.readLoop(c, r.RemoteAddr)

		s.connsMu.Lock()
		delete(s.conns, c.id)
		s.connsMu.Unlock()
		s.limiter.Forget(c.id)
		if sess := s.sessions.Release(c.id); sess != nil {
			s.world.Audit(world.AuditEntry{Actor: sess.Player, Action: "SESSION_CLOSE", Detail: sess.ID})
			s.debugf("session released for %s player=%s", r.RemoteAddr, sess.Player)
		}
		s.log.Printf("ws disconnected: %s", r.RemoteAddr)
	}
}

func (s *Server) readLoop(c *client, remote string) {
	defer c.close(websocket.CloseNormalClosure, "")
	// Read limit is a backstop; the byte ceiling below is the real policy.
	c.conn.SetReadLimit(int64(s.opts.MaxMsgBytes) * 2)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if len(msg) > s.opts.MaxMsgBytes {
			c.close(protocol.CloseTooLarge, "msg too large")
			return
		}
		if s.limiter.Record(c.id) {
			c.close(protocol.CloseInternal, "rate limit")
			return
		}
		if !s.dispatch(c, msg) {
			return
		}
	}
}

func (s *Server) debugf(format string, args ...any) {
	if s.opts.Debug {
		s.log.Printf("[debug] "+format, args...)
	}
}
