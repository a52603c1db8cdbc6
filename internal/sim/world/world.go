// Package world is the single-threaded authoritative simulation behind the
// bridge. All state is owned by the loop goroutine started with Run; other
// goroutines reach it through Exec/Do. Mutating it from anywhere else is a
// data race.
package world

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	ID         string
	TickRateHz int

	// Players seeded as online at startup. Runtime joins go through Join.
	Players []string

	Debug bool
}

// AuditEntry records one mutation applied through the bridge.
type AuditEntry struct {
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"` // e.g. "AGENT_MOVE", "SET_BLOCK", "SESSION_OPEN"
	Agent  string    `json:"agent,omitempty"`
	Pos    [3]int    `json:"pos,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// World owns players, agent entities, inventories and the block store.
type World struct {
	cfg Config
	log *log.Logger

	tick    atomic.Uint64
	loopGID atomic.Uint64

	players  map[string]*Player // lowercased name -> player
	entities map[uint64]*Entity
	agents   map[string]agentEntry // owner-key -> entry
	invs     map[string]*Inventory
	blocks   map[Cell]string

	nextEntityID uint64

	timeOfDay int
	weather   string

	tasks    chan func()
	stop     chan struct{}
	stopOnce sync.Once

	auditLogger AuditLogger
}

type agentEntry struct {
	EntityID uint64
	Owner    string // as resolved at spawn time, original casing
}

func New(cfg Config, logger *log.Logger) *World {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 10
	}
	w := &World{
		cfg:      cfg,
		log:      logger,
		players:  map[string]*Player{},
		entities: map[uint64]*Entity{},
		agents:   map[string]agentEntry{},
		invs:     map[string]*Inventory{},
		blocks:   map[Cell]string{},
		weather:  "clear",
		tasks:    make(chan func(), 1024),
		stop:     make(chan struct{}),
	}
	for _, name := range cfg.Players {
		w.players[lowerKey(name)] = &Player{Name: name, Pos: Vec3{X: 0.5, Y: 64, Z: 0.5}}
	}
	return w
}

func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Run drives the loop goroutine until ctx is cancelled or Stop is called.
// Tasks are executed as they arrive; the ticker advances pose animations.
func (w *World) Run(ctx context.Context) error {
	w.loopGID.Store(curGoroutineID())
	defer w.loopGID.Store(0)

	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.shutdownCleanup()
			return ctx.Err()
		case <-w.stop:
			w.shutdownCleanup()
			return nil
		case fn := <-w.tasks:
			fn()
		case <-ticker.C:
			w.tick.Add(1)
			w.stepPoses()
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// shutdownCleanup removes every bridge-owned agent entity. Runs on the loop.
func (w *World) shutdownCleanup() {
	for key, entry := range w.agents {
		if e := w.entities[entry.EntityID]; e != nil {
			e.Alive = false
			delete(w.entities, entry.EntityID)
		}
		delete(w.agents, key)
		delete(w.invs, key)
	}
}

func (w *World) audit(entry AuditEntry) {
	if w.auditLogger == nil {
		return
	}
	entry.At = time.Now()
	if err := w.auditLogger.WriteAudit(entry); err != nil && w.log != nil {
		w.log.Printf("audit write: %v", err)
	}
}

// Audit appends an entry produced outside the loop (the transport records
// session events through it). The logger implementations are safe for
// concurrent use.
func (w *World) Audit(entry AuditEntry) { w.audit(entry) }

func (w *World) debugf(format string, args ...any) {
	if w.cfg.Debug && w.log != nil {
		w.log.Printf("[debug] "+format, args...)
	}
}

// Stats is the admin-surface snapshot of loop-owned counts.
type Stats struct {
	Tick    uint64 `json:"tick"`
	Players int    `json:"players"`
	Agents  int    `json:"agents"`
	Blocks  int    `json:"blocks_placed"`
	Queue   int    `json:"queue_depth"`
}

// Snapshot gathers Stats via the loop with a bounded wait. On timeout the
// abandoned task may still run later and write its closure variable; the
// zero value is returned instead so the caller never reads that memory.
func (w *World) Snapshot(ctx context.Context) (Stats, error) {
	var s Stats
	err := w.Do(ctx, func() {
		s = Stats{
			Tick:    w.tick.Load(),
			Players: len(w.players),
			Agents:  len(w.agents),
			Blocks:  len(w.blocks),
			Queue:   len(w.tasks),
		}
	})
	if err != nil {
		return Stats{}, err
	}
	return s, nil
}
