// Package bridge holds the connection-facing state machines of the twbridge
// protocol: pairing codes, session bindings, per-connection rate counters and
// the origin allow-list. Everything here is safe for concurrent use from the
// transport's I/O goroutines.
package bridge

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// PairingAuthority owns the single process-wide pairing code. The code is
// single-use: Consume validates and clears it under one lock acquisition, so
// at most one of several concurrent attempts can win.
type PairingAuthority struct {
	required bool
	window   time.Duration

	mu        sync.Mutex
	code      string
	expiresAt time.Time

	now func() time.Time
}

func NewPairingAuthority(required bool, window time.Duration) *PairingAuthority {
	return &PairingAuthority{
		required: required,
		window:   window,
		now:      time.Now,
	}
}

func (p *PairingAuthority) Required() bool { return p.required }

// Rotate generates a fresh zero-padded 6-digit code and arms the expiry
// window. Returns ok=false when pairing is administratively disabled.
func (p *PairingAuthority) Rotate() (code string, ok bool) {
	if !p.required {
		return "", false
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(fmt.Sprintf("pairing: rand: %v", err))
	}
	code = fmt.Sprintf("%06d", n.Int64())

	p.mu.Lock()
	p.code = code
	p.expiresAt = p.now().Add(p.window)
	p.mu.Unlock()
	return code, true
}

// Consume atomically compares the presented code against the active one and
// clears it on match. An expired or already-consumed code behaves exactly
// like no code at all.
func (p *PairingAuthority) Consume(code string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.code == "" || code == "" {
		return false
	}
	if p.now().After(p.expiresAt) {
		p.code = ""
		p.expiresAt = time.Time{}
		return false
	}
	if code != p.code {
		return false
	}
	p.code = ""
	p.expiresAt = time.Time{}
	return true
}

// Active reports whether an unexpired code is currently armed.
func (p *PairingAuthority) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code != "" && !p.now().After(p.expiresAt)
}
