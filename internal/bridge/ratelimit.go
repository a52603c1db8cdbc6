package bridge

import (
	"sync"
	"time"
)

// RateLimiter counts frames per connection inside a shared fixed one-second
// window. A background tick zeroes every counter at once, so a burst that
// straddles a window boundary can briefly exceed the nominal rate; callers
// accept that imprecision.
type RateLimiter struct {
	max int

	mu     sync.Mutex
	counts map[ConnID]int

	stop chan struct{}
	once sync.Once
}

func NewRateLimiter(maxPerSecond int) *RateLimiter {
	l := &RateLimiter{
		max:    maxPerSecond,
		counts: map[ConnID]int{},
		stop:   make(chan struct{}),
	}
	go l.resetLoop()
	return l
}

func (l *RateLimiter) resetLoop() {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.resetAll()
		}
	}
}

func (l *RateLimiter) resetAll() {
	l.mu.Lock()
	for k := range l.counts {
		l.counts[k] = 0
	}
	l.mu.Unlock()
}

// Record increments the counter for conn and reports whether the configured
// ceiling was exceeded in the current window. Exceeding it is fatal for the
// connection; the transport closes it rather than sending a protocol error.
func (l *RateLimiter) Record(conn ConnID) (exceeded bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[conn]++
	return l.counts[conn] > l.max
}

// Forget releases the counter of a closed connection.
func (l *RateLimiter) Forget(conn ConnID) {
	l.mu.Lock()
	delete(l.counts, conn)
	l.mu.Unlock()
}

func (l *RateLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}
