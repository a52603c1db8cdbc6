package world

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"strconv"
)

// ErrStopped is returned by Do when the world loop is gone.
var ErrStopped = errors.New("world stopped")

// OnLoop reports whether the calling goroutine is the world loop itself.
func (w *World) OnLoop() bool {
	gid := w.loopGID.Load()
	return gid != 0 && gid == curGoroutineID()
}

// Exec schedules fn onto the loop goroutine. When called from the loop it
// runs fn inline instead of re-queuing, so loop-originated calls back into
// world logic cannot deadlock on a self-submitted task.
func (w *World) Exec(fn func()) {
	if w.OnLoop() {
		fn()
		return
	}
	select {
	case w.tasks <- fn:
	case <-w.stop:
	}
}

// Do runs fn on the loop and waits for it to finish, bounded by ctx. A
// timeout leaves the task queued; fn must therefore tolerate running after
// the caller has given up.
func (w *World) Do(ctx context.Context, fn func()) error {
	if w.OnLoop() {
		fn()
		return nil
	}
	done := make(chan struct{})
	task := func() {
		fn()
		close(done)
	}
	select {
	case w.tasks <- task:
	case <-w.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-w.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

var goroutinePrefix = []byte("goroutine ")

// curGoroutineID parses the goroutine id from a one-frame stack dump. Cheap
// enough for the per-task check and avoids carrying a platform dependency.
func curGoroutineID() uint64 {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
