package world

import (
	"context"
	"sync"
	"testing"
	"time"
)

func startLoop(t *testing.T, w *World) {
	t.Helper()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = w.Run(context.Background())
	}()
	t.Cleanup(func() {
		w.Stop()
		wg.Wait()
	})
}

func TestDoRunsOnLoop(t *testing.T) {
	w := newTestWorld()
	startLoop(t, w)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var onLoop bool
	if err := w.Do(ctx, func() { onLoop = w.OnLoop() }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !onLoop {
		t.Fatalf("task must observe itself on the loop goroutine")
	}
	if w.OnLoop() {
		t.Fatalf("test goroutine must not be the loop")
	}
}

func TestExecInlineFromLoop(t *testing.T) {
	w := newTestWorld()
	startLoop(t, w)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// A task that schedules another task inline must not deadlock waiting
	// on its own queue slot.
	var nested bool
	err := w.Do(ctx, func() {
		w.Exec(func() { nested = true })
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !nested {
		t.Fatalf("nested Exec must run inline")
	}
}

func TestDoTimeout(t *testing.T) {
	w := newTestWorld()
	// Loop never started, so the queue drains nothing.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.Do(ctx, func() {})
	if err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestDoAfterStop(t *testing.T) {
	w := newTestWorld()
	startLoop(t, w)
	w.Stop()

	// Stop closes the loop; Do must fail fast rather than hang.
	deadline := time.After(2 * time.Second)
	done := make(chan error, 1)
	go func() { done <- w.Do(context.Background(), func() {}) }()
	select {
	case err := <-done:
		if err != nil && err != ErrStopped {
			t.Fatalf("err = %v", err)
		}
	case <-deadline:
		t.Fatalf("Do hung after Stop")
	}
}

func TestSnapshot(t *testing.T) {
	w := newTestWorld("Steve")
	startLoop(t, w)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := w.Do(ctx, func() {
		mustTeleport(t, w, "Steve", "alpha")
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	s, err := w.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if s.Players != 1 || s.Agents != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestSnapshotTimeoutReturnsZero(t *testing.T) {
	w := newTestWorld("Steve")
	startLoop(t, w)

	// Stall the loop so Snapshot's task stays queued past its deadline.
	block := make(chan struct{})
	w.Exec(func() { <-block })
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s, err := w.Snapshot(ctx)
	if err == nil {
		t.Fatalf("expected timeout")
	}
	// The abandoned task runs later and writes its own closure variable;
	// the returned value must be untouched by it.
	if s != (Stats{}) {
		t.Fatalf("stats after timeout = %+v, want zero value", s)
	}
}

func TestShutdownCleanupRemovesAgents(t *testing.T) {
	w := newTestWorld("Steve")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = w.Run(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Do(ctx, func() {
		mustTeleport(t, w, "Steve", "alpha")
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}

	w.Stop()
	wg.Wait()

	// Safe to inspect directly once the loop has exited.
	if len(w.agents) != 0 || len(w.entities) != 0 || len(w.invs) != 0 {
		t.Fatalf("cleanup left agents=%d entities=%d invs=%d",
			len(w.agents), len(w.entities), len(w.invs))
	}
}

func TestStridePoseAnimation(t *testing.T) {
	w := newTestWorld("Steve")
	mustTeleport(t, w, "Steve", "alpha")
	if err := w.AgentMove("Steve", "alpha", "forward", 1); err != nil {
		t.Fatal(err)
	}
	e, _ := w.AgentState("Steve", "alpha")

	seen := map[string]bool{}
	for i := 0; i < poseAnimationTicks; i++ {
		w.stepPoses()
		seen[e.Pose] = true
	}
	if !seen[PoseStrideA] || !seen[PoseStrideB] {
		t.Fatalf("stride must alternate poses, saw %v", seen)
	}
	if e.Pose != PoseNeutral {
		t.Fatalf("pose = %q, want neutral after the animation", e.Pose)
	}
	// Further ticks are a no-op.
	w.stepPoses()
	if e.Pose != PoseNeutral {
		t.Fatalf("pose changed after animation ended")
	}
}
