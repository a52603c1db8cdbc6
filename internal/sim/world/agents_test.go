package world

import (
	"errors"
	"math"
	"testing"
)

func newTestWorld(players ...string) *World {
	return New(Config{ID: "test", TickRateHz: 10, Players: players}, nil)
}

func TestAgentTeleportSpawns(t *testing.T) {
	w := newTestWorld("Steve")
	w.MovePlayer("Steve", Vec3{10.3, 64.9, -3.7}, 0, 0)

	if err := w.AgentTeleportToPlayer("Steve", "alpha"); err != nil {
		t.Fatalf("teleport: %v", err)
	}
	e, err := w.AgentState("Steve", "alpha")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	want := Vec3{10.5, 64, -3.5}
	if e.Pos != want {
		t.Fatalf("spawn pos = %+v, want snapped %+v", e.Pos, want)
	}
	if !e.Alive {
		t.Fatalf("spawned agent must be alive")
	}
}

func TestAgentTeleportMovesExisting(t *testing.T) {
	w := newTestWorld("Steve")
	if err := w.AgentTeleportToPlayer("Steve", "alpha"); err != nil {
		t.Fatalf("teleport: %v", err)
	}
	id1, _ := w.AgentEntityID("Steve", "alpha")

	w.MovePlayer("Steve", Vec3{100.2, 70.8, 100.9}, 0, 0)
	if err := w.AgentTeleportToPlayer("Steve", "alpha"); err != nil {
		t.Fatalf("re-teleport: %v", err)
	}
	id2, _ := w.AgentEntityID("Steve", "alpha")
	if id1 != id2 {
		t.Fatalf("re-teleport must reuse the entity, got %d then %d", id1, id2)
	}
	e, _ := w.AgentState("Steve", "alpha")
	if e.Pos != (Vec3{100.5, 70, 100.5}) {
		t.Fatalf("teleported pos = %+v", e.Pos)
	}
}

func TestAgentTeleportCaseInsensitiveOwner(t *testing.T) {
	w := newTestWorld("Steve")
	if err := w.AgentTeleportToPlayer("steve", "alpha"); err != nil {
		t.Fatalf("case-insensitive resolve: %v", err)
	}
	// The agent is keyed under the canonical name.
	if _, ok := w.AgentEntityID("STEVE", "alpha"); !ok {
		t.Fatalf("agent must resolve under any owner casing")
	}
}

func TestAgentTeleportPlayerNotFound(t *testing.T) {
	w := newTestWorld("Steve")
	if err := w.AgentTeleportToPlayer("Nobody", "alpha"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("err = %v, want ErrPlayerNotFound", err)
	}
}

func TestAgentMove(t *testing.T) {
	w := newTestWorld("Steve")
	mustTeleport(t, w, "Steve", "alpha")

	// Yaw zero faces +Z.
	if err := w.AgentMove("Steve", "alpha", "forward", 3); err != nil {
		t.Fatalf("move: %v", err)
	}
	e, _ := w.AgentState("Steve", "alpha")
	if e.Pos != (Vec3{0.5, 64, 3.5}) {
		t.Fatalf("pos after forward 3 = %+v", e.Pos)
	}
	if e.poseTicks == 0 {
		t.Fatalf("move must start the stride animation")
	}

	if err := w.AgentMove("Steve", "alpha", "Back", 1); err != nil {
		t.Fatalf("move back: %v", err)
	}
	e, _ = w.AgentState("Steve", "alpha")
	if e.Pos != (Vec3{0.5, 64, 2.5}) {
		t.Fatalf("pos after back 1 = %+v", e.Pos)
	}
}

func TestAgentMoveClampAndSign(t *testing.T) {
	w := newTestWorld("Steve")
	mustTeleport(t, w, "Steve", "alpha")

	// Negative distances move the same way, clamped to 64 blocks.
	if err := w.AgentMove("Steve", "alpha", "forward", -1000); err != nil {
		t.Fatalf("move: %v", err)
	}
	e, _ := w.AgentState("Steve", "alpha")
	if e.Pos != (Vec3{0.5, 64, 64.5}) {
		t.Fatalf("pos after clamped move = %+v", e.Pos)
	}
}

func TestAgentMoveInvalidInputs(t *testing.T) {
	w := newTestWorld("Steve")
	mustTeleport(t, w, "Steve", "alpha")

	if err := w.AgentMove("Steve", "alpha", "forward", math.NaN()); !errors.Is(err, ErrBlocksNotNumber) {
		t.Fatalf("NaN: err = %v", err)
	}
	if err := w.AgentMove("Steve", "alpha", "forward", math.Inf(1)); !errors.Is(err, ErrBlocksNotNumber) {
		t.Fatalf("Inf: err = %v", err)
	}
	if err := w.AgentMove("Steve", "alpha", "forward", 0.001); !errors.Is(err, ErrBlocksTooSmall) {
		t.Fatalf("tiny: err = %v", err)
	}
	if err := w.AgentMove("Steve", "alpha", "up", 1); !errors.Is(err, ErrInvalidDir) {
		t.Fatalf("vertical move: err = %v", err)
	}
	if err := w.AgentMove("Steve", "missing", "forward", 1); !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("missing agent: err = %v", err)
	}
}

func TestAgentRotateWraps(t *testing.T) {
	w := newTestWorld("Steve")
	mustTeleport(t, w, "Steve", "alpha")

	steps := []struct {
		direction string
		wantYaw   float64
	}{
		{"right", 90},
		{"right", 180},
		{"right", -90}, // wraps past 180
		{"left", 180},
		{"left", 90},
	}
	for i, s := range steps {
		if err := w.AgentRotate("Steve", "alpha", s.direction); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		e, _ := w.AgentState("Steve", "alpha")
		if e.Yaw != s.wantYaw {
			t.Fatalf("step %d: yaw = %v, want %v", i, e.Yaw, s.wantYaw)
		}
	}
	if err := w.AgentRotate("Steve", "alpha", "around"); !errors.Is(err, ErrInvalidDir) {
		t.Fatalf("bad direction: err = %v", err)
	}
}

func TestAgentMoveRespectsRotation(t *testing.T) {
	w := newTestWorld("Steve")
	mustTeleport(t, w, "Steve", "alpha")

	// Face -X, then forward should decrease X.
	if err := w.AgentRotate("Steve", "alpha", "right"); err != nil {
		t.Fatal(err)
	}
	if err := w.AgentMove("Steve", "alpha", "forward", 2); err != nil {
		t.Fatal(err)
	}
	e, _ := w.AgentState("Steve", "alpha")
	if e.Pos != (Vec3{-1.5, 64, 0.5}) {
		t.Fatalf("pos = %+v, want -X heading", e.Pos)
	}
}

func TestAgentOwnership(t *testing.T) {
	w := newTestWorld("Steve", "Alex")
	mustTeleport(t, w, "Steve", "alpha")

	// Same agent id under another owner is a different agent, not a
	// conflict.
	if err := w.AgentMove("Alex", "alpha", "forward", 1); !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("other owner's missing agent: err = %v", err)
	}
	mustTeleport(t, w, "Alex", "alpha")
	idSteve, _ := w.AgentEntityID("Steve", "alpha")
	idAlex, _ := w.AgentEntityID("Alex", "alpha")
	if idSteve == idAlex {
		t.Fatalf("owners must get distinct agents")
	}
}

func TestAgentDespawn(t *testing.T) {
	w := newTestWorld("Steve")
	mustTeleport(t, w, "Steve", "alpha")
	id, _ := w.AgentEntityID("Steve", "alpha")

	if err := w.AgentDespawn("Steve", "alpha"); err != nil {
		t.Fatalf("despawn: %v", err)
	}
	if w.lookupEntity(id) != nil {
		t.Fatalf("entity must be removed")
	}
	if _, err := w.AgentState("Steve", "alpha"); !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("state after despawn: err = %v", err)
	}
	if err := w.AgentDespawn("Steve", "alpha"); !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("double despawn: err = %v", err)
	}
}

func TestAgentStaleEntityEvicted(t *testing.T) {
	w := newTestWorld("Steve")
	mustTeleport(t, w, "Steve", "alpha")
	id, _ := w.AgentEntityID("Steve", "alpha")

	// Simulate external removal out from under the registry.
	w.RemoveEntity(id)

	if err := w.AgentMove("Steve", "alpha", "forward", 1); !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("stale agent: err = %v", err)
	}
	// The record was evicted, so a new teleport spawns a fresh entity.
	mustTeleport(t, w, "Steve", "alpha")
	id2, _ := w.AgentEntityID("Steve", "alpha")
	if id2 == id {
		t.Fatalf("eviction must allow a fresh spawn")
	}
}

func mustTeleport(t *testing.T, w *World, owner, agentID string) {
	t.Helper()
	if err := w.AgentTeleportToPlayer(owner, agentID); err != nil {
		t.Fatalf("teleport %s.%s: %v", owner, agentID, err)
	}
}
