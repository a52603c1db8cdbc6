package world

import "testing"

func TestResolvePlayerCasing(t *testing.T) {
	w := newTestWorld("Steve")
	if p := w.resolvePlayer("Steve"); p == nil || p.Name != "Steve" {
		t.Fatalf("exact lookup failed")
	}
	if p := w.resolvePlayer("sTeVe"); p == nil || p.Name != "Steve" {
		t.Fatalf("case-insensitive lookup failed")
	}
	if p := w.resolvePlayer("Alex"); p != nil {
		t.Fatalf("unknown player resolved to %+v", p)
	}
	if p := w.resolvePlayer(""); p != nil {
		t.Fatalf("empty name resolved")
	}
}

func TestResolveOnlinePlayerName(t *testing.T) {
	w := newTestWorld("Steve")
	startLoop(t, w)

	if got := w.ResolveOnlinePlayerName("steve"); got != "Steve" {
		t.Fatalf("resolved = %q, want canonical casing", got)
	}
	if got := w.ResolveOnlinePlayerName("  Steve  "); got != "Steve" {
		t.Fatalf("trimmed resolve = %q", got)
	}
	if got := w.ResolveOnlinePlayerName("Alex"); got != "" {
		t.Fatalf("offline player resolved to %q", got)
	}
	if got := w.ResolveOnlinePlayerName("   "); got != "" {
		t.Fatalf("blank name resolved to %q", got)
	}
}

func TestJoinLeave(t *testing.T) {
	w := newTestWorld()
	w.Join("Alex", Vec3{1, 64, 1}, 90, 0)
	if p := w.resolvePlayer("alex"); p == nil || p.Yaw != 90 {
		t.Fatalf("join did not register")
	}
	w.Leave("ALEX")
	if w.resolvePlayer("alex") != nil {
		t.Fatalf("leave did not remove")
	}
	if w.MovePlayer("alex", Vec3{}, 0, 0) {
		t.Fatalf("moving an offline player must fail")
	}
}
