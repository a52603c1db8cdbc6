package world

import (
	"context"
	"strings"
	"time"
)

// Player is a connected simulation identity. Agents are owned by players and
// teleport targets are player positions.
type Player struct {
	Name  string
	Pos   Vec3
	Yaw   float64
	Pitch float64
}

func lowerKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Join adds or replaces an online player. Loop only.
func (w *World) Join(name string, pos Vec3, yaw, pitch float64) {
	w.players[lowerKey(name)] = &Player{Name: name, Pos: pos, Yaw: yaw, Pitch: pitch}
	w.debugf("player joined: %s", name)
}

// Leave removes a player from the online set. The player's agents stay; only
// an explicit despawn or shutdown cleanup removes them. Loop only.
func (w *World) Leave(name string) {
	delete(w.players, lowerKey(name))
	w.debugf("player left: %s", name)
}

// MovePlayer updates a player's transform. Loop only.
func (w *World) MovePlayer(name string, pos Vec3, yaw, pitch float64) bool {
	p := w.players[lowerKey(name)]
	if p == nil {
		return false
	}
	p.Pos, p.Yaw, p.Pitch = pos, yaw, pitch
	return true
}

// resolvePlayer finds an online player, exact name first, then
// case-insensitive. Loop only.
func (w *World) resolvePlayer(name string) *Player {
	if name == "" {
		return nil
	}
	for _, p := range w.players {
		if p.Name == name {
			return p
		}
	}
	return w.players[lowerKey(name)]
}

// ResolveOnlinePlayerName resolves a requested identity to its canonical
// online name from any goroutine, crossing into the loop with a bounded
// wait. A timeout resolves to not-found rather than stalling the caller.
func (w *World) ResolveOnlinePlayerName(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resolved := ""
	if err := w.Do(ctx, func() {
		if p := w.resolvePlayer(strings.TrimSpace(name)); p != nil {
			resolved = p.Name
		}
	}); err != nil {
		return ""
	}
	return resolved
}
