package world

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"twbridge.dev/internal/protocol"
)

// Errors surfaced to the protocol layer. The messages are the wire reason
// strings.
var (
	ErrPlayerNotFound  = errors.New(protocol.ReasonPlayerNotFound)
	ErrSpawnFailed     = errors.New(protocol.ReasonSpawnFailed)
	ErrAgentNotFound   = errors.New(protocol.ReasonAgentNotFound)
	ErrAgentOwned      = errors.New(protocol.ReasonAgentOwned)
	ErrInvalidDir      = errors.New(protocol.ReasonInvalidDirection)
	ErrBlocksNotNumber = errors.New(protocol.ReasonBlocksNotNumber)
	ErrBlocksTooSmall  = errors.New(protocol.ReasonBlocksTooSmall)
	ErrSlotRange       = errors.New(protocol.ReasonSlotRange)
	ErrAmountRange     = errors.New(protocol.ReasonAmountRange)
	ErrBlockRequired   = errors.New(protocol.ReasonBlockRequired)
	ErrInvalidBlock    = errors.New(protocol.ReasonInvalidBlock)
	ErrNoActiveSlot    = errors.New(protocol.ReasonNoActiveSlot)
	ErrSlotNoBlock     = errors.New(protocol.ReasonSlotNoBlock)
	ErrTargetNotEmpty  = errors.New(protocol.ReasonTargetNotEmpty)
)

// AgentKey composes the registry key for an owner's agent. The owner part is
// case-insensitive; the agent id is not.
func AgentKey(owner, agentID string) string {
	return strings.ToLower(strings.TrimSpace(owner)) + "." + strings.TrimSpace(agentID)
}

// agentEntity resolves the agent's live entity, evicting a stale record when
// the world no longer has the body. Returns ErrAgentNotFound either way the
// agent is gone. Loop only.
func (w *World) agentEntity(key string) (*Entity, error) {
	entry, ok := w.agents[key]
	if !ok {
		return nil, ErrAgentNotFound
	}
	e := w.lookupEntity(entry.EntityID)
	if e == nil {
		delete(w.agents, key)
		delete(w.invs, key)
		return nil, ErrAgentNotFound
	}
	return e, nil
}

// ownedAgentEntity additionally checks the caller owns the agent.
func (w *World) ownedAgentEntity(owner, agentID string) (*Entity, error) {
	key := AgentKey(owner, agentID)
	entry, ok := w.agents[key]
	if !ok {
		return nil, ErrAgentNotFound
	}
	if !strings.EqualFold(entry.Owner, owner) {
		return nil, ErrAgentOwned
	}
	return w.agentEntity(key)
}

// AgentTeleportToPlayer spawns the agent on first use, otherwise teleports
// it to the owner's current location, snapped to the cell grid. Loop only.
func (w *World) AgentTeleportToPlayer(owner, agentID string) error {
	player := w.resolvePlayer(owner)
	if player == nil {
		w.debugf("teleport failed: player %q not found", owner)
		return ErrPlayerNotFound
	}
	ownerName := player.Name
	key := AgentKey(ownerName, agentID)
	inv := w.inventoryFor(key)
	target := snapToCell(player.Pos)

	var e *Entity
	if entry, ok := w.agents[key]; ok {
		e = w.lookupEntity(entry.EntityID)
	}
	if e == nil {
		w.debugf("spawning agent %s for %s", agentID, ownerName)
		e = w.spawnEntity(ownerName+"."+agentID, target)
		if e == nil {
			return ErrSpawnFailed
		}
		w.agents[key] = agentEntry{EntityID: e.ID, Owner: ownerName}
		w.audit(AuditEntry{Actor: ownerName, Action: "AGENT_SPAWN", Agent: agentID, Pos: cellArr(e.Pos)})
	} else {
		e.Pos = target
		w.audit(AuditEntry{Actor: ownerName, Action: "AGENT_TELEPORT", Agent: agentID, Pos: cellArr(e.Pos)})
	}
	equipActiveSlot(e, inv)
	return nil
}

// AgentMove moves the agent relative to its own facing by a clamped
// distance and starts the stride animation. Loop only.
func (w *World) AgentMove(owner, agentID, direction string, blocks float64) error {
	e, err := w.ownedAgentEntity(owner, agentID)
	if err != nil {
		return err
	}
	if math.IsNaN(blocks) || math.IsInf(blocks, 0) {
		return ErrBlocksNotNumber
	}
	dir := normalizeMoveDirection(direction)
	if dir == "" {
		return ErrInvalidDir
	}
	distance := clampDistance(blocks)
	if distance < minMoveDistance {
		return ErrBlocksTooSmall
	}
	vec, ok := moveVector(e.Yaw, e.Pitch, dir)
	if !ok {
		return ErrInvalidDir
	}
	target := snapToCell(e.Pos.Add(vec.Scale(distance)))
	e.startStride()
	e.Pos = target
	w.audit(AuditEntry{Actor: owner, Action: "AGENT_MOVE", Agent: agentID, Pos: cellArr(target),
		Detail: fmt.Sprintf("dir=%s blocks=%.2f", dir, distance)})
	return nil
}

// AgentRotate turns the agent in place by a fixed 90 degree step. Loop only.
func (w *World) AgentRotate(owner, agentID, direction string) error {
	e, err := w.ownedAgentEntity(owner, agentID)
	if err != nil {
		return err
	}
	var delta float64
	switch normalizeTurnDirection(direction) {
	case "left":
		delta = -90
	case "right":
		delta = 90
	default:
		return ErrInvalidDir
	}
	e.Yaw = normalizeYaw(e.Yaw + delta)
	w.audit(AuditEntry{Actor: owner, Action: "AGENT_ROTATE", Agent: agentID,
		Detail: fmt.Sprintf("yaw=%.0f", e.Yaw)})
	return nil
}

// AgentDespawn removes the agent, its entity and its inventory. Only the
// owning identity may despawn it. Loop only.
func (w *World) AgentDespawn(owner, agentID string) error {
	key := AgentKey(owner, agentID)
	entry, ok := w.agents[key]
	if !ok {
		return ErrAgentNotFound
	}
	if !strings.EqualFold(entry.Owner, owner) {
		return ErrAgentOwned
	}
	if e := w.lookupEntity(entry.EntityID); e != nil {
		e.Alive = false
		delete(w.entities, entry.EntityID)
	}
	delete(w.agents, key)
	delete(w.invs, key)
	w.debugf("despawned agent %s", agentID)
	w.audit(AuditEntry{Actor: owner, Action: "AGENT_DESPAWN", Agent: agentID})
	return nil
}

// AgentSlotAssign stores a placeable block stack in a slot. Assigning to the
// currently active slot re-equips immediately. Loop only.
func (w *World) AgentSlotAssign(owner, agentID, blockID string, amount, slot int) error {
	if slot < 1 || slot > InventorySlots {
		return ErrSlotRange
	}
	if amount < 1 || amount > 64 {
		return ErrAmountRange
	}
	e, err := w.ownedAgentEntity(owner, agentID)
	if err != nil {
		return err
	}
	blockID = strings.ToLower(strings.TrimSpace(blockID))
	if blockID == "" {
		return ErrBlockRequired
	}
	if !ValidBlock(blockID) {
		return ErrInvalidBlock
	}
	key := AgentKey(owner, agentID)
	inv := w.inventoryFor(key)
	inv.Slots[slot-1] = &ItemStack{Block: blockID, Amount: amount}
	if inv.Active == slot-1 {
		equipActiveSlot(e, inv)
	}
	w.audit(AuditEntry{Actor: owner, Action: "SLOT_ASSIGN", Agent: agentID,
		Detail: fmt.Sprintf("slot=%d block=%s amount=%d", slot, blockID, amount)})
	return nil
}

// AgentSlotActivate selects the active slot and equips its contents, or
// empties the hand when the slot is empty. Loop only.
func (w *World) AgentSlotActivate(owner, agentID string, slot int) error {
	if slot < 1 || slot > InventorySlots {
		return ErrSlotRange
	}
	e, err := w.ownedAgentEntity(owner, agentID)
	if err != nil {
		return err
	}
	inv := w.inventoryFor(AgentKey(owner, agentID))
	inv.Active = slot - 1
	equipActiveSlot(e, inv)
	w.audit(AuditEntry{Actor: owner, Action: "SLOT_ACTIVATE", Agent: agentID,
		Detail: fmt.Sprintf("slot=%d", slot)})
	return nil
}

// AgentPlace puts one unit of the active stack into the adjacent empty cell
// in the given direction, decrementing the stack and clearing the slot at
// zero. Loop only.
func (w *World) AgentPlace(owner, agentID, direction string) error {
	e, err := w.ownedAgentEntity(owner, agentID)
	if err != nil {
		return err
	}
	key := AgentKey(owner, agentID)
	inv := w.invs[key]
	if inv == nil || inv.Active < 0 || inv.Active >= InventorySlots {
		return ErrNoActiveSlot
	}
	held := inv.Slots[inv.Active]
	if held == nil || held.Block == "" {
		return ErrSlotNoBlock
	}
	vec, ok := placeVector(e.Yaw, e.Pitch, normalizePlaceDirection(direction))
	if !ok {
		return ErrInvalidDir
	}
	target := CellAt(e.Pos.Add(vec))
	if !w.cellEmpty(target) {
		return ErrTargetNotEmpty
	}
	w.SetBlock(target, held.Block)
	held.Amount--
	if held.Amount <= 0 {
		inv.Slots[inv.Active] = nil
	}
	equipActiveSlot(e, inv)
	w.audit(AuditEntry{Actor: owner, Action: "SET_BLOCK", Agent: agentID,
		Pos: [3]int{target.X, target.Y, target.Z}, Detail: held.Block})
	return nil
}

// AgentEntityID exposes the entity backing an agent, for tests and the
// admin surface. Loop only.
func (w *World) AgentEntityID(owner, agentID string) (uint64, bool) {
	entry, ok := w.agents[AgentKey(owner, agentID)]
	return entry.EntityID, ok
}

// AgentState reads back an agent's transform. Loop only.
func (w *World) AgentState(owner, agentID string) (*Entity, error) {
	return w.agentEntity(AgentKey(owner, agentID))
}

func normalizeMoveDirection(direction string) string {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "forward":
		return "forward"
	case "back":
		return "back"
	case "left":
		return "left"
	case "right":
		return "right"
	}
	return ""
}

func normalizeTurnDirection(direction string) string {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "left":
		return "left"
	case "right":
		return "right"
	}
	return ""
}

func normalizePlaceDirection(direction string) string {
	return strings.ToLower(strings.TrimSpace(direction))
}

func cellArr(p Vec3) [3]int {
	c := CellAt(p)
	return [3]int{c.X, c.Y, c.Z}
}
