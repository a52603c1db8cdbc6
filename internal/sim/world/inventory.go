package world

// InventorySlots is the fixed agent inventory size. Slots are 1-indexed on
// the wire and 0-indexed here.
const InventorySlots = 27

// NoActiveSlot marks an inventory with nothing equipped.
const NoActiveSlot = -1

type ItemStack struct {
	Block  string
	Amount int
}

type Inventory struct {
	Slots  [InventorySlots]*ItemStack
	Active int
}

func NewInventory() *Inventory {
	return &Inventory{Active: NoActiveSlot}
}

// ActiveStack returns the stack in the active slot, or nil when no slot is
// active or the slot is empty.
func (inv *Inventory) ActiveStack() *ItemStack {
	if inv.Active < 0 || inv.Active >= InventorySlots {
		return nil
	}
	return inv.Slots[inv.Active]
}

// inventoryFor returns the agent's inventory, creating it on first use.
// Loop only.
func (w *World) inventoryFor(agentKey string) *Inventory {
	inv := w.invs[agentKey]
	if inv == nil {
		inv = NewInventory()
		w.invs[agentKey] = inv
	}
	return inv
}

// equipActiveSlot mirrors the active slot into the entity's main hand; an
// empty or inactive slot empties the hand. Loop only.
func equipActiveSlot(e *Entity, inv *Inventory) {
	if e == nil || inv == nil {
		return
	}
	stack := inv.ActiveStack()
	if stack == nil {
		e.MainHand = nil
		return
	}
	held := *stack
	e.MainHand = &held
}
