package actor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/tactica/internal/game/item"
	"github.com/cory-johannsen/tactica/internal/game/stats"
)

// slotOrder fixes the order equipped bonuses and attacks are reported in.
var slotOrder = []item.Slot{
	item.SlotMainHand, item.SlotOffHand, item.SlotHead, item.SlotTorso, item.SlotHands, item.SlotFeet,
}

// Inventory holds carried item stacks and the items equipped per slot.
type Inventory struct {
	items    []*item.Instance
	equipped map[item.Slot]*item.Instance
}

// NewInventory creates an empty Inventory.
func NewInventory() *Inventory {
	return &Inventory{equipped: make(map[item.Slot]*item.Instance)}
}

// Add puts inst in the carried list.
func (inv *Inventory) Add(inst *item.Instance) { inv.items = append(inv.items, inst) }

// Items returns the carried stacks in pickup order.
func (inv *Inventory) Items() []*item.Instance {
	out := make([]*item.Instance, len(inv.items))
	copy(out, inv.items)
	return out
}

// Take removes the carried stack with id.
func (inv *Inventory) Take(id uuid.UUID) (*item.Instance, bool) {
	for i, it := range inv.items {
		if it.ID == id {
			inv.items = append(inv.items[:i], inv.items[i+1:]...)
			return it, true
		}
	}
	return nil, false
}

// Equip places inst in its slot, returning whatever was there to the
// carried list.
//
// Precondition: inst.Def.Equippable must be non-nil.
func (inv *Inventory) Equip(inst *item.Instance) error {
	if inst.Def.Equippable == nil {
		return fmt.Errorf("item %q is not equippable", inst.Def.ID)
	}
	slot := inst.Def.Equippable.Slot
	if prev, ok := inv.equipped[slot]; ok {
		inv.items = append(inv.items, prev)
	}
	inv.equipped[slot] = inst
	return nil
}

// Unequip moves the item in slot back to the carried list.
func (inv *Inventory) Unequip(slot item.Slot) (*item.Instance, bool) {
	prev, ok := inv.equipped[slot]
	if !ok {
		return nil, false
	}
	delete(inv.equipped, slot)
	inv.items = append(inv.items, prev)
	return prev, true
}

// Equipped returns the item in slot, if any.
func (inv *Inventory) Equipped(slot item.Slot) (*item.Instance, bool) {
	it, ok := inv.equipped[slot]
	return it, ok
}

// EquippedBonuses returns the bonuses of every equipped item in slot order.
func (inv *Inventory) EquippedBonuses() []stats.Bonuses {
	out := make([]stats.Bonuses, 0, len(inv.equipped))
	for _, s := range slotOrder {
		if it, ok := inv.equipped[s]; ok {
			out = append(out, it.Def.Equippable.Bonuses)
		}
	}
	return out
}
