package combat

import (
	"sort"

	"github.com/cory-johannsen/tactica/internal/game/area"
	"github.com/cory-johannsen/tactica/internal/game/dice"
	"github.com/cory-johannsen/tactica/internal/game/entity"
)

// Initiative is one entity's rolled place in the turn order.
type Initiative struct {
	Handle entity.Handle
	Roll   int
	Total  int
}

// RollInitiative rolls a d20 for every living entity in a and returns them
// in turn order.
// Formula: d20 + StatList.Initiative.
//
// Precondition: a and roller must be non-nil.
// Postcondition: the result is sorted by Total descending, ties broken by
// ascending handle, and contains no dead entities.
func RollInitiative(a *area.Area, roller *dice.Roller) []Initiative {
	var order []Initiative
	for _, h := range a.Handles() {
		e, _ := a.Get(h)
		if e.Actor.IsDead() {
			continue
		}
		roll := roller.Between(1, 20)
		order = append(order, Initiative{Handle: h, Roll: roll, Total: roll + e.Actor.Stats.Initiative})
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Total != order[j].Total {
			return order[i].Total > order[j].Total
		}
		return order[i].Handle < order[j].Handle
	})
	return order
}
