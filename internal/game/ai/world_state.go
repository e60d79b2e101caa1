package ai

import (
	"cmp"
	"slices"

	"github.com/cory-johannsen/tactica/internal/game/actor"
	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
)

// CombatantState captures an entity's combat-relevant state at planning time.
type CombatantState struct {
	Handle   entity.Handle
	Name     string
	Faction  actor.Faction
	Location geometry.Point
	HP       int
	MaxHP    int
	AP       int
	// Distance is measured from the planning entity.
	Distance float64
	// InReach reports whether the planning entity can attack it now.
	InReach bool
}

// HPPercent returns current HP as a percentage of MaxHP; 0 if MaxHP == 0.
func (c *CombatantState) HPPercent() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return float64(c.HP) / float64(c.MaxHP) * 100
}

// WorldState is the snapshot passed to the HTN planner for one entity.
//
// Invariant: Self must not be nil and is not listed in Combatants.
type WorldState struct {
	Self       *CombatantState
	Round      int
	Combatants []*CombatantState // every other living entity
}

// Enemies returns the combatants of another faction, nearest first.
func (ws *WorldState) Enemies() []*CombatantState {
	var out []*CombatantState
	for _, c := range ws.Combatants {
		if c.Faction != ws.Self.Faction {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b *CombatantState) int { return cmp.Compare(a.Distance, b.Distance) })
	return out
}

// Allies returns the combatants of the same faction.
func (ws *WorldState) Allies() []*CombatantState {
	var out []*CombatantState
	for _, c := range ws.Combatants {
		if c.Faction == ws.Self.Faction {
			out = append(out, c)
		}
	}
	return out
}

// EnemiesInReach returns the enemies the planning entity can attack now.
func (ws *WorldState) EnemiesInReach() []*CombatantState {
	var out []*CombatantState
	for _, c := range ws.Enemies() {
		if c.InReach {
			out = append(out, c)
		}
	}
	return out
}

// NearestEnemy returns the closest enemy, or nil.
//
// Postcondition: ties keep Combatants order.
func (ws *WorldState) NearestEnemy() *CombatantState {
	enemies := ws.Enemies()
	if len(enemies) == 0 {
		return nil
	}
	return enemies[0]
}

// WeakestEnemy returns the enemy with the lowest HP percentage, or nil.
//
// Postcondition: ties go to the nearer enemy.
func (ws *WorldState) WeakestEnemy() *CombatantState {
	return weakest(ws.Enemies())
}

func weakest(cs []*CombatantState) *CombatantState {
	if len(cs) == 0 {
		return nil
	}
	out := cs[0]
	for _, c := range cs[1:] {
		if c.HPPercent() < out.HPPercent() {
			out = c
		}
	}
	return out
}

// ResolveTarget maps a target token to a combatant.
//
// Postcondition: returns nil for unknown tokens or when nobody matches.
func (ws *WorldState) ResolveTarget(token string) *CombatantState {
	switch token {
	case "nearest_enemy":
		return ws.NearestEnemy()
	case "weakest_enemy":
		return ws.WeakestEnemy()
	case "nearest_in_reach":
		if in := ws.EnemiesInReach(); len(in) > 0 {
			return in[0]
		}
		return nil
	case "weakest_in_reach":
		return weakest(ws.EnemiesInReach())
	case "self":
		return ws.Self
	default:
		return nil
	}
}
