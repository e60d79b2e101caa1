package actor

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/cory-johannsen/tactica/internal/game/ability"
	"github.com/cory-johannsen/tactica/internal/game/effect"
	"github.com/cory-johannsen/tactica/internal/game/item"
	"github.com/cory-johannsen/tactica/internal/game/rules"
	"github.com/cory-johannsen/tactica/internal/game/stats"
)

// State is the live, mutable record of one actor in an area.
//
// Invariant: Stats is always the output of the most recent ComputeStats;
// every change to effects, equipment, levels or experience recomputes it.
// State is not safe for concurrent use; the simulation goroutine owns it.
type State struct {
	Actor     *Actor
	Stats     stats.StatList
	Inventory *Inventory
	Listeners Listeners

	rules         *rules.Rules
	hp            int
	ap            int
	xp            int
	hasLevelUp    bool
	abilityStates map[string]*ability.State
	effects       effect.Set
}

// NewState creates the live state for a at full hit points and zero AP.
//
// Precondition: a and r must be non-nil.
func NewState(a *Actor, r *rules.Rules) *State {
	s := &State{
		Actor:         a,
		Inventory:     NewInventory(),
		rules:         r,
		abilityStates: make(map[string]*ability.State),
	}
	s.syncAbilityStates()
	s.ComputeStats()
	s.hp = s.Stats.MaxHP
	return s
}

// syncAbilityStates adds a State for every activatable ability not yet
// tracked and drops states for abilities the actor no longer has. Existing
// states, and so their cooldowns, are kept.
func (s *State) syncAbilityStates() {
	known := make(map[string]bool, len(s.Actor.Abilities))
	for _, a := range s.Actor.Abilities {
		if !a.IsActive() {
			continue
		}
		known[a.ID] = true
		if _, ok := s.abilityStates[a.ID]; !ok {
			s.abilityStates[a.ID] = ability.NewState(a, s.rules.RoundTimeMillis)
		}
	}
	for id := range s.abilityStates {
		if !known[id] {
			delete(s.abilityStates, id)
		}
	}
}

// HP returns current hit points.
func (s *State) HP() int { return s.hp }

// AP returns current action points.
func (s *State) AP() int { return s.ap }

// XP returns total experience.
func (s *State) XP() int { return s.xp }

// IsDead reports whether hit points are at or below zero.
func (s *State) IsDead() bool { return s.hp <= 0 }

// HasLevelUp reports whether the actor has enough experience for its next level.
func (s *State) HasLevelUp() bool { return s.hasLevelUp }

// AbilityState returns the state for id, if the ability is activatable and known.
func (s *State) AbilityState(id string) (*ability.State, bool) {
	st, ok := s.abilityStates[id]
	return st, ok
}

// AbilityIDs returns the ids of every tracked ability state, sorted.
func (s *State) AbilityIDs() []string {
	out := make([]string, 0, len(s.abilityStates))
	for id := range s.abilityStates {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CanActivate reports whether ability id may be activated now.
//
// Postcondition: true iff an ability state exists for id, AP is at least its
// activation cost and the state is available.
func (s *State) CanActivate(id string) bool {
	st, ok := s.abilityStates[id]
	if !ok {
		return false
	}
	if s.ap < st.ActivateAP {
		return false
	}
	return st.IsAvailable()
}

// ActivateAbilityState starts the cooldown for id; unknown ids are ignored.
func (s *State) ActivateAbilityState(id string) {
	if st, ok := s.abilityStates[id]; ok {
		st.Activate()
	}
}

// Effects returns the active effects in application order.
func (s *State) Effects() []*effect.Effect { return s.effects.All() }

// AddEffect applies e and recomputes stats.
func (s *State) AddEffect(e *effect.Effect) {
	s.effects.Add(e)
	s.ComputeStats()
}

// RemoveEffect removes the effect with id and recomputes stats if it was present.
func (s *State) RemoveEffect(id uuid.UUID) (*effect.Effect, bool) {
	e, ok := s.effects.Remove(id)
	if ok {
		s.ComputeStats()
	}
	return e, ok
}

// Update advances effects and ability cooldowns by millis.
//
// Postcondition: returns the effects removed this tick; stats are
// recomputed iff at least one was removed.
func (s *State) Update(millis int) []*effect.Effect {
	removed := s.effects.Update(millis)
	for _, st := range s.abilityStates {
		st.Update(millis)
	}
	if len(removed) > 0 {
		s.ComputeStats()
	}
	return removed
}

// Sources returns everything the StatList is derived from.
func (s *State) Sources() stats.Sources {
	classes := make([]stats.ClassLevel, 0, len(s.Actor.Levels))
	for _, l := range s.Actor.Levels {
		classes = append(classes, stats.ClassLevel{Bonuses: l.Class.BonusesPerLevel, Level: l.Level})
	}
	return stats.Sources{
		Attributes: s.Actor.Attributes,
		Race:       s.Actor.Race.BaseStats,
		Classes:    classes,
		Equipped:   s.Inventory.EquippedBonuses(),
		Effects:    s.effects.Bonuses(),
	}
}

// ComputeStats rebuilds Stats from scratch and notifies listeners.
//
// Postcondition: HP <= Stats.MaxHP.
func (s *State) ComputeStats() {
	s.Stats = stats.Compute(s.Sources(), s.rules)
	if s.hp > s.Stats.MaxHP {
		s.hp = s.Stats.MaxHP
	}
	next, ok := s.rules.XPForNextLevel(s.Actor.TotalLevel())
	s.hasLevelUp = ok && next <= s.xp
	s.Listeners.Notify(s)
}

// LevelUp replaces the actor record with next, keeps the cooldowns of
// abilities the actor already had, and restores hit points to the new maximum.
func (s *State) LevelUp(next *Actor) {
	s.Actor = next
	s.syncAbilityStates()
	s.ComputeStats()
	s.hp = s.Stats.MaxHP
}

// InitTurn refills AP at the start of the actor's turn.
func (s *State) InitTurn() {
	if s.ap != s.rules.BaseAP {
		s.ap = s.rules.BaseAP
		s.Listeners.Notify(s)
	}
}

// EndTurn drains remaining AP.
func (s *State) EndTurn() {
	if s.ap != 0 {
		s.ap = 0
		s.Listeners.Notify(s)
	}
}

// RemoveAP spends n action points, saturating at zero.
func (s *State) RemoveAP(n int) {
	s.ap -= n
	if s.ap < 0 {
		s.ap = 0
	}
	s.Listeners.Notify(s)
}

// RemoveHP applies n damage, saturating at zero.
func (s *State) RemoveHP(n int) {
	s.hp -= n
	if s.hp < 0 {
		s.hp = 0
	}
	s.Listeners.Notify(s)
}

// AddXP awards experience and recomputes stats.
func (s *State) AddXP(n int) {
	s.xp += n
	s.ComputeStats()
}

// RestoreHP sets hit points to the current maximum.
func (s *State) RestoreHP() {
	if s.hp != s.Stats.MaxHP {
		s.hp = s.Stats.MaxHP
		s.Listeners.Notify(s)
	}
}

// CanReach reports whether a target at dist is within attack distance.
func (s *State) CanReach(dist float64) bool {
	return dist < s.Stats.AttackDistance()
}

// CanAttack reports whether the actor has the AP to attack and can reach dist.
func (s *State) CanAttack(dist float64) bool {
	if s.ap < s.rules.AttackAP {
		return false
	}
	return s.CanReach(dist)
}

// Equip moves the carried stack id into its slot and recomputes stats.
func (s *State) Equip(id uuid.UUID) error {
	inst, ok := s.Inventory.Take(id)
	if !ok {
		return fmt.Errorf("item %s not carried", id)
	}
	if err := s.Inventory.Equip(inst); err != nil {
		s.Inventory.Add(inst)
		return err
	}
	s.ComputeStats()
	return nil
}

// Unequip empties slot and recomputes stats.
func (s *State) Unequip(slot item.Slot) bool {
	_, ok := s.Inventory.Unequip(slot)
	if ok {
		s.ComputeStats()
	}
	return ok
}

// TakeAll moves every stack in items into the carried list.
func (s *State) TakeAll(items []*item.Instance) {
	if len(items) == 0 {
		return
	}
	for _, it := range items {
		s.Inventory.Add(it)
	}
	s.Listeners.Notify(s)
}
