package content

import (
	"fmt"
	"maps"
	"slices"

	"github.com/cory-johannsen/tactica/internal/game/ability"
	"github.com/cory-johannsen/tactica/internal/game/actor"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
	"github.com/cory-johannsen/tactica/internal/game/item"
)

// BuildActor resolves the authored actor id into an Actor record.
// Abilities are the actor's innate abilities followed by every ability its
// class levels grant, without duplicates.
func (m *Module) BuildActor(id string) (*actor.Actor, error) {
	d, ok := m.Actors[id]
	if !ok {
		return nil, fmt.Errorf("actor %q not found", id)
	}
	race, ok := m.Races[d.Race]
	if !ok {
		return nil, fmt.Errorf("actor %q: race %q not found", id, d.Race)
	}
	a := &actor.Actor{
		ID:         d.ID,
		Name:       d.Name,
		Race:       race,
		Faction:    d.Faction,
		Attributes: d.Attributes,
		Reward:     d.Reward,
	}
	seen := make(map[string]bool)
	add := func(abilityID string) error {
		if seen[abilityID] {
			return nil
		}
		ab, ok := m.Abilities.Get(abilityID)
		if !ok {
			return fmt.Errorf("actor %q: ability %q not found", id, abilityID)
		}
		seen[abilityID] = true
		a.Abilities = append(a.Abilities, ab)
		return nil
	}
	for _, ab := range d.Abilities {
		if err := add(ab); err != nil {
			return nil, err
		}
	}
	for _, l := range d.Levels {
		class, ok := m.Classes[l.Class]
		if !ok {
			return nil, fmt.Errorf("actor %q: class %q not found", id, l.Class)
		}
		a.Levels = append(a.Levels, actor.ClassLevel{Class: class, Level: l.Level})
		for _, ab := range class.AbilitiesThrough(l.Level) {
			if err := add(ab); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

// NewActorState builds the live state for the authored actor id with its
// starting items carried and its starting equipment worn, at full hit points.
func (m *Module) NewActorState(id string) (*actor.State, error) {
	a, err := m.BuildActor(id)
	if err != nil {
		return nil, err
	}
	d := m.Actors[id]
	s := actor.NewState(a, m.Rules)
	for _, itemID := range d.Equipped {
		def, ok := m.ItemDefs.Get(itemID)
		if !ok {
			return nil, fmt.Errorf("actor %q: item %q not found", id, itemID)
		}
		inst := item.NewInstance(def, 1)
		s.TakeAll([]*item.Instance{inst})
		if err := s.Equip(inst.ID); err != nil {
			return nil, fmt.Errorf("actor %q: equipping %q: %w", id, itemID, err)
		}
	}
	var carried []*item.Instance
	for _, itemID := range d.Items {
		def, ok := m.ItemDefs.Get(itemID)
		if !ok {
			return nil, fmt.Errorf("actor %q: item %q not found", id, itemID)
		}
		carried = append(carried, item.NewInstance(def, 1))
	}
	s.TakeAll(carried)
	s.RestoreHP()
	return s, nil
}

// Size returns the object size of the actor's race.
func (m *Module) Size(a *actor.Actor) (*geometry.ObjectSize, error) {
	size, ok := m.Sizes.Get(a.Race.Size)
	if !ok {
		return nil, fmt.Errorf("actor %q: object size %q not found", a.ID, a.Race.Size)
	}
	return size, nil
}

// LevelUp advances s by one level in classID, granting the abilities the
// new level unlocks.
//
// Postcondition: returns an error and leaves s unchanged if s has not
// earned a level or the class is unknown.
func (m *Module) LevelUp(s *actor.State, classID string) error {
	if !s.HasLevelUp() {
		return fmt.Errorf("actor %q has not earned a level", s.Actor.ID)
	}
	class, ok := m.Classes[classID]
	if !ok {
		return fmt.Errorf("class %q not found", classID)
	}
	var gained []*ability.Ability
	for _, id := range class.AbilitiesAt(s.Actor.LevelOf(classID) + 1) {
		ab, ok := m.Abilities.Get(id)
		if !ok {
			return fmt.Errorf("class %q: ability %q not found", classID, id)
		}
		gained = append(gained, ab)
	}
	s.LevelUp(s.Actor.WithLevelUp(class, gained))
	return nil
}

// RestoreLevels replays saved class levels onto the fresh state s by
// building the actor record at those levels. Unknown classes are returned.
func (m *Module) RestoreLevels(s *actor.State, levels map[string]int) []string {
	var unknown []string
	next := s.Actor
	for _, classID := range slices.Sorted(maps.Keys(levels)) {
		class, ok := m.Classes[classID]
		if !ok {
			unknown = append(unknown, classID)
			continue
		}
		for lvl := next.LevelOf(classID) + 1; lvl <= levels[classID]; lvl++ {
			var gained []*ability.Ability
			for _, id := range class.AbilitiesAt(lvl) {
				if ab, ok := m.Abilities.Get(id); ok {
					gained = append(gained, ab)
				}
			}
			next = next.WithLevelUp(class, gained)
		}
	}
	if next != s.Actor {
		s.LevelUp(next)
	}
	return unknown
}
