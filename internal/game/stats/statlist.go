package stats

import (
	"github.com/cory-johannsen/tactica/internal/game/attribute"
	"github.com/cory-johannsen/tactica/internal/game/rules"
)

// ClassLevel pairs a class's per-level bonuses with the level held.
type ClassLevel struct {
	Bonuses Bonuses
	Level   int
}

// Sources is everything a StatList is derived from.
type Sources struct {
	Attributes attribute.Set
	Race       Bonuses
	Classes    []ClassLevel
	Equipped   []Bonuses
	Effects    []Bonuses
}

// StatList is the derived stat snapshot combat reads.
//
// Invariant: a StatList is only ever produced by Compute; it is never
// patched in place.
type StatList struct {
	Attributes       attribute.Set
	MaxHP            int
	Accuracy         int
	Defense          int
	Armor            Armor
	Initiative       int
	Reach            float64
	Attacks          []Attack
	DamageMultiplier float64
}

// Compute derives a StatList from src.
//
// Every source is summed as integers before attributes are clamped once, so
// the result is independent of the order sources are listed in. Weapon
// attacks come from equipped bonuses in order; with more than one the
// dual-wield multiplier applies, and with none the race's natural attack is
// used at multiplier 1.
//
// Precondition: r must be non-nil.
// Postcondition: Compute(src, r) is deterministic and idempotent.
func Compute(src Sources, r *rules.Rules) StatList {
	var t totals
	for _, a := range attribute.All() {
		t.attrs[a] = int(src.Attributes.Get(a))
	}
	t.add(src.Race, 1)
	for _, c := range src.Classes {
		t.add(c.Bonuses, c.Level)
	}
	var attacks []*AttackDef
	for _, b := range src.Equipped {
		t.add(b, 1)
		if b.Attack != nil {
			attacks = append(attacks, b.Attack)
		}
	}
	multiplier := 1.0
	switch {
	case len(attacks) == 0 && src.Race.Attack != nil:
		attacks = append(attacks, src.Race.Attack)
	case len(attacks) > 1:
		multiplier = r.DualWieldDamageMultiplier
	}
	for _, b := range src.Effects {
		t.add(b, 1)
	}

	var s StatList
	for _, a := range attribute.All() {
		s.Attributes.Set(a, 0)
		s.Attributes.Add(a, t.attrs[a])
	}
	s.Armor = t.armor
	s.Reach = t.reach
	s.DamageMultiplier = multiplier
	finalize(&s, t, attacks, r)
	return s
}

// finalize folds attribute bonuses relative to the rules base attribute into
// the combat stats and builds the attack list.
func finalize(s *StatList, t totals, attacks []*AttackDef, r *rules.Rules) {
	base := r.BaseAttribute
	str := s.Attributes.Bonus(attribute.Strength, base)
	dex := s.Attributes.Bonus(attribute.Dexterity, base)
	end := s.Attributes.Bonus(attribute.Endurance, base)
	per := s.Attributes.Bonus(attribute.Perception, base)

	s.Accuracy = t.accuracy + per
	s.Defense = t.defense + dex
	s.MaxHP = r.BaseMaxHP + t.hitPoints + 2*end
	if s.MaxHP < 1 {
		s.MaxHP = 1
	}
	s.Initiative = r.BaseInitiative + t.initiative + per/2

	s.Attacks = make([]Attack, 0, len(attacks))
	for _, a := range attacks {
		dmg := make([]Damage, len(a.Damage))
		copy(dmg, a.Damage)
		s.Attacks = append(s.Attacks, Attack{
			Damage:     dmg,
			Distance:   a.Distance + s.Reach,
			Bonus:      str,
			Multiplier: s.DamageMultiplier,
		})
	}
}

// AttackDistance returns the longest reach among the attacks, or 0 when
// the list is empty.
func (s *StatList) AttackDistance() float64 {
	d := 0.0
	for _, a := range s.Attacks {
		if a.Distance > d {
			d = a.Distance
		}
	}
	return d
}
