// Package stats aggregates authored bonuses into the derived StatList that
// combat reads, and rolls attack damage against it.
package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/cory-johannsen/tactica/internal/game/dice"
)

// DamageKind classifies damage for armor mitigation.
type DamageKind string

const (
	Slashing   DamageKind = "slashing"
	Piercing   DamageKind = "piercing"
	Crushing   DamageKind = "crushing"
	Acid       DamageKind = "acid"
	Cold       DamageKind = "cold"
	Electrical DamageKind = "electrical"
	Fire       DamageKind = "fire"
	Sonic      DamageKind = "sonic"
)

var validKinds = map[DamageKind]struct{}{
	Slashing: {}, Piercing: {}, Crushing: {}, Acid: {},
	Cold: {}, Electrical: {}, Fire: {}, Sonic: {},
}

// Valid reports whether k is a known damage kind.
func (k DamageKind) Valid() bool {
	_, ok := validKinds[k]
	return ok
}

// Damage is one authored damage range.
type Damage struct {
	Min  int        `yaml:"min"`
	Max  int        `yaml:"max"`
	Kind DamageKind `yaml:"kind"`
}

// Validate reports an error if the range is empty or the kind unknown.
func (d Damage) Validate() error {
	var errs []error
	if d.Min < 0 || d.Max < d.Min {
		errs = append(errs, fmt.Errorf("damage range %d-%d must satisfy 0 <= min <= max", d.Min, d.Max))
	}
	if !d.Kind.Valid() {
		errs = append(errs, fmt.Errorf("unknown damage kind %q", d.Kind))
	}
	return errors.Join(errs...)
}

// Armor is flat damage reduction, applied per damage range.
type Armor struct {
	Base  int                `yaml:"base"`
	Kinds map[DamageKind]int `yaml:"kinds"`
}

// Amount returns the reduction against kind.
func (a Armor) Amount(kind DamageKind) int {
	return a.Base + a.Kinds[kind]
}

// Add returns a + o scaled by n. The receiver is not modified.
func (a Armor) Add(o Armor, n int) Armor {
	out := Armor{Base: a.Base + o.Base*n}
	if len(a.Kinds)+len(o.Kinds) > 0 {
		out.Kinds = make(map[DamageKind]int, len(a.Kinds)+len(o.Kinds))
		for k, v := range a.Kinds {
			out.Kinds[k] += v
		}
		for k, v := range o.Kinds {
			out.Kinds[k] += v * n
		}
	}
	return out
}

// AttackDef is an authored weapon or natural attack.
type AttackDef struct {
	Damage   []Damage `yaml:"damage"`
	Distance float64  `yaml:"distance"`
}

// Validate checks every damage range and the reach.
func (a *AttackDef) Validate() error {
	var errs []error
	if len(a.Damage) == 0 {
		errs = append(errs, errors.New("attack must declare at least one damage range"))
	}
	for i, d := range a.Damage {
		if err := d.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("damage[%d]: %w", i, err))
		}
	}
	if a.Distance <= 0 {
		errs = append(errs, fmt.Errorf("attack distance must be > 0, got %v", a.Distance))
	}
	return errors.Join(errs...)
}

// Attack is a finalized attack carried on a StatList.
type Attack struct {
	Damage   []Damage
	Distance float64
	// Bonus is flat damage added to the first range before scaling.
	Bonus int
	// Multiplier is the StatList damage multiplier at finalize time.
	Multiplier float64
}

// Hit is the damage one range dealt after mitigation.
type Hit struct {
	Kind     DamageKind
	Rolled   int
	Absorbed int
	Dealt    int
}

// RollDamage rolls every range, scales it by tierMultiplier and the attack
// multiplier, and subtracts the target's armor for that kind.
//
// Postcondition: every Hit.Dealt is >= 0; the returned total is their sum.
func (a Attack) RollDamage(roller *dice.Roller, armor Armor, tierMultiplier float64) (int, []Hit) {
	total := 0
	hits := make([]Hit, 0, len(a.Damage))
	for i, d := range a.Damage {
		rolled := roller.Between(d.Min, d.Max)
		if i == 0 {
			rolled += a.Bonus
		}
		scaled := int(math.Round(float64(rolled) * tierMultiplier * a.Multiplier))
		absorbed := armor.Amount(d.Kind)
		dealt := scaled - absorbed
		if dealt < 0 {
			dealt = 0
		}
		if absorbed > scaled {
			absorbed = scaled
		}
		if absorbed < 0 {
			absorbed = 0
		}
		hits = append(hits, Hit{Kind: d.Kind, Rolled: rolled, Absorbed: absorbed, Dealt: dealt})
		total += dealt
	}
	return total, hits
}
