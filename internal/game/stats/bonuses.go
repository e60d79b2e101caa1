package stats

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/tactica/internal/game/attribute"
)

// Bonuses is one additive bundle of stat modifiers, as authored on a race,
// a class level, an equippable item or an effect.
type Bonuses struct {
	Attributes attribute.Bonuses `yaml:"attributes"`
	Armor      Armor             `yaml:"armor"`
	Accuracy   int               `yaml:"accuracy"`
	Defense    int               `yaml:"defense"`
	HitPoints  int               `yaml:"hit_points"`
	Initiative int               `yaml:"initiative"`
	Reach      float64           `yaml:"reach"`
	// Attack is set on weapons and on a race's natural attack.
	Attack *AttackDef `yaml:"attack"`
}

// Validate checks the embedded attack, if any.
func (b *Bonuses) Validate() error {
	var errs []error
	if b.Attack != nil {
		if err := b.Attack.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("attack: %w", err))
		}
	}
	for k := range b.Armor.Kinds {
		if !k.Valid() {
			errs = append(errs, fmt.Errorf("armor: unknown damage kind %q", k))
		}
	}
	if b.Reach < 0 {
		errs = append(errs, errors.New("reach must be >= 0"))
	}
	return errors.Join(errs...)
}

// totals is the integer accumulator Compute sums every source into before
// anything is clamped, so the result never depends on source order.
type totals struct {
	attrs      [attribute.Count]int
	armor      Armor
	accuracy   int
	defense    int
	hitPoints  int
	initiative int
	reach      float64
}

func (t *totals) add(b Bonuses, n int) {
	for a, v := range b.Attributes {
		t.attrs[a] += v * n
	}
	t.armor = t.armor.Add(b.Armor, n)
	t.accuracy += b.Accuracy * n
	t.defense += b.Defense * n
	t.hitPoints += b.HitPoints * n
	t.initiative += b.Initiative * n
	t.reach += b.Reach * float64(n)
}
