package actor

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/tactica/internal/game/ability"
	"github.com/cory-johannsen/tactica/internal/game/attribute"
)

// Faction decides who an actor's abilities treat as hostile.
type Faction string

const (
	Friendly Faction = "friendly"
	Hostile  Faction = "hostile"
	Neutral  Faction = "neutral"
)

// LevelDef is one authored class level entry.
type LevelDef struct {
	Class string `yaml:"class"`
	Level int    `yaml:"level"`
}

// RewardDef is what killing the actor yields.
type RewardDef struct {
	XP         int     `yaml:"xp"`
	Loot       string  `yaml:"loot"`
	LootChance float64 `yaml:"loot_chance"`
}

// Def is an authored actor, referencing other records by id.
type Def struct {
	ID         string        `yaml:"id"`
	Name       string        `yaml:"name"`
	Race       string        `yaml:"race"`
	Faction    Faction       `yaml:"faction"`
	Levels     []LevelDef    `yaml:"levels"`
	Attributes attribute.Set `yaml:"attributes"`
	Abilities  []string      `yaml:"abilities"`
	Equipped   []string      `yaml:"equipped"`
	Items      []string      `yaml:"items"`
	Reward     *RewardDef    `yaml:"reward"`
	// AI names the planning domain that plays the actor's encounter turns.
	AI string `yaml:"ai"`
}

// Validate reports an error if the def is malformed. References are
// resolved and checked by the content loader.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if d.Race == "" {
		errs = append(errs, errors.New("race must not be empty"))
	}
	switch d.Faction {
	case Friendly, Hostile, Neutral:
	default:
		errs = append(errs, fmt.Errorf("faction must be friendly, hostile or neutral, got %q", d.Faction))
	}
	if len(d.Levels) == 0 {
		errs = append(errs, errors.New("at least one class level is required"))
	}
	for i, l := range d.Levels {
		if l.Class == "" || l.Level < 1 {
			errs = append(errs, fmt.Errorf("levels[%d]: class must be set and level >= 1", i))
		}
	}
	if r := d.Reward; r != nil {
		if r.XP < 0 {
			errs = append(errs, fmt.Errorf("reward.xp must be >= 0, got %d", r.XP))
		}
		if r.LootChance < 0 || r.LootChance > 1 {
			errs = append(errs, fmt.Errorf("reward.loot_chance must be in [0, 1], got %v", r.LootChance))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("actor %q: %w", d.ID, err)
	}
	return nil
}

// ClassLevel is a resolved class level.
type ClassLevel struct {
	Class *Class
	Level int
}

// Actor is a resolved actor record: every reference points at loaded data.
type Actor struct {
	ID         string
	Name       string
	Race       *Race
	Faction    Faction
	Levels     []ClassLevel
	Attributes attribute.Set
	// Abilities holds the innate abilities plus those granted by class levels.
	Abilities []*ability.Ability
	Reward    *RewardDef
}

// TotalLevel returns the sum of all class levels.
func (a *Actor) TotalLevel() int {
	n := 0
	for _, l := range a.Levels {
		n += l.Level
	}
	return n
}

// HasAbility reports whether the actor knows id.
func (a *Actor) HasAbility(id string) bool {
	for _, ab := range a.Abilities {
		if ab.ID == id {
			return true
		}
	}
	return false
}

// WithLevelUp returns a copy of a with one more level in class and the
// given abilities appended. The receiver is not modified.
func (a *Actor) WithLevelUp(class *Class, gained []*ability.Ability) *Actor {
	out := *a
	out.Levels = make([]ClassLevel, 0, len(a.Levels)+1)
	found := false
	for _, l := range a.Levels {
		if l.Class.ID == class.ID {
			l.Level++
			found = true
		}
		out.Levels = append(out.Levels, l)
	}
	if !found {
		out.Levels = append(out.Levels, ClassLevel{Class: class, Level: 1})
	}
	out.Abilities = make([]*ability.Ability, 0, len(a.Abilities)+len(gained))
	out.Abilities = append(out.Abilities, a.Abilities...)
	for _, g := range gained {
		if !a.HasAbility(g.ID) {
			out.Abilities = append(out.Abilities, g)
		}
	}
	return &out
}

// LevelOf returns the level held in class id, or 0.
func (a *Actor) LevelOf(classID string) int {
	for _, l := range a.Levels {
		if l.Class.ID == classID {
			return l.Level
		}
	}
	return 0
}
