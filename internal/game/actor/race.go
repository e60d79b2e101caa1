// Package actor holds authored races, classes and actors, and ActorState,
// the live per-actor record that owns attributes, effects, ability states,
// inventory and derived stats.
package actor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tactica/internal/game/stats"
)

// Race is an authored race.
type Race struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Size names the object size every member of the race occupies.
	Size string `yaml:"size"`
	// BaseStats apply once; BaseStats.Attack is the natural attack used
	// when no weapon is equipped.
	BaseStats stats.Bonuses `yaml:"base_stats"`
}

// Validate reports an error if the race is malformed.
func (r *Race) Validate() error {
	var errs []error
	if r.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if r.Size == "" {
		errs = append(errs, errors.New("size must not be empty"))
	}
	if err := r.BaseStats.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("base_stats: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("race %q: %w", r.ID, err)
	}
	return nil
}

// ClassAbility grants an ability on reaching a class level.
type ClassAbility struct {
	Level   int    `yaml:"level"`
	Ability string `yaml:"ability"`
}

// Class is an authored class.
type Class struct {
	ID              string         `yaml:"id"`
	Name            string         `yaml:"name"`
	Description     string         `yaml:"description"`
	BonusesPerLevel stats.Bonuses  `yaml:"bonuses_per_level"`
	Abilities       []ClassAbility `yaml:"abilities"`
}

// Validate reports an error if the class is malformed.
func (c *Class) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if err := c.BonusesPerLevel.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bonuses_per_level: %w", err))
	}
	for i, a := range c.Abilities {
		if a.Level < 1 || a.Ability == "" {
			errs = append(errs, fmt.Errorf("abilities[%d]: level must be >= 1 and ability set", i))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("class %q: %w", c.ID, err)
	}
	return nil
}

// AbilitiesAt returns the ability ids granted at exactly level.
func (c *Class) AbilitiesAt(level int) []string {
	var out []string
	for _, a := range c.Abilities {
		if a.Level == level {
			out = append(out, a.Ability)
		}
	}
	return out
}

// AbilitiesThrough returns the ability ids granted at levels 1..level.
func (c *Class) AbilitiesThrough(level int) []string {
	var out []string
	for _, a := range c.Abilities {
		if a.Level <= level {
			out = append(out, a.Ability)
		}
	}
	return out
}

// validated is implemented by every authored record loaded by Load.
type validated interface {
	Validate() error
}

// Load reads every *.yaml file in dir as one T, validates it and returns
// the records keyed by id.
//
// Precondition: dir must be a readable directory.
func Load[T any, PT interface {
	*T
	validated
}](dir string, id func(*T) string) (map[string]*T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir %q: %w", dir, err)
	}
	out := make(map[string]*T)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		v := new(T)
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := PT(v).Validate(); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		key := id(v)
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("loading %q: duplicate id %q", path, key)
		}
		out[key] = v
	}
	return out, nil
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[T any](m map[string]*T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
