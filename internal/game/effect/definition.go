// Package effect holds timed stat modifiers applied to actors and the
// authored definitions they are created from.
package effect

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

// Def is the static definition of an effect, loaded from YAML.
type Def struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// DurationRounds is converted to millis through the rules; -1 = permanent.
	DurationRounds int           `yaml:"duration_rounds"`
	Bonuses        stats.Bonuses `yaml:"bonuses"`
}

// Validate reports an error if the Def is missing required fields.
//
// Postcondition: returns nil iff ID and Name are set, the duration is
// positive or Permanent, and the bonuses are valid.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if d.DurationRounds == 0 || d.DurationRounds < Permanent {
		errs = append(errs, fmt.Errorf("duration_rounds must be > 0 or -1 (permanent), got %d", d.DurationRounds))
	}
	if err := d.Bonuses.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bonuses: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("effect %q: %w", d.ID, err)
	}
	return nil
}

// Registry holds all known effect Defs keyed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register validates def and adds it.
//
// Postcondition: returns an error and leaves the registry unchanged if def is
// invalid or its ID is already registered.
func (r *Registry) Register(def *Def) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := r.defs[def.ID]; exists {
		return fmt.Errorf("effect %q already registered", def.ID)
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns the Def for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns every registered Def sorted by ID.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir as one Def.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns a populated Registry, or the first parse or
// validation error.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading effect dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Def
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := reg.Register(&def); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return reg, nil
}
