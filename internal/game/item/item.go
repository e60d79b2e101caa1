// Package item provides item definitions, equippable bonuses, item
// instances and loot tables.
package item

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tactica/internal/game/stats"
)

// Slot is an equipment slot.
type Slot string

const (
	SlotHead     Slot = "head"
	SlotTorso    Slot = "torso"
	SlotHands    Slot = "hands"
	SlotFeet     Slot = "feet"
	SlotMainHand Slot = "main_hand"
	SlotOffHand  Slot = "off_hand"
)

var validSlots = map[Slot]struct{}{
	SlotHead: {}, SlotTorso: {}, SlotHands: {}, SlotFeet: {}, SlotMainHand: {}, SlotOffHand: {},
}

// Valid reports whether s is a known slot.
func (s Slot) Valid() bool {
	_, ok := validSlots[s]
	return ok
}

// Equippable is the payload of items that can be worn or wielded.
type Equippable struct {
	Slot    Slot          `yaml:"slot"`
	Bonuses stats.Bonuses `yaml:"bonuses"`
}

// Def is the static definition of an item, loaded from YAML.
type Def struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Value       int         `yaml:"value"`
	Equippable  *Equippable `yaml:"equippable"`
}

// Validate checks that the Def satisfies its invariants.
//
// Postcondition: returns nil iff all fields are valid.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if d.Value < 0 {
		errs = append(errs, errors.New("value must be >= 0"))
	}
	if eq := d.Equippable; eq != nil {
		if !eq.Slot.Valid() {
			errs = append(errs, fmt.Errorf("unknown slot %q", eq.Slot))
		}
		if err := eq.Bonuses.Validate(); err != nil {
			errs = append(errs, err)
		}
		if eq.Bonuses.Attack != nil && eq.Slot != SlotMainHand && eq.Slot != SlotOffHand {
			errs = append(errs, fmt.Errorf("attack bonuses require a hand slot, got %q", eq.Slot))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("item %q: %w", d.ID, err)
	}
	return nil
}

// Instance is one concrete stack of an item.
type Instance struct {
	ID       uuid.UUID
	Def      *Def
	Quantity int
}

// NewInstance creates a stack of quantity items of def.
//
// Precondition: quantity >= 1.
func NewInstance(def *Def, quantity int) *Instance {
	return &Instance{ID: uuid.New(), Def: def, Quantity: quantity}
}

// Registry holds all known item Defs keyed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register validates def and adds it, rejecting duplicate IDs.
func (r *Registry) Register(def *Def) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := r.defs[def.ID]; exists {
		return fmt.Errorf("item %q already registered", def.ID)
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns the Def for id, or (nil, false).
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

// LoadDirectory reads every *.yaml file in dir as one item Def.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns a populated Registry, or the first parse or
// validation error.
func LoadDirectory(dir string) (*Registry, error) {
	reg := NewRegistry()
	err := eachYAML(dir, func(path string, dec *yaml.Decoder) error {
		var d Def
		if err := dec.Decode(&d); err != nil {
			return fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := reg.Register(&d); err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func eachYAML(dir string, fn func(path string, dec *yaml.Decoder) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading dir %q: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := fn(path, dec); err != nil {
			return err
		}
	}
	return nil
}
