package ability

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry holds all known abilities keyed by ID.
type Registry struct {
	abilities map[string]*Ability
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{abilities: make(map[string]*Ability)}
}

// Register validates a and adds it, rejecting duplicate IDs.
func (r *Registry) Register(a *Ability) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if _, exists := r.abilities[a.ID]; exists {
		return fmt.Errorf("ability %q already registered", a.ID)
	}
	r.abilities[a.ID] = a
	return nil
}

// Get returns the ability for id, or (nil, false).
func (r *Registry) Get(id string) (*Ability, bool) {
	a, ok := r.abilities[id]
	return a, ok
}

// All returns every ability sorted by ID.
func (r *Registry) All() []*Ability {
	out := make([]*Ability, 0, len(r.abilities))
	for _, a := range r.abilities {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UsingScript returns the IDs of abilities whose script file is name.
func (r *Registry) UsingScript(name string) []string {
	var out []string
	for _, a := range r.All() {
		if a.Active != nil && a.Active.Script == name {
			out = append(out, a.ID)
		}
	}
	return out
}

// SetScript replaces the script body of the ability id.
//
// Postcondition: returns an error if id is unknown or not activatable.
func (r *Registry) SetScript(id, body string) error {
	a, ok := r.abilities[id]
	if !ok {
		return fmt.Errorf("ability %q not found", id)
	}
	if a.Active == nil {
		return fmt.Errorf("ability %q has no active payload", id)
	}
	a.Active.Body = body
	return nil
}

// LoadDirectory reads every *.yaml file in dir as one Ability and loads the
// script each active ability names from the same directory.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns a populated Registry, or the first parse,
// validation or script read error.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ability dir %q: %w", dir, err)
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
		var a Ability
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if a.Active != nil && a.Active.Script != "" {
			body, err := os.ReadFile(filepath.Join(dir, a.Active.Script))
			if err != nil {
				return nil, fmt.Errorf("ability %q script: %w", a.ID, err)
			}
			a.Active.Body = string(body)
		}
		if err := reg.Register(&a); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return reg, nil
}
