// Package content loads a module directory into the registries the
// simulation reads, and resolves authored actors into live actor state.
package content

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cory-johannsen/tactica/internal/game/ability"
	"github.com/cory-johannsen/tactica/internal/game/actor"
	"github.com/cory-johannsen/tactica/internal/game/area"
	"github.com/cory-johannsen/tactica/internal/game/effect"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
	"github.com/cory-johannsen/tactica/internal/game/item"
	"github.com/cory-johannsen/tactica/internal/game/rules"
)

// Subdirectories of a module directory.
const (
	RulesFile      = "rules.yaml"
	ObjectSizesDir = "object_sizes"
	RacesDir       = "races"
	ClassesDir     = "classes"
	ItemsDir       = "items"
	AbilitiesDir   = "abilities"
	EffectsDir     = "effects"
	LootDir        = "loot"
	PropsDir       = "props"
	ActorsDir      = "actors"
	AreasDir       = "areas"
)

// Module is every authored record in one module directory.
type Module struct {
	Dir       string
	Rules     *rules.Rules
	Sizes     *geometry.Sizes
	Races     map[string]*actor.Race
	Classes   map[string]*actor.Class
	Abilities *ability.Registry
	Effects   *effect.Registry
	ItemDefs  *item.Registry
	Loot      *item.LootTables
	Props     map[string]*area.PropDef
	Actors    map[string]*actor.Def
	Areas     map[string]*area.Def
}

// Load reads the module rooted at dir and checks every cross-reference.
//
// Precondition: dir must contain the module layout.
// Postcondition: returns a Module that has passed Validate, or an error.
func Load(dir string) (*Module, error) {
	m := &Module{Dir: dir}
	var err error
	if m.Rules, err = rules.Load(filepath.Join(dir, RulesFile)); err != nil {
		return nil, err
	}
	if m.Sizes, err = geometry.LoadSizes(filepath.Join(dir, ObjectSizesDir)); err != nil {
		return nil, err
	}
	if m.Races, err = actor.Load[actor.Race](filepath.Join(dir, RacesDir), func(r *actor.Race) string { return r.ID }); err != nil {
		return nil, err
	}
	if m.Classes, err = actor.Load[actor.Class](filepath.Join(dir, ClassesDir), func(c *actor.Class) string { return c.ID }); err != nil {
		return nil, err
	}
	if m.ItemDefs, err = item.LoadDirectory(filepath.Join(dir, ItemsDir)); err != nil {
		return nil, err
	}
	if m.Abilities, err = ability.LoadDirectory(filepath.Join(dir, AbilitiesDir)); err != nil {
		return nil, err
	}
	if m.Effects, err = effect.LoadDirectory(filepath.Join(dir, EffectsDir)); err != nil {
		return nil, err
	}
	if m.Loot, err = item.LoadLootTables(filepath.Join(dir, LootDir)); err != nil {
		return nil, err
	}
	if m.Props, err = actor.Load[area.PropDef](filepath.Join(dir, PropsDir), func(p *area.PropDef) string { return p.ID }); err != nil {
		return nil, err
	}
	if m.Actors, err = actor.Load[actor.Def](filepath.Join(dir, ActorsDir), func(d *actor.Def) string { return d.ID }); err != nil {
		return nil, err
	}
	if m.Areas, err = actor.Load[area.Def](filepath.Join(dir, AreasDir), func(d *area.Def) string { return d.ID }); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks every reference between records, collecting all
// violations.
func (m *Module) Validate() error {
	var errs []error
	if err := m.Rules.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, ok := m.Props[m.Rules.LootDropProp]; !ok {
		errs = append(errs, fmt.Errorf("rules: loot_drop_prop %q is not a prop", m.Rules.LootDropProp))
	}
	for _, id := range actor.SortedKeys(m.Races) {
		if _, ok := m.Sizes.Get(m.Races[id].Size); !ok {
			errs = append(errs, fmt.Errorf("race %q: unknown object size %q", id, m.Races[id].Size))
		}
	}
	for _, id := range actor.SortedKeys(m.Classes) {
		for _, ca := range m.Classes[id].Abilities {
			if _, ok := m.Abilities.Get(ca.Ability); !ok {
				errs = append(errs, fmt.Errorf("class %q: unknown ability %q", id, ca.Ability))
			}
		}
	}
	for _, id := range actor.SortedKeys(m.Props) {
		if _, ok := m.Sizes.Get(m.Props[id].Size); !ok {
			errs = append(errs, fmt.Errorf("prop %q: unknown object size %q", id, m.Props[id].Size))
		}
	}
	for _, lt := range m.Loot.All() {
		for _, e := range lt.Entries {
			if _, ok := m.ItemDefs.Get(e.Item); !ok {
				errs = append(errs, fmt.Errorf("loot table %q: unknown item %q", lt.ID, e.Item))
			}
		}
	}
	for _, id := range actor.SortedKeys(m.Actors) {
		errs = append(errs, m.validateActor(m.Actors[id])...)
	}
	for _, id := range actor.SortedKeys(m.Areas) {
		for i, p := range m.Areas[id].Actors {
			if _, ok := m.Actors[p.Actor]; !ok {
				errs = append(errs, fmt.Errorf("area %q: actors[%d]: unknown actor %q", id, i, p.Actor))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("module %q: %w", m.Dir, err)
	}
	return nil
}

func (m *Module) validateActor(d *actor.Def) []error {
	var errs []error
	if _, ok := m.Races[d.Race]; !ok {
		errs = append(errs, fmt.Errorf("actor %q: unknown race %q", d.ID, d.Race))
	}
	for _, l := range d.Levels {
		if _, ok := m.Classes[l.Class]; !ok {
			errs = append(errs, fmt.Errorf("actor %q: unknown class %q", d.ID, l.Class))
		}
	}
	for _, a := range d.Abilities {
		if _, ok := m.Abilities.Get(a); !ok {
			errs = append(errs, fmt.Errorf("actor %q: unknown ability %q", d.ID, a))
		}
	}
	for _, it := range d.Equipped {
		def, ok := m.ItemDefs.Get(it)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("actor %q: unknown equipped item %q", d.ID, it))
		case def.Equippable == nil:
			errs = append(errs, fmt.Errorf("actor %q: item %q is not equippable", d.ID, it))
		}
	}
	for _, it := range d.Items {
		if _, ok := m.ItemDefs.Get(it); !ok {
			errs = append(errs, fmt.Errorf("actor %q: unknown item %q", d.ID, it))
		}
	}
	if r := d.Reward; r != nil && r.Loot != "" {
		if _, ok := m.Loot.Get(r.Loot); !ok {
			errs = append(errs, fmt.Errorf("actor %q: unknown loot table %q", d.ID, r.Loot))
		}
	}
	return errs
}

// LootTable implements combat.Catalog.
func (m *Module) LootTable(id string) (*item.LootTable, bool) { return m.Loot.Get(id) }

// Items implements combat.Catalog.
func (m *Module) Items() *item.Registry { return m.ItemDefs }

// Prop implements combat.Catalog.
func (m *Module) Prop(id string) (*area.PropDef, bool) {
	p, ok := m.Props[id]
	return p, ok
}
