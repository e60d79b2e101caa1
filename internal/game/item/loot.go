package item

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tactica/internal/game/dice"
)

// LootEntry is one item a loot table may drop.
type LootEntry struct {
	Item   string  `yaml:"item"`
	Chance float64 `yaml:"chance"`
	MinQty int     `yaml:"min_qty"`
	MaxQty int     `yaml:"max_qty"`
}

// LootTable is a list of independent item drops.
type LootTable struct {
	ID      string      `yaml:"id"`
	Entries []LootEntry `yaml:"items"`
}

// Validate checks that the loot table satisfies its invariants.
//
// Postcondition: returns nil iff every entry names an item, has a chance in
// (0, 1] and 1 <= min_qty <= max_qty. An empty table is valid.
func (lt *LootTable) Validate() error {
	var errs []error
	if lt.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	for i, e := range lt.Entries {
		if e.Item == "" {
			errs = append(errs, fmt.Errorf("items[%d] must have a non-empty item id", i))
		}
		if e.Chance <= 0 || e.Chance > 1.0 {
			errs = append(errs, fmt.Errorf("items[%d] chance must be in (0, 1.0], got %f", i, e.Chance))
		}
		if e.MinQty < 1 {
			errs = append(errs, fmt.Errorf("items[%d] min_qty must be >= 1, got %d", i, e.MinQty))
		}
		if e.MinQty > e.MaxQty {
			errs = append(errs, fmt.Errorf("items[%d] min_qty (%d) must be <= max_qty (%d)", i, e.MinQty, e.MaxQty))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("loot table %q: %w", lt.ID, err)
	}
	return nil
}

// Drop is one rolled loot line.
type Drop struct {
	Item     string
	Quantity int
}

// Generate rolls every entry independently.
//
// Precondition: lt must have passed Validate().
// Postcondition: each Drop's Quantity is in [MinQty, MaxQty]; drops keep
// table order.
func (lt *LootTable) Generate(roller *dice.Roller) []Drop {
	var out []Drop
	for _, e := range lt.Entries {
		if !roller.Chance(e.Chance) {
			continue
		}
		out = append(out, Drop{Item: e.Item, Quantity: roller.Between(e.MinQty, e.MaxQty)})
	}
	return out
}

// Instantiate resolves drops against reg, skipping unknown item ids.
func Instantiate(reg *Registry, drops []Drop) []*Instance {
	out := make([]*Instance, 0, len(drops))
	for _, d := range drops {
		def, ok := reg.Get(d.Item)
		if !ok {
			continue
		}
		out = append(out, NewInstance(def, d.Quantity))
	}
	return out
}

// LootTables holds every loaded loot table keyed by ID.
type LootTables struct {
	tables map[string]*LootTable
}

// NewLootTables creates an empty registry.
func NewLootTables() *LootTables {
	return &LootTables{tables: make(map[string]*LootTable)}
}

// Register validates lt and adds it, rejecting duplicate IDs.
func (r *LootTables) Register(lt *LootTable) error {
	if err := lt.Validate(); err != nil {
		return err
	}
	if _, exists := r.tables[lt.ID]; exists {
		return fmt.Errorf("loot table %q already registered", lt.ID)
	}
	r.tables[lt.ID] = lt
	return nil
}

// Get returns the table for id, or (nil, false).
func (r *LootTables) Get(id string) (*LootTable, bool) {
	lt, ok := r.tables[id]
	return lt, ok
}

// All returns every table sorted by ID.
func (r *LootTables) All() []*LootTable {
	out := make([]*LootTable, 0, len(r.tables))
	for _, lt := range r.tables {
		out = append(out, lt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadLootTables reads every *.yaml file in dir as one LootTable.
//
// Precondition: dir must be a readable directory.
func LoadLootTables(dir string) (*LootTables, error) {
	reg := NewLootTables()
	err := eachYAML(dir, func(path string, dec *yaml.Decoder) error {
		var lt LootTable
		if err := dec.Decode(&lt); err != nil {
			return fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := reg.Register(&lt); err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}
