// Package attribute defines the six core actor attributes and the bounded
// counters that hold them.
package attribute

import (
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

// Attribute is one of a fixed, closed set of six actor attributes.
type Attribute int

const (
	Strength Attribute = iota
	Dexterity
	Endurance
	Perception
	Intellect
	Wisdom
)

// Count is the number of attributes.
const Count = 6

var all = [Count]Attribute{Strength, Dexterity, Endurance, Perception, Intellect, Wisdom}

var names = [Count]string{"Strength", "Dexterity", "Endurance", "Perception", "Intellect", "Wisdom"}

var shortNames = [Count]string{"str", "dex", "end", "per", "int", "wis"}

// All returns every attribute in canonical order.
func All() []Attribute {
	out := make([]Attribute, Count)
	copy(out, all[:])
	return out
}

// Name returns the stable display name, e.g. "Strength".
func (a Attribute) Name() string {
	if a < 0 || int(a) >= Count {
		return "unknown"
	}
	return names[a]
}

// ShortName returns the stable three-letter name, e.g. "str".
func (a Attribute) ShortName() string {
	if a < 0 || int(a) >= Count {
		return "unknown"
	}
	return shortNames[a]
}

// String implements fmt.Stringer.
func (a Attribute) String() string { return a.Name() }

// Parse resolves either the display name or the short name.
func Parse(s string) (Attribute, error) {
	for i := range all {
		if names[i] == s || shortNames[i] == s {
			return all[i], nil
		}
	}
	return 0, fmt.Errorf("attribute: unknown attribute %q", s)
}

// Set holds one bounded counter per Attribute.
//
// Invariant: every value is in [0, 255]; Add and Sum saturate instead of wrapping.
type Set struct {
	values [Count]uint8
}

// NewSet returns a Set with every attribute at base.
func NewSet(base uint8) Set {
	var s Set
	for i := range s.values {
		s.values[i] = base
	}
	return s
}

// Get returns the value of a.
func (s Set) Get(a Attribute) uint8 { return s.values[a] }

// Set assigns v to a.
func (s *Set) Set(a Attribute, v uint8) { s.values[a] = v }

// Add adds delta to a, clamping the result to [0, 255].
func (s *Set) Add(a Attribute, delta int) {
	s.values[a] = clamp(int(s.values[a]) + delta)
}

// AddAll applies every bonus in b.
func (s *Set) AddAll(b Bonuses) {
	for a, v := range b {
		s.Add(a, v)
	}
}

// Sum returns the element-wise saturating sum of s and o.
func (s Set) Sum(o Set) Set {
	var out Set
	for i := range out.values {
		out.values[i] = clamp(int(s.values[i]) + int(o.values[i]))
	}
	return out
}

// Bonus returns the value of a relative to base; negative below base.
func (s Set) Bonus(a Attribute, base int) int {
	return int(s.values[a]) - base
}

// UnmarshalYAML reads a mapping keyed by short or long attribute names.
// Every attribute must be present.
func (s *Set) UnmarshalYAML(node *yaml.Node) error {
	raw := map[string]int{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	seen := map[Attribute]bool{}
	for k, v := range raw {
		a, err := Parse(k)
		if err != nil {
			return err
		}
		if v < 0 || v > math.MaxUint8 {
			return fmt.Errorf("attribute: %s value %d out of range [0, 255]", a, v)
		}
		s.values[a] = uint8(v)
		seen[a] = true
	}
	if len(seen) != Count {
		return fmt.Errorf("attribute: expected all %d attributes, got %d", Count, len(seen))
	}
	return nil
}

// Bonuses maps attributes to additive modifiers, as authored on races,
// classes, items and effects.
type Bonuses map[Attribute]int

// UnmarshalYAML reads a mapping keyed by short or long attribute names.
func (b *Bonuses) UnmarshalYAML(node *yaml.Node) error {
	raw := map[string]int{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	out := make(Bonuses, len(raw))
	for k, v := range raw {
		a, err := Parse(k)
		if err != nil {
			return err
		}
		out[a] = v
	}
	*b = out
	return nil
}

// Merge returns a new Bonuses holding b + o.
func (b Bonuses) Merge(o Bonuses) Bonuses {
	out := make(Bonuses, len(b)+len(o))
	for a, v := range b {
		out[a] += v
	}
	for a, v := range o {
		out[a] += v
	}
	return out
}

// Scale returns a new Bonuses with every value multiplied by n.
func (b Bonuses) Scale(n int) Bonuses {
	out := make(Bonuses, len(b))
	for a, v := range b {
		out[a] = v * n
	}
	return out
}

// Sorted returns the attributes present in b in canonical order.
func (b Bonuses) Sorted() []Attribute {
	out := make([]Attribute, 0, len(b))
	for a := range b {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func clamp(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint8:
		return math.MaxUint8
	default:
		return uint8(v)
	}
}
