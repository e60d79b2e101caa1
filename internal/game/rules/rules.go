// Package rules holds the authored rules constants and the attack-roll table
// built on them.
package rules

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tactica/internal/game/dice"
)

// HitKind is the tier an attack roll lands in.
type HitKind int

const (
	Miss HitKind = iota
	Graze
	Hit
	Crit
)

// String returns the tier name.
func (k HitKind) String() string {
	switch k {
	case Miss:
		return "Miss"
	case Graze:
		return "Graze"
	case Hit:
		return "Hit"
	case Crit:
		return "Crit"
	default:
		return "Unknown"
	}
}

// Rules is the module-wide rules record.
type Rules struct {
	BaseAP         int `yaml:"base_ap"`
	MovementAP     int `yaml:"movement_ap"`
	AttackAP       int `yaml:"attack_ap"`
	BaseInitiative int `yaml:"base_initiative"`

	GrazePercentile int `yaml:"graze_percentile"`
	HitPercentile   int `yaml:"hit_percentile"`
	CritPercentile  int `yaml:"crit_percentile"`

	GrazeDamageMultiplier     float64 `yaml:"graze_damage_multiplier"`
	HitDamageMultiplier       float64 `yaml:"hit_damage_multiplier"`
	CritDamageMultiplier      float64 `yaml:"crit_damage_multiplier"`
	DualWieldDamageMultiplier float64 `yaml:"dual_wield_damage_multiplier"`

	BaseAttribute int `yaml:"base_attribute"`
	BaseMaxHP     int `yaml:"base_max_hp"`

	// RoundTimeMillis converts authored durations in rounds to simulation time.
	RoundTimeMillis int `yaml:"round_time_millis"`

	// LootDropProp is the prop spawned to hold dropped loot.
	LootDropProp string `yaml:"loot_drop_prop"`

	// XPTable[i] is the total experience needed to advance past level i+1.
	XPTable []int `yaml:"xp_table"`
}

// Validate checks the rules invariants, collecting every violation.
//
// Postcondition: returns nil iff thresholds are strictly ascending
// (graze < hit < crit), AP values are non-negative, multipliers are
// non-negative and RoundTimeMillis is positive.
func (r *Rules) Validate() error {
	var errs []string
	if r.BaseAP < 0 || r.MovementAP < 0 || r.AttackAP < 0 {
		errs = append(errs, "ap costs must be >= 0")
	}
	if !(r.GrazePercentile < r.HitPercentile && r.HitPercentile < r.CritPercentile) {
		errs = append(errs, fmt.Sprintf("hit thresholds must be ascending graze < hit < crit, got %d/%d/%d",
			r.GrazePercentile, r.HitPercentile, r.CritPercentile))
	}
	multipliers := []struct {
		name string
		v    float64
	}{
		{"graze_damage_multiplier", r.GrazeDamageMultiplier},
		{"hit_damage_multiplier", r.HitDamageMultiplier},
		{"crit_damage_multiplier", r.CritDamageMultiplier},
		{"dual_wield_damage_multiplier", r.DualWieldDamageMultiplier},
	}
	for _, m := range multipliers {
		if m.v < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0, got %v", m.name, m.v))
		}
	}
	if r.RoundTimeMillis <= 0 {
		errs = append(errs, fmt.Sprintf("round_time_millis must be > 0, got %d", r.RoundTimeMillis))
	}
	for i := 1; i < len(r.XPTable); i++ {
		if r.XPTable[i] <= r.XPTable[i-1] {
			errs = append(errs, "xp_table must be strictly ascending")
			break
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("rules validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// HitKindFor maps a fixed roll to its tier.
//
// If roll+accuracy < defense the outcome is an unconditional Miss. Otherwise
// result = roll + accuracy - defense is compared against the ascending
// thresholds, defaulting to Miss below the graze threshold.
//
// Postcondition: the tier is monotonic non-decreasing in result.
func (r *Rules) HitKindFor(roll, accuracy, defense int) HitKind {
	if roll+accuracy < defense {
		return Miss
	}
	result := roll + accuracy - defense
	switch {
	case result >= r.CritPercentile:
		return Crit
	case result >= r.HitPercentile:
		return Hit
	case result >= r.GrazePercentile:
		return Graze
	default:
		return Miss
	}
}

// AttackRoll rolls a uniform value in [1, 100] and returns the tier and the roll.
func (r *Rules) AttackRoll(roller *dice.Roller, accuracy, defense int) (HitKind, int) {
	roll := roller.Percentile()
	return r.HitKindFor(roll, accuracy, defense), roll
}

// DamageMultiplier returns the tier's damage multiplier; Miss deals nothing.
func (r *Rules) DamageMultiplier(k HitKind) float64 {
	switch k {
	case Graze:
		return r.GrazeDamageMultiplier
	case Hit:
		return r.HitDamageMultiplier
	case Crit:
		return r.CritDamageMultiplier
	default:
		return 0
	}
}

// XPForNextLevel returns the experience needed to advance past totalLevel.
// Levels beyond the table can never be reached.
func (r *Rules) XPForNextLevel(totalLevel int) (int, bool) {
	idx := totalLevel - 1
	if idx < 0 || idx >= len(r.XPTable) {
		return 0, false
	}
	return r.XPTable[idx], true
}

// RoundsToMillis converts an authored duration in rounds.
func (r *Rules) RoundsToMillis(rounds int) int {
	return rounds * r.RoundTimeMillis
}

// Parse decodes and validates a rules document.
func Parse(data []byte) (*Rules, error) {
	var r Rules
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Load reads and validates the rules file at path.
//
// Precondition: path must be a readable YAML file.
// Postcondition: returns validated Rules or a non-nil error.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules %q: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return r, nil
}
