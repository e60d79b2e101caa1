// Package ability holds authored ability records, the per-actor cooldown
// state for activatable abilities, and the callback tokens scripts use to
// re-enter an ability later.
package ability

import (
	"errors"
	"fmt"
)

// Active is the payload that makes an ability activatable.
type Active struct {
	// Script names the Lua file, relative to the ability directory.
	Script string `yaml:"script"`
	AP     int    `yaml:"ap"`
	// Duration is in rounds; -1 = permanent, 0 = instant.
	Duration int `yaml:"duration"`
	// Cooldown is in rounds.
	Cooldown int `yaml:"cooldown"`

	// Body is the script source, filled in by the loader.
	Body string `yaml:"-"`
}

// Ability is an immutable authored ability record.
type Ability struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Active      *Active `yaml:"active"`
}

// IsActive reports whether the ability can be activated.
func (a *Ability) IsActive() bool { return a.Active != nil }

// Validate reports an error if the ability is malformed.
//
// Postcondition: returns nil iff ID and Name are set and any active payload
// has non-negative costs.
func (a *Ability) Validate() error {
	var errs []error
	if a.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if a.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if act := a.Active; act != nil {
		if act.AP < 0 {
			errs = append(errs, fmt.Errorf("active.ap must be >= 0, got %d", act.AP))
		}
		if act.Cooldown < 0 {
			errs = append(errs, fmt.Errorf("active.cooldown must be >= 0, got %d", act.Cooldown))
		}
		if act.Duration < -1 {
			errs = append(errs, fmt.Errorf("active.duration must be >= -1, got %d", act.Duration))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("ability %q: %w", a.ID, err)
	}
	return nil
}
