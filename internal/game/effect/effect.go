package effect

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/tactica/internal/game/ability"
	"github.com/cory-johannsen/tactica/internal/game/stats"
)

// Permanent marks an effect that never expires.
const Permanent = -1

// Effect is a timed bonus bundle owned by the actor it is applied to.
type Effect struct {
	ID      uuid.UUID
	DefID   string
	Name    string
	Bonuses stats.Bonuses
	// DurationMillis is the total lifetime, or Permanent.
	DurationMillis int
	ElapsedMillis  int
	// Callback, when set, is fired by the simulation after removal.
	Callback *ability.Callback
}

// New creates an effect from def lasting durationMillis.
func New(def *Def, durationMillis int) *Effect {
	return &Effect{
		ID:             uuid.New(),
		DefID:          def.ID,
		Name:           def.Name,
		Bonuses:        def.Bonuses,
		DurationMillis: durationMillis,
	}
}

// Update advances the effect by millis and reports whether it has expired.
func (e *Effect) Update(millis int) bool {
	if e.DurationMillis == Permanent {
		return false
	}
	e.ElapsedMillis += millis
	return e.IsRemoval()
}

// IsRemoval reports whether the effect has run its course.
func (e *Effect) IsRemoval() bool {
	return e.DurationMillis != Permanent && e.ElapsedMillis >= e.DurationMillis
}

// Remaining returns the millis left, or Permanent.
func (e *Effect) Remaining() int {
	if e.DurationMillis == Permanent {
		return Permanent
	}
	if r := e.DurationMillis - e.ElapsedMillis; r > 0 {
		return r
	}
	return 0
}

// Set is the ordered collection of effects on one actor.
// It is not safe for concurrent use; the caller must serialise access.
type Set struct {
	effects []*Effect
}

// Add appends e.
func (s *Set) Add(e *Effect) { s.effects = append(s.effects, e) }

// Len returns the number of effects held.
func (s *Set) Len() int { return len(s.effects) }

// All returns the effects in application order.
func (s *Set) All() []*Effect {
	out := make([]*Effect, len(s.effects))
	copy(out, s.effects)
	return out
}

// Bonuses returns the bonus bundle of every effect, in application order.
func (s *Set) Bonuses() []stats.Bonuses {
	out := make([]stats.Bonuses, len(s.effects))
	for i, e := range s.effects {
		out[i] = e.Bonuses
	}
	return out
}

// Update advances every effect and removes the expired ones.
//
// Postcondition: returns the removed effects in application order; no
// effect left in the set reports IsRemoval.
func (s *Set) Update(millis int) []*Effect {
	var removed []*Effect
	kept := s.effects[:0]
	for _, e := range s.effects {
		if e.Update(millis) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.effects); i++ {
		s.effects[i] = nil
	}
	s.effects = kept
	return removed
}

// Remove drops the effect with id and reports whether it was present.
func (s *Set) Remove(id uuid.UUID) (*Effect, bool) {
	for i, e := range s.effects {
		if e.ID == id {
			s.effects = append(s.effects[:i], s.effects[i+1:]...)
			return e, true
		}
	}
	return nil, false
}
