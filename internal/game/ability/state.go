package ability

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/tactica/internal/game/entity"
)

// State tracks activation and cooldown of one activatable ability for one actor.
type State struct {
	AbilityID  string
	ActivateAP int
	// CooldownMillis is the cooldown started by each activation.
	CooldownMillis int

	remaining int
}

// NewState creates an available State for a.
//
// Precondition: a.IsActive() and roundMillis > 0.
func NewState(a *Ability, roundMillis int) *State {
	return &State{
		AbilityID:      a.ID,
		ActivateAP:     a.Active.AP,
		CooldownMillis: a.Active.Cooldown * roundMillis,
	}
}

// IsAvailable reports whether the ability is off cooldown.
func (s *State) IsAvailable() bool { return s.remaining <= 0 }

// Activate starts the cooldown.
//
// Postcondition: Remaining() == CooldownMillis.
func (s *State) Activate() { s.remaining = s.CooldownMillis }

// Update advances the cooldown by millis.
//
// Postcondition: Remaining() >= 0.
func (s *State) Update(millis int) {
	if s.remaining <= 0 {
		return
	}
	s.remaining -= millis
	if s.remaining < 0 {
		s.remaining = 0
	}
}

// Remaining returns the cooldown millis left.
func (s *State) Remaining() int { return s.remaining }

// SetRemaining restores a saved cooldown.
func (s *State) SetRemaining(millis int) {
	if millis < 0 {
		millis = 0
	}
	s.remaining = millis
}

// Callback is an opaque token binding an entity and an ability so a script
// can be re-entered later, for example when an effect it applied expires.
type Callback struct {
	ID        uuid.UUID
	Parent    entity.Handle
	AbilityID string
	// OnRemoved names the script function fired when the owning effect is removed.
	OnRemoved string
}

// NewCallback creates a token for parent and abilityID.
func NewCallback(parent entity.Handle, abilityID string) *Callback {
	return &Callback{ID: uuid.New(), Parent: parent, AbilityID: abilityID}
}
