package sim

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/game/area"
	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/targeter"
	"github.com/cory-johannsen/tactica/internal/scripting"
)

// ActivateAbility runs the on_activate entry of abilityID for h.
//
// Precondition: h is live and not dead, owns the ability, and holds the
// turn when an encounter runs.
// Postcondition: on any error, including a script error, nothing about the
// simulation has changed.
func (s *Simulation) ActivateAbility(h entity.Handle, abilityID string) error {
	e, ok := s.area.Get(h)
	if !ok {
		return fmt.Errorf("activating %q: handle %s: %w", abilityID, h, entity.ErrGone)
	}
	if e.Actor.IsDead() {
		return fmt.Errorf("activating %q: %w", abilityID, ErrDead)
	}
	if cur, ok := s.Current(); ok && cur != h {
		return fmt.Errorf("activating %q: %w", abilityID, ErrNotYourTurn)
	}
	if t := s.area.Targeter(); t != nil && t.State() == targeter.Active {
		return fmt.Errorf("activating %q: %w", abilityID, area.ErrTargeterActive)
	}
	ab, ok := s.module.Abilities.Get(abilityID)
	if !ok || !e.Actor.Actor.HasAbility(abilityID) {
		return fmt.Errorf("%w %q", ErrUnknownAbility, abilityID)
	}
	if !e.Actor.CanActivate(abilityID) {
		return fmt.Errorf("activating %q: %w", abilityID, ErrCannotActivate)
	}
	if err := s.engine.Run(s, ab, scripting.OnActivate, h, entity.NewSet()); err != nil {
		s.logger.Warn("ability activation failed",
			zap.String("ability", abilityID),
			zap.String("actor", e.Actor.Actor.ID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// MouseMove forwards the cursor to the running targeter.
//
// Postcondition: returns the selectable entity under the cursor, if any.
func (s *Simulation) MouseMove(x, y int) (entity.Handle, bool) {
	t := s.area.Targeter()
	if t == nil {
		return entity.None, false
	}
	return t.OnMouseMove(x, y)
}

// Click commits the running targeter and re-enters its ability through
// on_target_select with the committed selection.
//
// Postcondition: returns ErrInvalidSelection and leaves the targeter
// running if the selection does not satisfy it; otherwise the targeter is
// removed before the script runs.
func (s *Simulation) Click() error {
	t := s.area.Targeter()
	if t == nil || t.State() != targeter.Active {
		return ErrNoTargeter
	}
	set, ok := t.OnActivate()
	if !ok {
		return ErrInvalidSelection
	}
	s.area.ClearTargeter()
	ab, ok := s.module.Abilities.Get(t.AbilityID())
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownAbility, t.AbilityID())
	}
	if err := s.engine.Run(s, ab, scripting.OnTargetSelect, t.Parent(), set); err != nil {
		s.logger.Warn("target selection failed",
			zap.String("ability", ab.ID),
			zap.Stringer("parent", t.Parent()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// CancelTargeter discards the running targeter without any script callback.
//
// Postcondition: returns false and keeps the targeter if there is none or
// it does not permit cancellation.
func (s *Simulation) CancelTargeter() bool {
	t := s.area.Targeter()
	if t == nil || !t.Cancel() {
		return false
	}
	t.OnCancel()
	s.area.ClearTargeter()
	s.logger.Debug("targeter cancelled", zap.String("ability", t.AbilityID()))
	return true
}

// Targeter returns the running targeter, or nil.
func (s *Simulation) Targeter() *targeter.Targeter { return s.area.Targeter() }
