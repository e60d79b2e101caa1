package sim

import (
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/game/ability"
	"github.com/cory-johannsen/tactica/internal/game/area"
	"github.com/cory-johannsen/tactica/internal/game/effect"
	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
	"github.com/cory-johannsen/tactica/internal/game/targeter"
	"github.com/cory-johannsen/tactica/internal/scripting"
)

var _ scripting.World = (*Simulation)(nil)

// View implements scripting.World.
func (s *Simulation) View(h entity.Handle) (scripting.EntityView, bool) {
	e, ok := s.area.Get(h)
	if !ok {
		return scripting.EntityView{}, false
	}
	st := e.Actor
	return scripting.EntityView{
		Handle:   h,
		ID:       st.Actor.ID,
		Name:     st.Actor.Name,
		Faction:  st.Actor.Faction,
		Location: e.Location,
		HP:       st.HP(),
		MaxHP:    st.Stats.MaxHP,
		AP:       st.AP(),
		Dead:     st.IsDead(),
	}, true
}

// Living implements scripting.World.
func (s *Simulation) Living() []entity.Handle {
	var out []entity.Handle
	for _, h := range s.area.Handles() {
		if e, _ := s.area.Get(h); !e.Actor.IsDead() {
			out = append(out, h)
		}
	}
	return out
}

// IsPassable implements scripting.World. The entity's own footprint never
// blocks it.
func (s *Simulation) IsPassable(h entity.Handle, x, y int) bool {
	e, ok := s.area.Get(h)
	if !ok {
		return false
	}
	return s.area.IsPassable(e.Size, geometry.Point{X: x, Y: y}, h)
}

// CanAttack implements scripting.World.
func (s *Simulation) CanAttack(attacker, target entity.Handle) bool {
	a, ok := s.area.Get(attacker)
	if !ok || a.Actor.IsDead() {
		return false
	}
	t, ok := s.area.Get(target)
	if !ok || t.Actor.IsDead() {
		return false
	}
	dist, _ := s.area.Distance(attacker, target)
	return a.Actor.CanAttack(dist)
}

// Sizes implements scripting.World.
func (s *Simulation) Sizes() *geometry.Sizes { return s.module.Sizes }

// EffectDef implements scripting.World.
func (s *Simulation) EffectDef(id string) (*effect.Def, bool) { return s.module.Effects.Get(id) }

// Attack implements scripting.World.
func (s *Simulation) Attack(attacker, target entity.Handle) {
	s.outcomes = append(s.outcomes, s.resolver.Attack(s.area, attacker, target))
}

// ApplyEffect implements scripting.World. Effects on dead entities are dropped.
func (s *Simulation) ApplyEffect(target entity.Handle, def *effect.Def, cb *ability.Callback) {
	duration := effect.Permanent
	if def.DurationRounds != effect.Permanent {
		duration = s.rules.RoundsToMillis(def.DurationRounds)
	}
	err := s.area.With(target, func(e *area.Entity) error {
		if e.Actor.IsDead() {
			return nil
		}
		eff := effect.New(def, duration)
		eff.Callback = cb
		e.Actor.AddEffect(eff)
		s.logger.Debug("effect applied",
			zap.String("effect", def.ID),
			zap.String("target", e.Actor.Actor.ID),
			zap.Int("duration_millis", duration),
		)
		return nil
	})
	s.absorb("apply effect", target, err)
}

// RemoveHP implements scripting.World.
func (s *Simulation) RemoveHP(target entity.Handle, n int) {
	err := s.area.With(target, func(e *area.Entity) error {
		e.Actor.RemoveHP(n)
		s.logger.Debug("hit points removed",
			zap.String("target", e.Actor.Actor.ID),
			zap.Int("amount", n),
			zap.Int("hp", e.Actor.HP()),
		)
		return nil
	})
	s.absorb("remove hp", target, err)
}

// SpendAbility implements scripting.World. AP is only spent while an
// encounter runs.
func (s *Simulation) SpendAbility(target entity.Handle, a *ability.Ability) {
	err := s.area.With(target, func(e *area.Entity) error {
		if s.area.IsTurnActive() && a.IsActive() {
			e.Actor.RemoveAP(a.Active.AP)
		}
		e.Actor.ActivateAbilityState(a.ID)
		return nil
	})
	s.absorb("activate ability", target, err)
}

// SetTargeter implements scripting.World.
func (s *Simulation) SetTargeter(data *targeter.Data) error {
	t, err := targeter.New(data, s.area, s.module.Sizes)
	if err != nil {
		return err
	}
	if err := s.area.SetTargeter(t); err != nil {
		return err
	}
	s.logger.Debug("targeter activated",
		zap.String("ability", data.AbilityID),
		zap.Stringer("parent", data.Parent),
		zap.Stringer("shape", data.Shape.Kind),
	)
	return nil
}

// absorb logs a mutation that could not reach its entity. Stale handles are
// expected and only logged at Debug.
func (s *Simulation) absorb(op string, h entity.Handle, err error) {
	switch {
	case err == nil:
	case errors.Is(err, entity.ErrGone):
		s.logger.Debug(op+" on stale handle", zap.Stringer("handle", h))
	default:
		s.logger.Warn(op+" failed", zap.Stringer("handle", h), zap.Error(err))
	}
}
