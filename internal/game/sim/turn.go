package sim

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/game/actor"
	"github.com/cory-johannsen/tactica/internal/game/area"
	"github.com/cory-johannsen/tactica/internal/game/combat"
	"github.com/cory-johannsen/tactica/internal/game/effect"
	"github.com/cory-johannsen/tactica/internal/game/entity"
)

type encounter struct {
	order []combat.Initiative
	turn  int
	round int
}

// Tick advances real time outside encounters: effects and cooldowns of every
// entity age by millis, removed effects fire their callbacks, and dead
// entities leave the area. During an encounter time only passes through
// EndTurn.
func (s *Simulation) Tick(millis int) {
	if s.encounter != nil {
		return
	}
	for _, h := range s.area.Handles() {
		s.age(h, millis)
	}
	s.sweepDead()
}

// age advances one entity's effects and cooldowns, then fires the removal
// callbacks once the entity is no longer borrowed.
func (s *Simulation) age(h entity.Handle, millis int) {
	var removed []*effect.Effect
	err := s.area.With(h, func(e *area.Entity) error {
		removed = e.Actor.Update(millis)
		return nil
	})
	s.absorb("update", h, err)
	for _, eff := range removed {
		s.logger.Debug("effect expired", zap.String("effect", eff.DefID), zap.Stringer("handle", h))
		s.fireRemoved(h, eff)
	}
}

func (s *Simulation) fireRemoved(holder entity.Handle, eff *effect.Effect) {
	cb := eff.Callback
	if cb == nil || cb.OnRemoved == "" {
		return
	}
	ab, ok := s.module.Abilities.Get(cb.AbilityID)
	if !ok {
		s.logger.Warn("effect callback names unknown ability", zap.String("ability", cb.AbilityID))
		return
	}
	if err := s.engine.Run(s, ab, cb.OnRemoved, cb.Parent, entity.NewSet(holder)); err != nil {
		s.logger.Warn("effect callback failed",
			zap.String("ability", cb.AbilityID),
			zap.String("entry", cb.OnRemoved),
			zap.Error(err),
		)
	}
}

// sweepDead removes every dead entity from the area.
func (s *Simulation) sweepDead() {
	for _, h := range s.area.Handles() {
		e, _ := s.area.Get(h)
		if !e.Actor.IsDead() {
			continue
		}
		s.area.Remove(h)
		s.logger.Info("entity died", zap.String("actor", e.Actor.Actor.ID), zap.Stringer("handle", h))
	}
}

// StartEncounter rolls initiative for every living entity and gives the
// first one its turn. Every other entity waits with zero AP.
func (s *Simulation) StartEncounter() error {
	if s.encounter != nil {
		return ErrEncounterActive
	}
	order := combat.RollInitiative(s.area, s.roller)
	if len(order) == 0 {
		return ErrNoEncounter
	}
	s.CancelTargeter()
	s.encounter = &encounter{order: order, round: 1}
	s.area.SetTurnActive(true)
	for _, in := range order {
		s.withState(in.Handle, (*actor.State).EndTurn)
	}
	s.logger.Info("encounter started", zap.Int("entities", len(order)))
	s.beginTurn()
	return nil
}

// Current returns the entity whose turn it is.
func (s *Simulation) Current() (entity.Handle, bool) {
	if s.encounter == nil {
		return entity.None, false
	}
	return s.encounter.order[s.encounter.turn].Handle, true
}

// Round returns the encounter round, starting at 1, or 0 outside encounters.
func (s *Simulation) Round() int {
	if s.encounter == nil {
		return 0
	}
	return s.encounter.round
}

// InEncounter reports whether turn-based play is running.
func (s *Simulation) InEncounter() bool { return s.encounter != nil }

// EndTurn drains the current entity's AP and passes the turn to the next
// living entity in initiative order. The encounter ends when only one
// faction is left standing or when nobody in the initiative order is alive.
func (s *Simulation) EndTurn() error {
	enc := s.encounter
	if enc == nil {
		return ErrNoEncounter
	}
	if t := s.area.Targeter(); t != nil {
		t.OnCancel()
		s.area.ClearTargeter()
	}
	cur, _ := s.Current()
	s.withState(cur, (*actor.State).EndTurn)
	s.sweepDead()
	if s.factionsLeft() < 2 {
		s.endEncounter()
		return nil
	}
	if !s.advance(enc) {
		s.endEncounter()
		return nil
	}
	s.beginTurn()
	return nil
}

// advance moves enc to the next living entity in initiative order.
//
// Postcondition: returns false when every entity in the order is gone.
func (s *Simulation) advance(enc *encounter) bool {
	for range enc.order {
		enc.turn++
		if enc.turn == len(enc.order) {
			enc.turn = 0
			enc.round++
		}
		if s.area.Live(enc.order[enc.turn].Handle) {
			return true
		}
	}
	return false
}

// beginTurn refills the current entity's AP. From the second round on it
// also ages the entity by one round.
func (s *Simulation) beginTurn() {
	h, _ := s.Current()
	s.withState(h, (*actor.State).InitTurn)
	if s.encounter.round > 1 {
		s.age(h, s.rules.RoundTimeMillis)
	}
	s.logger.Debug("turn started", zap.Stringer("handle", h), zap.Int("round", s.encounter.round))
}

func (s *Simulation) endEncounter() {
	s.encounter = nil
	s.area.SetTurnActive(false)
	for _, h := range s.area.Handles() {
		s.withState(h, (*actor.State).InitTurn)
	}
	s.logger.Info("encounter ended")
}

func (s *Simulation) factionsLeft() int {
	seen := map[actor.Faction]bool{}
	for _, h := range s.Living() {
		e, _ := s.area.Get(h)
		seen[e.Actor.Actor.Faction] = true
	}
	return len(seen)
}

func (s *Simulation) withState(h entity.Handle, fn func(*actor.State)) {
	err := s.area.With(h, func(e *area.Entity) error {
		fn(e.Actor)
		return nil
	})
	s.absorb("turn", h, err)
}
