package sim

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/game/actor"
	"github.com/cory-johannsen/tactica/internal/game/area"
)

// Progress snapshots every living friendly entity, in handle order.
func (s *Simulation) Progress() []actor.Progress {
	var out []actor.Progress
	for _, h := range s.Living() {
		e, _ := s.area.Get(h)
		if e.Actor.Actor.Faction != actor.Friendly {
			continue
		}
		out = append(out, e.Actor.Snapshot())
	}
	return out
}

// RestoreProgress applies saved progress to the friendly entities placed
// from the same authored actor. Saved class levels are replayed first.
//
// Postcondition: returns a description of every record, class or effect
// that could not be restored; everything else is applied.
func (s *Simulation) RestoreProgress(saved []actor.Progress) []string {
	var skipped []string
	for _, p := range saved {
		h, ok := s.Find(p.ActorID)
		if !ok {
			skipped = append(skipped, "actor "+p.ActorID)
			continue
		}
		err := s.area.With(h, func(e *area.Entity) error {
			if e.Actor.Actor.Faction != actor.Friendly {
				skipped = append(skipped, "actor "+p.ActorID)
				return nil
			}
			for _, c := range s.module.RestoreLevels(e.Actor, p.Levels) {
				skipped = append(skipped, "class "+c)
			}
			for _, id := range e.Actor.Restore(p, s.module.Effects.Get) {
				skipped = append(skipped, "effect "+id)
			}
			return nil
		})
		s.absorb("restore", h, err)
	}
	if len(skipped) > 0 {
		s.logger.Warn("progress partially restored", zap.Strings("skipped", skipped))
	}
	return skipped
}
