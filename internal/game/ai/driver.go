package ai

import (
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/game/actor"
	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/sim"
)

// DomainsDir is the module subdirectory holding planning domains.
const DomainsDir = "ai"

// ErrNoDomain is returned when the current entity has no planning domain.
var ErrNoDomain = errors.New("actor has no ai domain")

// Driver plays encounter turns for entities whose authored actor names a
// planning domain.
type Driver struct {
	sim      *sim.Simulation
	registry *Registry
	logger   *zap.Logger
}

// NewDriver registers every domain and checks that each authored actor's
// domain exists.
//
// Precondition: s, conditions and logger must not be nil.
// Postcondition: returns an error listing every unknown domain reference.
func NewDriver(s *sim.Simulation, domains []*Domain, conditions Conditions, logger *zap.Logger) (*Driver, error) {
	reg := NewRegistry()
	for _, d := range domains {
		if err := reg.Register(d, conditions, logger); err != nil {
			return nil, err
		}
	}
	var errs []error
	actors := s.Module().Actors
	for _, id := range actor.SortedKeys(actors) {
		if name := actors[id].AI; name != "" {
			if _, ok := reg.PlannerFor(name); !ok {
				errs = append(errs, fmt.Errorf("actor %q: unknown ai domain %q", id, name))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Driver{sim: s, registry: reg, logger: logger}, nil
}

// LoadDriver loads the domains of the simulation's module directory.
func LoadDriver(s *sim.Simulation, conditions Conditions, logger *zap.Logger) (*Driver, error) {
	domains, err := LoadDomains(filepath.Join(s.Module().Dir, DomainsDir))
	if err != nil {
		return nil, err
	}
	return NewDriver(s, domains, conditions, logger)
}

// Controls reports whether h is played by a planner.
func (d *Driver) Controls(h entity.Handle) bool {
	_, ok := d.plannerFor(h)
	return ok
}

func (d *Driver) plannerFor(h entity.Handle) (*Planner, bool) {
	e, ok := d.sim.Area().Get(h)
	if !ok {
		return nil, false
	}
	def, ok := d.sim.Module().Actors[e.Actor.Actor.ID]
	if !ok || def.AI == "" {
		return nil, false
	}
	return d.registry.PlannerFor(def.AI)
}

// BuildWorldState snapshots the area from the point of view of self.
//
// Postcondition: returns false if self is stale.
func BuildWorldState(s *sim.Simulation, self entity.Handle) (*WorldState, bool) {
	v, ok := s.View(self)
	if !ok {
		return nil, false
	}
	ws := &WorldState{
		Self: &CombatantState{
			Handle:   self,
			Name:     v.Name,
			Faction:  v.Faction,
			Location: v.Location,
			HP:       v.HP,
			MaxHP:    v.MaxHP,
			AP:       v.AP,
		},
		Round: s.Round(),
	}
	for _, h := range s.Living() {
		if h == self {
			continue
		}
		o, _ := s.View(h)
		dist, _ := s.Area().Distance(self, h)
		ws.Combatants = append(ws.Combatants, &CombatantState{
			Handle:   h,
			Name:     o.Name,
			Faction:  o.Faction,
			Location: o.Location,
			HP:       o.HP,
			MaxHP:    o.MaxHP,
			AP:       o.AP,
			Distance: dist,
			InReach:  s.CanAttack(self, h),
		})
	}
	return ws, true
}

// TakeTurn plans and plays the current entity's turn, then ends it.
// Actions that the simulation rejects are skipped.
//
// Postcondition: returns ErrNoDomain without ending the turn if the current
// entity is not planner-controlled.
func (d *Driver) TakeTurn() error {
	h, ok := d.sim.Current()
	if !ok {
		return sim.ErrNoEncounter
	}
	p, ok := d.plannerFor(h)
	if !ok {
		return fmt.Errorf("%s: %w", h, ErrNoDomain)
	}
	logger := d.logger.With(zap.Stringer("handle", h), zap.String("domain", p.Domain().ID))

	// Replan after every action: the previous one may have changed the area.
	for step := 0; step < maxDepth; step++ {
		ws, ok := BuildWorldState(d.sim, h)
		if !ok {
			break
		}
		plan, err := p.Plan(ws)
		if err != nil {
			return err
		}
		if len(plan) == 0 || plan[0].Action == ActionPass {
			break
		}
		if err := d.use(h, plan[0]); err != nil {
			logger.Debug("planned action rejected", zap.String("ability", plan[0].Ability), zap.Error(err))
			break
		}
		logger.Debug("planned action played", zap.String("ability", plan[0].Ability), zap.Stringer("target", plan[0].Target))
	}
	return d.sim.EndTurn()
}

// use activates the ability and, if it opens a targeter, points it at the
// planned target and commits.
func (d *Driver) use(h entity.Handle, a PlannedAction) error {
	if err := d.sim.ActivateAbility(h, a.Ability); err != nil {
		return err
	}
	if d.sim.Targeter() == nil {
		return nil
	}
	target, ok := d.sim.View(a.Target)
	if !ok {
		d.sim.CancelTargeter()
		return fmt.Errorf("target %s: %w", a.Target, entity.ErrGone)
	}
	d.sim.MouseMove(target.Location.X, target.Location.Y)
	if err := d.sim.Click(); err != nil {
		d.sim.CancelTargeter()
		return err
	}
	return nil
}
