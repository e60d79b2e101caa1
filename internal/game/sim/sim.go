// Package sim threads the module data, the live area, the script engine and
// the combat resolver through every player input and simulation tick.
package sim

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/content"
	"github.com/cory-johannsen/tactica/internal/game/area"
	"github.com/cory-johannsen/tactica/internal/game/combat"
	"github.com/cory-johannsen/tactica/internal/game/dice"
	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
	"github.com/cory-johannsen/tactica/internal/game/rules"
	"github.com/cory-johannsen/tactica/internal/scripting"
)

var (
	// ErrUnknownArea is returned when the module has no area with the requested id.
	ErrUnknownArea = errors.New("sim: unknown area")
	// ErrUnknownAbility is returned when the actor does not have the ability.
	ErrUnknownAbility = errors.New("sim: actor does not have ability")
	// ErrCannotActivate is returned when an ability is on cooldown or too expensive.
	ErrCannotActivate = errors.New("sim: ability cannot be activated")
	// ErrDead is returned when a dead entity is asked to act.
	ErrDead = errors.New("sim: entity is dead")
	// ErrNoTargeter is returned by targeter input when no targeter is running.
	ErrNoTargeter = errors.New("sim: no active targeter")
	// ErrInvalidSelection is returned when a click does not satisfy the targeter.
	ErrInvalidSelection = errors.New("sim: selection does not satisfy the targeter")
	// ErrNotYourTurn is returned when an entity acts outside its encounter turn.
	ErrNotYourTurn = errors.New("sim: not this entity's turn")
	// ErrEncounterActive is returned when an encounter is started twice.
	ErrEncounterActive = errors.New("sim: an encounter is already running")
	// ErrNoEncounter is returned by turn input outside an encounter.
	ErrNoEncounter = errors.New("sim: no encounter is running")
)

// Simulation is the single owner of one area's live state.
// It is not safe for concurrent use; one goroutine drives it.
type Simulation struct {
	module   *content.Module
	rules    *rules.Rules
	area     *area.Area
	engine   *scripting.Engine
	resolver *combat.Resolver
	roller   *dice.Roller
	logger   *zap.Logger

	encounter *encounter
	outcomes  []combat.Outcome
}

// New builds the area areaID from m and places every authored actor.
//
// Precondition: m has passed Validate; all other arguments must be non-nil.
// Postcondition: every placed actor holds full AP and no encounter runs.
func New(m *content.Module, areaID string, engine *scripting.Engine, roller *dice.Roller, logger *zap.Logger) (*Simulation, error) {
	def, ok := m.Areas[areaID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownArea, areaID)
	}
	s := &Simulation{
		module:   m,
		rules:    m.Rules,
		area:     area.New(def, logger),
		engine:   engine,
		resolver: combat.NewResolver(m.Rules, roller, m, logger),
		roller:   roller,
		logger:   logger.With(zap.String("area", def.ID)),
	}
	for i, p := range def.Actors {
		if _, err := s.AddActor(p.Actor, p.Location); err != nil {
			return nil, fmt.Errorf("area %q: actors[%d]: %w", def.ID, i, err)
		}
	}
	s.logger.Info("area loaded", zap.Int("entities", len(def.Actors)))
	return s, nil
}

// AddActor places a fresh instance of the authored actor id with its
// top-left at loc.
//
// Postcondition: the actor holds full AP.
func (s *Simulation) AddActor(id string, loc geometry.Point) (entity.Handle, error) {
	state, err := s.module.NewActorState(id)
	if err != nil {
		return entity.None, err
	}
	size, err := s.module.Size(state.Actor)
	if err != nil {
		return entity.None, err
	}
	state.InitTurn()
	return s.area.AddActor(state, size, loc)
}

// Area returns the live area.
func (s *Simulation) Area() *area.Area { return s.area }

// Module returns the module data the simulation reads.
func (s *Simulation) Module() *content.Module { return s.module }

// Find returns the first live entity placed from the authored actor id.
func (s *Simulation) Find(actorID string) (entity.Handle, bool) {
	for _, h := range s.area.Handles() {
		if e, _ := s.area.Get(h); e.Actor.Actor.ID == actorID {
			return h, true
		}
	}
	return entity.None, false
}

// DrainOutcomes returns the attacks resolved since the previous call.
func (s *Simulation) DrainOutcomes() []combat.Outcome {
	out := s.outcomes
	s.outcomes = nil
	return out
}

// ReloadScript installs a rewritten ability script. Targeters already
// running keep their data; the next invocation uses the new body.
func (s *Simulation) ReloadScript(c content.ScriptChange) []string {
	ids := s.module.ReloadScript(c)
	if len(ids) > 0 {
		s.logger.Info("ability script reloaded", zap.String("script", c.Name), zap.Strings("abilities", ids))
	}
	return ids
}
