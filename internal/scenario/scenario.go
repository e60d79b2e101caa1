// Package scenario replays an authored list of input events against a
// simulation, the way a player would drive it.
package scenario

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tactica/internal/game/ai"
	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/sim"
)

// Event names.
const (
	EventActivate       = "activate"
	EventMove           = "move"
	EventClick          = "click"
	EventCancel         = "cancel"
	EventTick           = "tick"
	EventStartEncounter = "start_encounter"
	EventEndTurn        = "end_turn"
	// EventAITurns plays turns while the current entity is planner-controlled.
	EventAITurns = "ai_turns"
)

// maxAITurns bounds one ai_turns step.
const maxAITurns = 64

var (
	// ErrUnexpectedSuccess is returned when a step marked expect_error succeeds.
	ErrUnexpectedSuccess = errors.New("step was expected to fail")
	// ErrNoDriver is returned by ai_turns when the runner has no planner driver.
	ErrNoDriver = errors.New("no ai driver")
)

// Step is one input event.
type Step struct {
	Event string `yaml:"event"`
	// Actor and Ability name the activation of an activate step.
	Actor   string `yaml:"actor,omitempty"`
	Ability string `yaml:"ability,omitempty"`
	// X and Y are the cursor tile of a move step.
	X int `yaml:"x,omitempty"`
	Y int `yaml:"y,omitempty"`
	// Millis is the time advanced by a tick step.
	Millis int `yaml:"millis,omitempty"`
	// ExpectError marks a step that must be rejected.
	ExpectError bool `yaml:"expect_error,omitempty"`
}

// Validate checks that the step carries what its event needs.
func (s Step) Validate() error {
	switch s.Event {
	case EventActivate:
		if s.Actor == "" || s.Ability == "" {
			return errors.New("activate needs actor and ability")
		}
	case EventTick:
		if s.Millis <= 0 {
			return fmt.Errorf("tick needs positive millis, got %d", s.Millis)
		}
	case EventMove, EventClick, EventCancel, EventStartEncounter, EventEndTurn, EventAITurns:
	default:
		return fmt.Errorf("unknown event %q", s.Event)
	}
	return nil
}

// Scenario is a named list of steps played in one area.
type Scenario struct {
	Name  string `yaml:"name"`
	Area  string `yaml:"area"`
	Steps []Step `yaml:"steps"`
}

// Validate checks every step, collecting all violations.
func (sc *Scenario) Validate() error {
	var errs []error
	if sc.Area == "" {
		errs = append(errs, errors.New("area must not be empty"))
	}
	for i, st := range sc.Steps {
		if err := st.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("steps[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Load reads and validates the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	return &sc, nil
}

// Runner plays a scenario one step at a time.
type Runner struct {
	sim      *sim.Simulation
	scenario *Scenario
	driver   *ai.Driver
	logger   *zap.Logger
	next     int
}

// NewRunner creates a Runner positioned before the first step. driver may
// be nil when the scenario has no ai_turns steps.
//
// Precondition: s, sc and logger must be non-nil.
func NewRunner(s *sim.Simulation, sc *Scenario, driver *ai.Driver, logger *zap.Logger) *Runner {
	return &Runner{
		sim:      s,
		scenario: sc,
		driver:   driver,
		logger:   logger.With(zap.String("scenario", sc.Name)),
	}
}

// Done reports whether every step has been played.
func (r *Runner) Done() bool { return r.next >= len(r.scenario.Steps) }

// Played returns how many steps have been played.
func (r *Runner) Played() int { return r.next }

// Step plays the next step and logs the attacks it resolved.
//
// Precondition: Done must be false.
// Postcondition: the step is consumed even when it fails.
func (r *Runner) Step() error {
	i := r.next
	st := r.scenario.Steps[i]
	r.next++

	err := r.apply(st)
	r.logOutcomes()
	switch {
	case st.ExpectError && err == nil:
		return fmt.Errorf("step %d (%s): %w", i, st.Event, ErrUnexpectedSuccess)
	case st.ExpectError:
		r.logger.Debug("step rejected as expected", zap.Int("step", i), zap.Error(err))
		return nil
	case err != nil:
		return fmt.Errorf("step %d (%s): %w", i, st.Event, err)
	}
	r.logger.Debug("step played", zap.Int("step", i), zap.String("event", st.Event))
	return nil
}

// Run plays every remaining step, stopping at the first failure or when
// ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	for !r.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) apply(st Step) error {
	s := r.sim
	switch st.Event {
	case EventActivate:
		h, ok := s.Find(st.Actor)
		if !ok {
			return fmt.Errorf("actor %q is not in the area: %w", st.Actor, entity.ErrGone)
		}
		return s.ActivateAbility(h, st.Ability)
	case EventMove:
		if s.Targeter() == nil {
			return sim.ErrNoTargeter
		}
		s.MouseMove(st.X, st.Y)
	case EventClick:
		return s.Click()
	case EventCancel:
		if !s.CancelTargeter() {
			return sim.ErrNoTargeter
		}
	case EventTick:
		s.Tick(st.Millis)
	case EventStartEncounter:
		return s.StartEncounter()
	case EventEndTurn:
		return s.EndTurn()
	case EventAITurns:
		return r.aiTurns()
	}
	return nil
}

func (r *Runner) aiTurns() error {
	if r.driver == nil {
		return ErrNoDriver
	}
	for i := 0; i < maxAITurns; i++ {
		h, ok := r.sim.Current()
		if !ok || !r.driver.Controls(h) {
			return nil
		}
		if err := r.driver.TakeTurn(); err != nil {
			return err
		}
		r.logOutcomes()
	}
	return nil
}

func (r *Runner) logOutcomes() {
	for _, o := range r.sim.DrainOutcomes() {
		r.logger.Info("scenario attack",
			zap.Stringer("attacker", o.Attacker),
			zap.Stringer("target", o.Target),
			zap.Stringer("kind", o.Kind()),
			zap.Int("damage", o.Damage),
			zap.Bool("killed", o.Killed),
			zap.Int("xp", o.XP),
		)
	}
}
