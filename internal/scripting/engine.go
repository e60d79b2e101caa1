package scripting

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/game/ability"
	"github.com/cory-johannsen/tactica/internal/game/entity"
)

const (
	// OnActivate is the entry point called when an ability is activated.
	OnActivate = "on_activate"
	// OnTargetSelect is the entry point called after a targeter commits.
	OnTargetSelect = "on_target_select"
)

var (
	// ErrNoScript is returned when an ability has no active payload or an
	// empty script body.
	ErrNoScript = errors.New("ability has no script")
	// ErrNoEntry is returned when the script does not define the entry point.
	ErrNoEntry = errors.New("entry point not defined")
	// ErrParentGone is returned when the acting entity is no longer live.
	ErrParentGone = errors.New("parent entity is gone")
)

// Error is a failed script invocation.
type Error struct {
	Ability string
	Entry   string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("script %s.%s: %v", e.Ability, e.Entry, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures an Engine.
type Options struct {
	// InstructionLimit caps opcodes per invocation; 0 uses DefaultInstructionLimit.
	InstructionLimit int
	// AnimBaseTimeMillis is reported to scripts, in seconds, by game:anim_base_time().
	AnimBaseTimeMillis int
}

// Engine runs ability scripts. It holds no Lua state between invocations.
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// NewEngine creates an Engine.
//
// Precondition: logger must be non-nil.
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	return &Engine{opts: opts, logger: logger}
}

// Run executes entry from ab's script with parent, ability and targets bound
// as globals and passed as arguments.
//
// Mutations the script issues are staged and applied to w, in order, only
// after the entry point returns without error. Queries made after a staged
// mutation still observe the pre-invocation state.
//
// Postcondition: a non-nil error is a *Error and w has not been mutated.
func (e *Engine) Run(w World, ab *ability.Ability, entry string, parent entity.Handle, targets entity.Set) error {
	fail := func(err error) error { return &Error{Ability: ab.ID, Entry: entry, Err: err} }
	if !ab.IsActive() || ab.Active.Body == "" {
		return fail(ErrNoScript)
	}
	if _, ok := w.View(parent); !ok {
		return fail(ErrParentGone)
	}

	sb := NewSandbox(e.opts.InstructionLimit)
	defer sb.Close()
	L := sb.L

	inv := newInvocation(L, e, w, ab)
	parentUD := inv.entityUD(parent)
	abilityUD := inv.abilityUD(ab)
	targetsUD := inv.setUD(parent, targets)
	L.SetGlobal("parent", parentUD)
	L.SetGlobal("ability", abilityUD)
	L.SetGlobal("targets", targetsUD)
	L.SetGlobal("game", inv.gameUD())

	if err := L.DoString(ab.Active.Body); err != nil {
		return fail(sb.Wrap(err))
	}
	fn, ok := L.GetGlobal(entry).(*lua.LFunction)
	if !ok {
		return fail(fmt.Errorf("%w: %s", ErrNoEntry, entry))
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, parentUD, abilityUD, targetsUD); err != nil {
		return fail(sb.Wrap(err))
	}

	e.logger.Debug("script executed",
		zap.String("ability", ab.ID),
		zap.String("entry", entry),
		zap.Stringer("parent", parent),
		zap.Int("mutations", len(inv.staged)),
	)
	for _, apply := range inv.staged {
		apply()
	}
	return nil
}
