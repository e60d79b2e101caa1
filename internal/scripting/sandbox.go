// Package scripting runs ability scripts in a sandboxed GopherLua state, one
// state per invocation, against a World supplied by the caller.
package scripting

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one invocation when no
// override is configured.
const DefaultInstructionLimit = 100_000

// ErrInstructionLimit is returned when a script runs out of opcode budget.
var ErrInstructionLimit = errors.New("instruction limit exceeded")

// unsafeGlobals are stripped from the base library.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"}

// opBudget cancels itself once Done has been called limit times. The VM
// calls Done once per opcode, so the budget counts instructions.
//
// Invariant: only the goroutine running the state calls Done.
type opBudget struct {
	context.Context
	cancel    context.CancelFunc
	remaining int64
}

func (b *opBudget) Done() <-chan struct{} {
	b.remaining--
	if b.remaining == 0 {
		b.cancel()
	}
	return b.Context.Done()
}

func (b *opBudget) spent() bool { return b.remaining <= 0 }

// Sandbox is a Lua state with only the base, table, string and math
// libraries loaded and a per-invocation opcode budget.
type Sandbox struct {
	L      *lua.LState
	budget *opBudget
}

// NewSandbox creates a Sandbox.
//
// Precondition: limit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: the caller must Close the Sandbox.
func NewSandbox(limit int) *Sandbox {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: ctx, cancel: cancel, remaining: int64(limit)}
	L.SetContext(b)
	return &Sandbox{L: L, budget: b}
}

// Wrap marks err as ErrInstructionLimit when the budget ran out.
func (s *Sandbox) Wrap(err error) error {
	if err != nil && s.budget.spent() {
		return fmt.Errorf("%w: %v", ErrInstructionLimit, err)
	}
	return err
}

// Close releases the state.
func (s *Sandbox) Close() {
	s.budget.cancel()
	s.L.Close()
}
