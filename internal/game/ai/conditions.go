package ai

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/tactica/internal/scripting"
)

// Conditions evaluates method preconditions against a world state.
type Conditions interface {
	Check(expr string, state *WorldState) (bool, error)
}

// LuaConditions evaluates a precondition as a sandboxed Lua expression.
// The expression sees:
//
//	self              table with hp, max_hp, hp_percent, ap
//	round             the encounter round
//	enemies           number of living enemies
//	enemies_in_reach  number of enemies attackable now
//	allies            number of living allies
type LuaConditions struct {
	// InstructionLimit caps opcodes per check; 0 uses the scripting default.
	InstructionLimit int
}

// Check returns the truthiness of expr.
//
// Postcondition: a syntax or runtime error is returned with a false result.
func (c LuaConditions) Check(expr string, ws *WorldState) (bool, error) {
	sb := scripting.NewSandbox(c.InstructionLimit)
	defer sb.Close()
	L := sb.L

	self := L.NewTable()
	self.RawSetString("hp", lua.LNumber(ws.Self.HP))
	self.RawSetString("max_hp", lua.LNumber(ws.Self.MaxHP))
	self.RawSetString("hp_percent", lua.LNumber(ws.Self.HPPercent()))
	self.RawSetString("ap", lua.LNumber(ws.Self.AP))
	L.SetGlobal("self", self)
	L.SetGlobal("round", lua.LNumber(ws.Round))
	L.SetGlobal("enemies", lua.LNumber(len(ws.Enemies())))
	L.SetGlobal("enemies_in_reach", lua.LNumber(len(ws.EnemiesInReach())))
	L.SetGlobal("allies", lua.LNumber(len(ws.Allies())))

	fn, err := L.LoadString("return " + expr)
	if err != nil {
		return false, fmt.Errorf("precondition %q: %w", expr, err)
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		return false, fmt.Errorf("precondition %q: %w", expr, sb.Wrap(err))
	}
	v := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(v), nil
}
