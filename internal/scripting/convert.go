package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/tactica/internal/game/entity"
)

// The check helpers convert script arguments without coercion: a number
// passed where a string is expected, or a fraction where an integer is
// expected, raises a Lua error naming the argument.

func checkString(L *lua.LState, n int) string {
	s, ok := L.Get(n).(lua.LString)
	if !ok {
		L.TypeError(n, lua.LTString)
		return ""
	}
	return string(s)
}

func checkNumber(L *lua.LState, n int) float64 {
	v, ok := L.Get(n).(lua.LNumber)
	if !ok {
		L.TypeError(n, lua.LTNumber)
		return 0
	}
	return float64(v)
}

func checkInt(L *lua.LState, n int) int {
	f := checkNumber(L, n)
	if f != math.Trunc(f) {
		L.ArgError(n, "integer expected, got fractional number")
		return 0
	}
	return int(f)
}

func checkBool(L *lua.LState, n int) bool {
	v, ok := L.Get(n).(lua.LBool)
	if !ok {
		L.TypeError(n, lua.LTBool)
		return false
	}
	return bool(v)
}

// checkUserData returns the Go value of the userdata at n if it is a T.
func checkUserData[T any](L *lua.LState, n int, name string) T {
	var zero T
	ud, ok := L.Get(n).(*lua.LUserData)
	if !ok {
		L.ArgError(n, name+" expected, got "+L.Get(n).Type().String())
		return zero
	}
	v, ok := ud.Value.(T)
	if !ok {
		L.ArgError(n, name+" expected, got other userdata")
		return zero
	}
	return v
}

func checkEntity(L *lua.LState, n int) entity.Handle {
	return checkUserData[*luaEntity](L, n, entityTypeName).handle
}

func checkSet(L *lua.LState, n int) *luaSet {
	return checkUserData[*luaSet](L, n, setTypeName)
}

func checkAbility(L *lua.LState, n int) *luaAbility {
	return checkUserData[*luaAbility](L, n, abilityTypeName)
}

// optCallback returns the callback at n, or nil if the argument is absent.
func optCallback(L *lua.LState, n int) *luaCallback {
	if L.Get(n) == lua.LNil {
		return nil
	}
	return checkUserData[*luaCallback](L, n, callbackTypeName)
}
