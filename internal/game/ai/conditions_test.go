package ai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tactica/internal/game/actor"
	"github.com/cory-johannsen/tactica/internal/game/ai"
	"github.com/cory-johannsen/tactica/internal/scripting"
)

func TestLuaConditions_SeesWorldState(t *testing.T) {
	ws := hostileState(
		&ai.CombatantState{Handle: 0, Faction: actor.Friendly, InReach: true},
		&ai.CombatantState{Handle: 4, Faction: actor.Friendly},
		&ai.CombatantState{Handle: 2, Faction: actor.Hostile},
	)
	ws.Round = 3
	c := ai.LuaConditions{}

	for expr, want := range map[string]bool{
		"enemies == 2":                            true,
		"enemies_in_reach == 1":                   true,
		"allies == 1":                             true,
		"round == 3":                              true,
		"self.ap >= 3 and self.hp_percent == 100": true,
		"self.hp < self.max_hp":                   false,
		"nil":                                     false,
	} {
		got, err := c.Check(expr, ws)
		require.NoError(t, err, expr)
		assert.Equal(t, want, got, expr)
	}
}

func TestLuaConditions_Errors(t *testing.T) {
	c := ai.LuaConditions{InstructionLimit: 1000}
	ws := hostileState()

	_, err := c.Check("enemies >", ws)
	assert.Error(t, err, "syntax")

	_, err = c.Check("self.missing.field", ws)
	assert.Error(t, err, "runtime")

	_, err = c.Check("(function() while true do end end)()", ws)
	assert.ErrorIs(t, err, scripting.ErrInstructionLimit)
}

func TestLuaConditions_Sandboxed(t *testing.T) {
	ok, err := ai.LuaConditions{}.Check("os == nil and io == nil and require == nil", hostileState())
	require.NoError(t, err)
	assert.True(t, ok)
}
