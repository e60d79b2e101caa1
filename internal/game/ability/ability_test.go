package ability_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tactica/internal/game/ability"
	"github.com/cory-johannsen/tactica/internal/game/entity"
)

func fireball() *ability.Ability {
	return &ability.Ability{
		ID:     "fireball",
		Name:   "Fireball",
		Active: &ability.Active{Script: "fireball.lua", AP: 3, Duration: 0, Cooldown: 2},
	}
}

func TestState_CooldownLifecycle(t *testing.T) {
	s := ability.NewState(fireball(), 1000)
	assert.True(t, s.IsAvailable())
	assert.Equal(t, 3, s.ActivateAP)

	s.Activate()
	assert.False(t, s.IsAvailable())
	assert.Equal(t, 2000, s.Remaining())

	s.Update(1500)
	assert.False(t, s.IsAvailable())
	s.Update(1500)
	assert.True(t, s.IsAvailable())
	assert.Equal(t, 0, s.Remaining())
}

func TestState_SetRemainingClamps(t *testing.T) {
	s := ability.NewState(fireball(), 1000)
	s.SetRemaining(-5)
	assert.True(t, s.IsAvailable())
	s.SetRemaining(700)
	assert.Equal(t, 700, s.Remaining())
}

func TestAbility_Validate(t *testing.T) {
	assert.NoError(t, fireball().Validate())
	bad := &ability.Ability{ID: "x", Active: &ability.Active{AP: -1}}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "active.ap")
}

func TestNewCallback_UniqueTokens(t *testing.T) {
	a := ability.NewCallback(entity.Handle(3), "fireball")
	b := ability.NewCallback(entity.Handle(3), "fireball")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, entity.Handle(3), a.Parent)
}

func TestLoadDirectory_ReadsScripts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fireball.yaml"), []byte(`
id: fireball
name: Fireball
active:
  script: fireball.lua
  ap: 3
  cooldown: 2
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fireball.lua"), []byte("function on_activate(parent, ability) end\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tough.yaml"), []byte("id: tough\nname: Tough\n"), 0644))

	reg, err := ability.LoadDirectory(dir)
	require.NoError(t, err)
	fb, ok := reg.Get("fireball")
	require.True(t, ok)
	assert.Contains(t, fb.Active.Body, "on_activate")
	tough, ok := reg.Get("tough")
	require.True(t, ok)
	assert.False(t, tough.IsActive())
	assert.Equal(t, []string{"fireball"}, reg.UsingScript("fireball.lua"))

	require.NoError(t, reg.SetScript("fireball", "-- reloaded"))
	assert.Equal(t, "-- reloaded", fb.Active.Body)
	assert.Error(t, reg.SetScript("tough", "x"))
}

func TestLoadDirectory_MissingScriptFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("id: a\nname: A\nactive:\n  script: gone.lua\n"), 0644))
	_, err := ability.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("id: a\nname: A\nmana: 4\n"), 0644))
	_, err := ability.LoadDirectory(dir)
	assert.Error(t, err)
}
