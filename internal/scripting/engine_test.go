package scripting_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/tactica/internal/game/ability"
	"github.com/cory-johannsen/tactica/internal/game/actor"
	"github.com/cory-johannsen/tactica/internal/game/effect"
	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
	"github.com/cory-johannsen/tactica/internal/game/targeter"
	"github.com/cory-johannsen/tactica/internal/scripting"
)

// fakeWorld records every mutation applied to it as a string.
type fakeWorld struct {
	views   map[entity.Handle]scripting.EntityView
	effects map[string]*effect.Def
	sizes   *geometry.Sizes
	walls   map[geometry.Point]bool

	calls     []string
	callbacks []*ability.Callback
	targeter  *targeter.Data
}

func newWorld(t *testing.T) *fakeWorld {
	sizes := geometry.NewSizes()
	require.NoError(t, sizes.Register(&geometry.ObjectSize{ID: "1by1", Width: 1, Height: 1}))
	return &fakeWorld{
		views: map[entity.Handle]scripting.EntityView{
			0: {Handle: 0, ID: "hero", Name: "Hero", Faction: actor.Friendly, Location: geometry.Point{X: 1, Y: 1}, HP: 20, MaxHP: 20, AP: 6},
			1: {Handle: 1, ID: "goblin", Name: "Goblin", Faction: actor.Hostile, Location: geometry.Point{X: 2, Y: 1}, HP: 8, MaxHP: 8},
			2: {Handle: 2, ID: "ally", Name: "Ally", Faction: actor.Friendly, Location: geometry.Point{X: 5, Y: 5}, HP: 10, MaxHP: 10},
		},
		effects: map[string]*effect.Def{
			"bless": {ID: "bless", Name: "Bless", DurationRounds: 2},
		},
		sizes: sizes,
		walls: map[geometry.Point]bool{{X: 3, Y: 3}: true},
	}
}

func (w *fakeWorld) View(h entity.Handle) (scripting.EntityView, bool) {
	v, ok := w.views[h]
	return v, ok
}

func (w *fakeWorld) Living() []entity.Handle {
	var out []entity.Handle
	for h := entity.Handle(0); int(h) < 10; h++ {
		if v, ok := w.views[h]; ok && !v.Dead {
			out = append(out, h)
		}
	}
	return out
}

func (w *fakeWorld) IsPassable(_ entity.Handle, x, y int) bool {
	return !w.walls[geometry.Point{X: x, Y: y}]
}

func (w *fakeWorld) CanAttack(attacker, target entity.Handle) bool {
	a, ok1 := w.views[attacker]
	b, ok2 := w.views[target]
	return ok1 && ok2 && geometry.Dist(a.Location, b.Location) < 1.5
}

func (w *fakeWorld) Sizes() *geometry.Sizes { return w.sizes }

func (w *fakeWorld) EffectDef(id string) (*effect.Def, bool) {
	d, ok := w.effects[id]
	return d, ok
}

func (w *fakeWorld) Attack(attacker, target entity.Handle) {
	w.calls = append(w.calls, fmt.Sprintf("attack %s %s", attacker, target))
}

func (w *fakeWorld) ApplyEffect(target entity.Handle, def *effect.Def, cb *ability.Callback) {
	w.calls = append(w.calls, fmt.Sprintf("effect %s %s", target, def.ID))
	if cb != nil {
		w.callbacks = append(w.callbacks, cb)
	}
}

func (w *fakeWorld) RemoveHP(target entity.Handle, n int) {
	w.calls = append(w.calls, fmt.Sprintf("remove_hp %s %d", target, n))
}

func (w *fakeWorld) SpendAbility(target entity.Handle, a *ability.Ability) {
	w.calls = append(w.calls, fmt.Sprintf("activate %s %s", target, a.ID))
}

func (w *fakeWorld) SetTargeter(data *targeter.Data) error {
	if w.targeter != nil {
		return errors.New("targeter already installed")
	}
	w.targeter = data
	w.calls = append(w.calls, "targeter "+data.AbilityID)
	return nil
}

func newEngine() (*scripting.Engine, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return scripting.NewEngine(scripting.Options{AnimBaseTimeMillis: 250}, zap.New(core)), logs
}

func scripted(id, body string) *ability.Ability {
	return &ability.Ability{ID: id, Name: id, Active: &ability.Active{Script: id + ".lua", AP: 2, Duration: 3, Body: body}}
}

func TestRun_MissingScriptIsError(t *testing.T) {
	e, _ := newEngine()
	w := newWorld(t)

	err := e.Run(w, &ability.Ability{ID: "passive", Name: "Passive"}, scripting.OnActivate, 0, entity.NewSet())
	var se *scripting.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "passive", se.Ability)
	assert.Equal(t, scripting.OnActivate, se.Entry)
	assert.ErrorIs(t, err, scripting.ErrNoScript)

	err = e.Run(w, scripted("empty", ""), scripting.OnActivate, 0, entity.NewSet())
	assert.ErrorIs(t, err, scripting.ErrNoScript)
}

func TestRun_StaleParentIsError(t *testing.T) {
	e, _ := newEngine()
	err := e.Run(newWorld(t), scripted("a", `function on_activate() end`), scripting.OnActivate, 9, entity.NewSet())
	assert.ErrorIs(t, err, scripting.ErrParentGone)
}

func TestRun_MissingEntryPointIsError(t *testing.T) {
	e, _ := newEngine()
	err := e.Run(newWorld(t), scripted("a", `function on_activate() end`), scripting.OnTargetSelect, 0, entity.NewSet())
	assert.ErrorIs(t, err, scripting.ErrNoEntry)
}

func TestRun_SyntaxErrorIsError(t *testing.T) {
	e, _ := newEngine()
	err := e.Run(newWorld(t), scripted("a", `function on_activate( end`), scripting.OnActivate, 0, entity.NewSet())
	var se *scripting.Error
	assert.ErrorAs(t, err, &se)
}

func TestRun_RuntimeErrorMutatesNothing(t *testing.T) {
	e, _ := newEngine()
	w := newWorld(t)
	err := e.Run(w, scripted("a", `
		function on_activate(parent, ability, targets)
			ability:activate(parent)
			parent:attack(targets:get(1))
			error("boom")
		end
	`), scripting.OnActivate, 0, entity.NewSet(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Empty(t, w.calls, "staged mutations are discarded")
}

func TestRun_TypeMismatchIsRejectedNotCoerced(t *testing.T) {
	cases := map[string]string{
		"string for number":     `parent:remove_hp("5")`,
		"fraction for integer":  `parent:remove_hp(1.5)`,
		"number for entity":     `parent:attack(1)`,
		"number for string":     `game:log(42)`,
		"ability for entity":    `ability:activate(ability)`,
		"string for boolean":    `parent:create_targeter(ability):set_show_mouseover("yes")`,
		"number for size":       `parent:create_targeter(ability):set_shape_object_size(1)`,
		"unknown effect":        `parent:add_effect("curse")`,
		"negative damage":       `parent:remove_hp(-1)`,
		"entity for callback":   `parent:add_effect("bless", parent)`,
		"missing line origin":   `parent:create_targeter(ability):set_shape_line("1by1", 1)`,
		"string for cone angle": `parent:create_targeter(ability):set_shape_cone(0, 0, 3, "wide")`,
	}
	for name, call := range cases {
		t.Run(name, func(t *testing.T) {
			e, _ := newEngine()
			w := newWorld(t)
			err := e.Run(w, scripted("a", fmt.Sprintf(`
				function on_activate(parent, ability, targets)
					parent:remove_hp(1)
					%s
				end
			`, call)), scripting.OnActivate, 0, entity.NewSet())
			require.Error(t, err)
			assert.Empty(t, w.calls)
		})
	}
}

func TestRun_UnknownObjectSizeAbortsActivation(t *testing.T) {
	e, logs := newEngine()
	w := newWorld(t)
	err := e.Run(w, scripted("blast", `
		function on_activate(parent, ability, targets)
			local t = parent:create_targeter(ability)
			t:set_shape_object_size("huge")
			t:activate()
		end
	`), scripting.OnActivate, 0, entity.NewSet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), targeter.ErrUnknownObjectSize.Error())
	assert.Nil(t, w.targeter)
	assert.Equal(t, 1, logs.FilterMessage("invalid targeter shape").Len())
}

func TestRun_MutationsAppliedInOrderAfterSuccess(t *testing.T) {
	e, logs := newEngine()
	w := newWorld(t)
	err := e.Run(w, scripted("strike", `
		function on_target_select(parent, ability, targets)
			ability:activate(parent)
			local target = targets:get(1)
			parent:attack(target)
			target:add_effect("bless")
			target:remove_hp(2)
			game:log(parent:name() .. " strikes " .. target:name())
		end
	`), scripting.OnTargetSelect, 0, entity.NewSet(1).WithPoint(geometry.Point{X: 2, Y: 1}))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"activate 0 strike",
		"attack 0 1",
		"effect 1 bless",
		"remove_hp 1 2",
	}, w.calls)

	entries := logs.FilterMessage("Hero strikes Goblin").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "lua", entries[0].ContextMap()["source"])
}

func TestRun_QueriesAndHostAPI(t *testing.T) {
	e, _ := newEngine()
	w := newWorld(t)
	err := e.Run(w, scripted("probe", `
		function on_activate(parent, ability, targets)
			assert(parent:id() == "hero")
			assert(parent:x() == 1 and parent:y() == 1)
			assert(parent:hp() == 20 and parent:max_hp() == 20 and parent:ap() == 6)
			assert(parent:faction() == "friendly")
			assert(parent:is_valid())
			assert(ability:id() == "probe" and ability:name() == "probe")
			assert(ability:duration() == 3)
			assert(game:anim_base_time() == 0.25)
			assert(math.abs(game:atan2(0, 1) - math.pi / 2) < 1e-9)
			assert(game:is_passable(parent, 2, 2))
			assert(not game:is_passable(parent, 3, 3))

			local all = parent:targets()
			assert(all:len() == 3)
			assert(all:without_self():len() == 2)
			assert(all:hostile():len() == 1)
			assert(all:hostile():get(1):id() == "goblin")
			assert(all:friendly():len() == 2)
			assert(all:attackable():len() == 1)
			assert(parent:can_attack(all:get(2)))
			assert(all:get(2) == all:hostile():get(1), "same handle, same userdata")
			assert(all:get(0) == nil and all:get(4) == nil)
			assert(all:point() == nil)
			assert(targets:len() == 0)
		end
	`), scripting.OnActivate, 0, entity.NewSet())
	require.NoError(t, err)
	assert.Empty(t, w.calls)
}

func TestRun_TargetsCarryPointAndEmptySlots(t *testing.T) {
	e, _ := newEngine()
	w := newWorld(t)
	set := entity.NewSet(entity.None, 1).WithPoint(geometry.Point{X: 4, Y: 2})
	err := e.Run(w, scripted("probe", `
		function on_target_select(parent, ability, targets)
			assert(targets:len() == 2)
			assert(targets:get(1) == nil)
			assert(targets:get(2):id() == "goblin")
			local x, y = targets:point()
			assert(x == 4 and y == 2)
		end
	`), scripting.OnTargetSelect, 0, set)
	require.NoError(t, err)
}

func TestRun_StaleEntityQueriesReturnNil(t *testing.T) {
	e, _ := newEngine()
	w := newWorld(t)
	dead := w.views[1]
	dead.Dead = true
	w.views[1] = dead
	err := e.Run(w, scripted("probe", `
		function on_target_select(parent, ability, targets)
			local gone = targets:get(1)
			assert(gone:name() == nil)
			assert(not gone:is_valid())
			local dead = targets:get(2)
			assert(dead:name() == "Goblin")
			assert(not dead:is_valid())
			gone:remove_hp(3)
		end
	`), scripting.OnTargetSelect, 0, entity.NewSet(7, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"remove_hp 7 3"}, w.calls, "stale handles reach the world, which ignores them")
}

func TestRun_TargeterBuiltAndInstalled(t *testing.T) {
	e, _ := newEngine()
	w := newWorld(t)
	err := e.Run(w, scripted("fireball", `
		function on_activate(parent, ability, targets)
			local t = parent:create_targeter(ability)
			local all = parent:targets():without_self()
			t:add_all_selectable(all)
			t:add_all_effectable(all)
			t:add_effectable(parent)
			t:set_shape_circle(2.5)
			t:set_free_select(6)
			t:set_free_select_must_be_passable("1by1")
			t:set_show_mouseover(false)
			t:activate()
			-- changes after activate do not reach the installed targeter
			t:add_selectable(parent)
		end
	`), scripting.OnActivate, 0, entity.NewSet())
	require.NoError(t, err)
	require.NotNil(t, w.targeter)
	d := w.targeter
	assert.Equal(t, "fireball", d.AbilityID)
	assert.Equal(t, entity.Handle(0), d.Parent)
	assert.Equal(t, []entity.Handle{1, 2}, d.Selectable)
	assert.Equal(t, []entity.Handle{1, 2, 0}, d.Effectable)
	assert.Equal(t, targeter.CircleShape(2.5), d.Shape)
	require.NotNil(t, d.FreeSelect)
	assert.Equal(t, 6.0, *d.FreeSelect)
	assert.Equal(t, "1by1", d.FreeSelectMustBePassable)
	assert.False(t, d.ShowMouseover)
}

func TestRun_ConeOriginIsFloored(t *testing.T) {
	e, _ := newEngine()
	w := newWorld(t)
	err := e.Run(w, scripted("breath", `
		function on_activate(parent, ability, targets)
			local t = parent:create_targeter(ability)
			t:set_shape_cone(1.7, 2.2, 4, math.pi / 3)
			t:activate()
		end
	`), scripting.OnActivate, 0, entity.NewSet())
	require.NoError(t, err)
	require.NotNil(t, w.targeter)
	got := w.targeter.Shape
	assert.Equal(t, targeter.Cone, got.Kind)
	assert.Equal(t, geometry.Point{X: 1, Y: 2}, got.Origin)
	assert.Equal(t, 4.0, got.Radius)
	assert.InDelta(t, math.Pi/3, got.Angle, 1e-9)
}

func TestRun_SecondTargeterIsLoggedNotFatal(t *testing.T) {
	e, logs := newEngine()
	w := newWorld(t)
	w.targeter = targeter.NewData(2, "other")
	err := e.Run(w, scripted("strike", `
		function on_activate(parent, ability, targets)
			parent:create_targeter(ability):activate()
		end
	`), scripting.OnActivate, 0, entity.NewSet())
	require.NoError(t, err)
	assert.Equal(t, "other", w.targeter.AbilityID)
	assert.Equal(t, 1, logs.FilterMessage("targeter not installed").Len())
}

func TestRun_CallbackBoundToEffect(t *testing.T) {
	e, _ := newEngine()
	w := newWorld(t)
	err := e.Run(w, scripted("ward", `
		function on_activate(parent, ability, targets)
			local cb = ability:create_callback(parent)
			cb:set_on_removed("ward_removed")
			parent:add_effect("bless", cb)
		end
	`), scripting.OnActivate, 0, entity.NewSet())
	require.NoError(t, err)
	require.Len(t, w.callbacks, 1)
	cb := w.callbacks[0]
	assert.Equal(t, entity.Handle(0), cb.Parent)
	assert.Equal(t, "ward", cb.AbilityID)
	assert.Equal(t, "ward_removed", cb.OnRemoved)
}

func TestRun_InstructionLimitAbortsRunawayScript(t *testing.T) {
	core, _ := observer.New(zap.DebugLevel)
	e := scripting.NewEngine(scripting.Options{InstructionLimit: 1000}, zap.New(core))
	w := newWorld(t)
	err := e.Run(w, scripted("loop", `
		function on_activate(parent, ability, targets)
			parent:remove_hp(1)
			while true do end
		end
	`), scripting.OnActivate, 0, entity.NewSet())
	assert.ErrorIs(t, err, scripting.ErrInstructionLimit)
	assert.Empty(t, w.calls)
}

func TestRun_InvocationsDoNotShareState(t *testing.T) {
	e, _ := newEngine()
	w := newWorld(t)
	ab := scripted("counter", `
		counter = (counter or 0) + 1
		function on_activate(parent, ability, targets)
			parent:remove_hp(counter)
		end
	`)
	require.NoError(t, e.Run(w, ab, scripting.OnActivate, 0, entity.NewSet()))
	require.NoError(t, e.Run(w, ab, scripting.OnActivate, 0, entity.NewSet()))
	assert.Equal(t, []string{"remove_hp 0 1", "remove_hp 0 1"}, w.calls)
}
