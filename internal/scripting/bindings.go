package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/game/ability"
	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
	"github.com/cory-johannsen/tactica/internal/game/targeter"
)

const (
	entityTypeName   = "entity"
	setTypeName      = "entity_set"
	abilityTypeName  = "ability"
	callbackTypeName = "callback"
	targeterTypeName = "targeter"
	gameTypeName     = "game"
)

type luaEntity struct{ handle entity.Handle }

type luaSet struct {
	parent entity.Handle
	set    entity.Set
}

type luaAbility struct{ ability *ability.Ability }

type luaCallback struct{ cb *ability.Callback }

type luaTargeter struct{ data *targeter.Data }

type luaGame struct{}

// invocation is the per-run binding state: the metatables, the userdata
// cache and the staged mutations.
type invocation struct {
	L       *lua.LState
	engine  *Engine
	world   World
	ability *ability.Ability

	entities map[entity.Handle]*lua.LUserData
	staged   []func()
}

func newInvocation(L *lua.LState, e *Engine, w World, ab *ability.Ability) *invocation {
	inv := &invocation{
		L:        L,
		engine:   e,
		world:    w,
		ability:  ab,
		entities: make(map[entity.Handle]*lua.LUserData),
	}
	inv.register(entityTypeName, inv.entityMethods())
	inv.register(setTypeName, inv.setMethods())
	inv.register(abilityTypeName, inv.abilityMethods())
	inv.register(callbackTypeName, inv.callbackMethods())
	inv.register(targeterTypeName, inv.targeterMethods())
	inv.register(gameTypeName, inv.gameMethods())
	return inv
}

func (inv *invocation) register(name string, methods map[string]lua.LGFunction) {
	mt := inv.L.NewTypeMetatable(name)
	inv.L.SetField(mt, "__index", inv.L.SetFuncs(inv.L.NewTable(), methods))
	inv.L.SetField(mt, "__tostring", inv.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(name))
		return 1
	}))
}

func (inv *invocation) stage(fn func()) { inv.staged = append(inv.staged, fn) }

func (inv *invocation) newUserData(name string, v any) *lua.LUserData {
	ud := inv.L.NewUserData()
	ud.Value = v
	inv.L.SetMetatable(ud, inv.L.GetTypeMetatable(name))
	return ud
}

// entityUD returns the userdata for h; the same handle always yields the same
// userdata so scripts can compare entities with ==.
func (inv *invocation) entityUD(h entity.Handle) *lua.LUserData {
	if ud, ok := inv.entities[h]; ok {
		return ud
	}
	ud := inv.newUserData(entityTypeName, &luaEntity{handle: h})
	inv.entities[h] = ud
	return ud
}

func (inv *invocation) setUD(parent entity.Handle, s entity.Set) *lua.LUserData {
	return inv.newUserData(setTypeName, &luaSet{parent: parent, set: s})
}

func (inv *invocation) abilityUD(ab *ability.Ability) *lua.LUserData {
	return inv.newUserData(abilityTypeName, &luaAbility{ability: ab})
}

func (inv *invocation) gameUD() *lua.LUserData {
	return inv.newUserData(gameTypeName, &luaGame{})
}

// view looks up the entity at argument n, pushing nil and reporting false
// when the handle is stale.
func (inv *invocation) view(L *lua.LState, n int) (EntityView, bool) {
	v, ok := inv.world.View(checkEntity(L, n))
	if !ok {
		L.Push(lua.LNil)
	}
	return v, ok
}

func (inv *invocation) entityMethods() map[string]lua.LGFunction {
	query := func(get func(EntityView) lua.LValue) lua.LGFunction {
		return func(L *lua.LState) int {
			v, ok := inv.view(L, 1)
			if ok {
				L.Push(get(v))
			}
			return 1
		}
	}
	return map[string]lua.LGFunction{
		"id":   query(func(v EntityView) lua.LValue { return lua.LString(v.ID) }),
		"name": query(func(v EntityView) lua.LValue { return lua.LString(v.Name) }),
		"x":    query(func(v EntityView) lua.LValue { return lua.LNumber(v.Location.X) }),
		"y":    query(func(v EntityView) lua.LValue { return lua.LNumber(v.Location.Y) }),
		"hp":   query(func(v EntityView) lua.LValue { return lua.LNumber(v.HP) }),
		"ap":   query(func(v EntityView) lua.LValue { return lua.LNumber(v.AP) }),

		"max_hp":  query(func(v EntityView) lua.LValue { return lua.LNumber(v.MaxHP) }),
		"faction": query(func(v EntityView) lua.LValue { return lua.LString(v.Faction) }),
		"is_valid": func(L *lua.LState) int {
			v, ok := inv.world.View(checkEntity(L, 1))
			L.Push(lua.LBool(ok && !v.Dead))
			return 1
		},
		"can_attack": func(L *lua.LState) int {
			L.Push(lua.LBool(inv.world.CanAttack(checkEntity(L, 1), checkEntity(L, 2))))
			return 1
		},
		"targets": func(L *lua.LState) int {
			h := checkEntity(L, 1)
			L.Push(inv.setUD(h, entity.NewSet(inv.world.Living()...)))
			return 1
		},
		"attack": func(L *lua.LState) int {
			attacker, target := checkEntity(L, 1), checkEntity(L, 2)
			inv.stage(func() { inv.world.Attack(attacker, target) })
			return 0
		},
		"remove_hp": func(L *lua.LState) int {
			h, n := checkEntity(L, 1), checkInt(L, 2)
			if n < 0 {
				L.ArgError(2, "amount must be >= 0")
			}
			inv.stage(func() { inv.world.RemoveHP(h, n) })
			return 0
		},
		"add_effect": func(L *lua.LState) int {
			h, id := checkEntity(L, 1), checkString(L, 2)
			cb := optCallback(L, 3)
			def, ok := inv.world.EffectDef(id)
			if !ok {
				L.ArgError(2, "unknown effect "+id)
			}
			var bound *ability.Callback
			if cb != nil {
				bound = cb.cb
			}
			inv.stage(func() { inv.world.ApplyEffect(h, def, bound) })
			return 0
		},
		"create_targeter": func(L *lua.LState) int {
			h, ab := checkEntity(L, 1), checkAbility(L, 2)
			L.Push(inv.newUserData(targeterTypeName, &luaTargeter{data: targeter.NewData(h, ab.ability.ID)}))
			return 1
		},
	}
}

func (inv *invocation) setMethods() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"len": func(L *lua.LState) int {
			L.Push(lua.LNumber(checkSet(L, 1).set.Len()))
			return 1
		},
		// get is 1-based; slots with no entity yield nil.
		"get": func(L *lua.LState) int {
			s, i := checkSet(L, 1), checkInt(L, 2)
			if i < 1 || i > s.set.Len() || !s.set.Handles[i-1].Valid() {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(inv.entityUD(s.set.Handles[i-1]))
			return 1
		},
		"point": func(L *lua.LState) int {
			s := checkSet(L, 1)
			if s.set.Point == nil {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LNumber(s.set.Point.X))
			L.Push(lua.LNumber(s.set.Point.Y))
			return 2
		},
		"without_self": func(L *lua.LState) int {
			s := checkSet(L, 1)
			L.Push(inv.setUD(s.parent, s.set.Without(s.parent)))
			return 1
		},
		"hostile": func(L *lua.LState) int {
			s := checkSet(L, 1)
			L.Push(inv.setUD(s.parent, inv.filter(s, func(p, v EntityView) bool { return p.Faction != v.Faction })))
			return 1
		},
		"friendly": func(L *lua.LState) int {
			s := checkSet(L, 1)
			L.Push(inv.setUD(s.parent, inv.filter(s, func(p, v EntityView) bool { return p.Faction == v.Faction })))
			return 1
		},
		"attackable": func(L *lua.LState) int {
			s := checkSet(L, 1)
			L.Push(inv.setUD(s.parent, inv.filter(s, func(p, v EntityView) bool {
				return p.Handle != v.Handle && inv.world.CanAttack(p.Handle, v.Handle)
			})))
			return 1
		},
	}
}

// filter keeps the live members of s that keep(parent, member) accepts.
func (inv *invocation) filter(s *luaSet, keep func(parent, member EntityView) bool) entity.Set {
	out := entity.Set{Point: s.set.Point}
	p, ok := inv.world.View(s.parent)
	if !ok {
		return out
	}
	for _, h := range s.set.Present() {
		v, ok := inv.world.View(h)
		if ok && keep(p, v) {
			out.Handles = append(out.Handles, h)
		}
	}
	return out
}

func (inv *invocation) abilityMethods() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"id": func(L *lua.LState) int {
			L.Push(lua.LString(checkAbility(L, 1).ability.ID))
			return 1
		},
		"name": func(L *lua.LState) int {
			L.Push(lua.LString(checkAbility(L, 1).ability.Name))
			return 1
		},
		"duration": func(L *lua.LState) int {
			ab := checkAbility(L, 1).ability
			d := 0
			if ab.IsActive() {
				d = ab.Active.Duration
			}
			L.Push(lua.LNumber(d))
			return 1
		},
		"activate": func(L *lua.LState) int {
			ab, h := checkAbility(L, 1), checkEntity(L, 2)
			inv.stage(func() { inv.world.SpendAbility(h, ab.ability) })
			return 0
		},
		"create_callback": func(L *lua.LState) int {
			ab, h := checkAbility(L, 1), checkEntity(L, 2)
			L.Push(inv.newUserData(callbackTypeName, &luaCallback{cb: ability.NewCallback(h, ab.ability.ID)}))
			return 1
		},
	}
}

func (inv *invocation) callbackMethods() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"set_on_removed": func(L *lua.LState) int {
			cb := checkUserData[*luaCallback](L, 1, callbackTypeName)
			cb.cb.OnRemoved = checkString(L, 2)
			return 0
		},
	}
}

func checkTargeter(L *lua.LState) *luaTargeter {
	return checkUserData[*luaTargeter](L, 1, targeterTypeName)
}

func (inv *invocation) targeterMethods() map[string]lua.LGFunction {
	sizes := inv.world.Sizes()
	setShape := func(L *lua.LState, t *luaTargeter, s targeter.Shape) {
		if err := t.data.SetShape(s, sizes); err != nil {
			inv.engine.logger.Warn("invalid targeter shape", zap.String("ability", inv.ability.ID), zap.Error(err))
			L.RaiseError("%s", err.Error())
		}
	}
	return map[string]lua.LGFunction{
		"add_selectable": func(L *lua.LState) int {
			t := checkTargeter(L)
			t.data.AddSelectable(checkEntity(L, 2))
			return 0
		},
		"add_effectable": func(L *lua.LState) int {
			t := checkTargeter(L)
			t.data.AddEffectable(checkEntity(L, 2))
			return 0
		},
		"add_all_selectable": func(L *lua.LState) int {
			t := checkTargeter(L)
			t.data.AddSelectable(checkSet(L, 2).set.Present()...)
			return 0
		},
		"add_all_effectable": func(L *lua.LState) int {
			t := checkTargeter(L)
			t.data.AddEffectable(checkSet(L, 2).set.Present()...)
			return 0
		},
		"set_show_mouseover": func(L *lua.LState) int {
			t := checkTargeter(L)
			t.data.ShowMouseover = checkBool(L, 2)
			return 0
		},
		"set_free_select": func(L *lua.LState) int {
			t := checkTargeter(L)
			t.data.SetFreeSelect(checkNumber(L, 2))
			return 0
		},
		"set_free_select_must_be_passable": func(L *lua.LState) int {
			t := checkTargeter(L)
			if err := t.data.SetFreeSelectMustBePassable(checkString(L, 2), sizes); err != nil {
				inv.engine.logger.Warn("invalid free select size", zap.String("ability", inv.ability.ID), zap.Error(err))
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
		"set_shape_circle": func(L *lua.LState) int {
			t := checkTargeter(L)
			setShape(L, t, targeter.CircleShape(checkNumber(L, 2)))
			return 0
		},
		"set_shape_line": func(L *lua.LState) int {
			t := checkTargeter(L)
			size := checkString(L, 2)
			origin := geometry.Point{X: checkInt(L, 3), Y: checkInt(L, 4)}
			setShape(L, t, targeter.LineShape(size, origin))
			return 0
		},
		"set_shape_object_size": func(L *lua.LState) int {
			t := checkTargeter(L)
			setShape(L, t, targeter.ObjectSizeShape(checkString(L, 2)))
			return 0
		},
		// set_shape_cone floors the origin onto the tile grid.
		"set_shape_cone": func(L *lua.LState) int {
			t := checkTargeter(L)
			origin := geometry.Point{X: int(math.Floor(checkNumber(L, 2))), Y: int(math.Floor(checkNumber(L, 3)))}
			setShape(L, t, targeter.ConeShape(origin, checkNumber(L, 4), checkNumber(L, 5)))
			return 0
		},
		"activate": func(L *lua.LState) int {
			data := checkTargeter(L).data.Clone()
			inv.stage(func() {
				if err := inv.world.SetTargeter(data); err != nil {
					inv.engine.logger.Warn("targeter not installed",
						zap.String("ability", data.AbilityID),
						zap.Error(err),
					)
				}
			})
			return 0
		},
	}
}

func (inv *invocation) gameMethods() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			checkUserData[*luaGame](L, 1, gameTypeName)
			inv.engine.logger.Info(checkString(L, 2),
				zap.String("source", "lua"),
				zap.String("ability", inv.ability.ID),
			)
			return 0
		},
		"anim_base_time": func(L *lua.LState) int {
			checkUserData[*luaGame](L, 1, gameTypeName)
			L.Push(lua.LNumber(float64(inv.engine.opts.AnimBaseTimeMillis) / 1000))
			return 1
		},
		"atan2": func(L *lua.LState) int {
			checkUserData[*luaGame](L, 1, gameTypeName)
			x, y := checkNumber(L, 2), checkNumber(L, 3)
			L.Push(lua.LNumber(math.Atan2(y, x)))
			return 1
		},
		"is_passable": func(L *lua.LState) int {
			checkUserData[*luaGame](L, 1, gameTypeName)
			h := checkEntity(L, 2)
			x, y := checkInt(L, 3), checkInt(L, 4)
			L.Push(lua.LBool(inv.world.IsPassable(h, x, y)))
			return 1
		},
	}
}
