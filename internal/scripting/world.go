package scripting

import (
	"github.com/cory-johannsen/tactica/internal/game/ability"
	"github.com/cory-johannsen/tactica/internal/game/actor"
	"github.com/cory-johannsen/tactica/internal/game/effect"
	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
	"github.com/cory-johannsen/tactica/internal/game/targeter"
)

// EntityView is a read-only snapshot of one entity taken when a script
// queries it.
type EntityView struct {
	Handle   entity.Handle
	ID       string
	Name     string
	Faction  actor.Faction
	Location geometry.Point
	HP       int
	MaxHP    int
	AP       int
	Dead     bool
}

// World is the simulation surface a script runs against.
//
// The query methods are called while the script runs. The mutation methods
// are only called after the entry point returns without error, in the order
// the script issued them; a stale handle passed to a mutation is a no-op.
type World interface {
	View(h entity.Handle) (EntityView, bool)
	// Living returns every live, non-dead entity in handle order.
	Living() []entity.Handle
	IsPassable(h entity.Handle, x, y int) bool
	CanAttack(attacker, target entity.Handle) bool
	Sizes() *geometry.Sizes
	EffectDef(id string) (*effect.Def, bool)

	Attack(attacker, target entity.Handle)
	ApplyEffect(target entity.Handle, def *effect.Def, cb *ability.Callback)
	RemoveHP(target entity.Handle, n int)
	SpendAbility(target entity.Handle, a *ability.Ability)
	SetTargeter(data *targeter.Data) error
}
