// Package combat resolves attacks between entities in an area: hit tiers,
// damage, and death handling with experience and loot drops.
package combat

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/game/area"
	"github.com/cory-johannsen/tactica/internal/game/dice"
	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
	"github.com/cory-johannsen/tactica/internal/game/item"
	"github.com/cory-johannsen/tactica/internal/game/rules"
	"github.com/cory-johannsen/tactica/internal/game/stats"
)

// Catalog is the module data death handling reads.
type Catalog interface {
	LootTable(id string) (*item.LootTable, bool)
	Items() *item.Registry
	Prop(id string) (*area.PropDef, bool)
}

// AttackResult is the outcome of one attack in an actor's attack list.
type AttackResult struct {
	Kind   rules.HitKind
	Roll   int
	Damage int
	Hits   []stats.Hit
}

// Outcome is the result of one Attack call.
type Outcome struct {
	Attacker entity.Handle
	Target   entity.Handle
	Attacks  []AttackResult
	// Damage is the total removed from the target.
	Damage int
	Killed bool
	// XP is the experience awarded to the attacker.
	XP int
	// Loot is the prop spawned by the kill, if any.
	Loot *area.Prop
}

// Kind returns the best tier among the attacks, or Miss.
func (o Outcome) Kind() rules.HitKind {
	best := rules.Miss
	for _, a := range o.Attacks {
		if a.Kind > best {
			best = a.Kind
		}
	}
	return best
}

// String formats the outcome as "Hit: 7, Miss".
func (o Outcome) String() string {
	if len(o.Attacks) == 0 {
		return rules.Miss.String()
	}
	parts := make([]string, len(o.Attacks))
	for i, a := range o.Attacks {
		if a.Kind == rules.Miss {
			parts[i] = a.Kind.String()
			continue
		}
		parts[i] = fmt.Sprintf("%s: %d", a.Kind, a.Damage)
	}
	return strings.Join(parts, ", ")
}

// Resolver resolves attacks against one set of rules and module data.
type Resolver struct {
	rules   *rules.Rules
	roller  *dice.Roller
	catalog Catalog
	logger  *zap.Logger
}

// NewResolver creates a Resolver.
//
// Precondition: all arguments must be non-nil.
func NewResolver(r *rules.Rules, roller *dice.Roller, catalog Catalog, logger *zap.Logger) *Resolver {
	return &Resolver{rules: r, roller: roller, catalog: catalog, logger: logger}
}

// Attack resolves every attack in the attacker's stat list against target.
//
// Entities are borrowed one at a time: the target while damage is applied,
// then the attacker while experience is awarded. A stale handle, a target
// already at zero hit points, or a borrow conflict yields a zero-effect Miss
// outcome rather than an error.
//
// Postcondition: Outcome.Damage equals the hit points removed from target.
func (r *Resolver) Attack(a *area.Area, attacker, target entity.Handle) Outcome {
	out := Outcome{Attacker: attacker, Target: target}
	src, ok := a.Get(attacker)
	if !ok {
		r.logger.Debug("attack from stale handle", zap.Stringer("attacker", attacker))
		return out
	}
	dst, ok := a.Get(target)
	if !ok || dst.Actor.IsDead() {
		r.logger.Debug("attack against missing or dead target", zap.Stringer("target", target))
		return out
	}
	attacks := src.Actor.Stats.Attacks
	accuracy := src.Actor.Stats.Accuracy
	location := dst.Location

	err := a.With(target, func(e *area.Entity) error {
		defense := e.Actor.Stats.Defense
		for _, atk := range attacks {
			kind, roll := r.rules.AttackRoll(r.roller, accuracy, defense)
			res := AttackResult{Kind: kind, Roll: roll}
			if kind != rules.Miss {
				res.Damage, res.Hits = atk.RollDamage(r.roller, e.Actor.Stats.Armor, r.rules.DamageMultiplier(kind))
				e.Actor.RemoveHP(res.Damage)
				out.Damage += res.Damage
			}
			out.Attacks = append(out.Attacks, res)
		}
		out.Killed = e.Actor.IsDead()
		return nil
	})
	if err != nil {
		r.logger.Warn("attack aborted", zap.Stringer("target", target), zap.Error(err))
		return Outcome{Attacker: attacker, Target: target}
	}

	r.logger.Info("attack resolved",
		zap.String("attacker", src.Actor.Actor.ID),
		zap.String("target", dst.Actor.Actor.ID),
		zap.Stringer("outcome", out),
		zap.Bool("killed", out.Killed),
	)
	if out.Killed {
		r.handleDeath(a, &out, dst, location)
	}
	return out
}

// handleDeath awards experience to the attacker, then rolls the loot gate
// and the loot table, spawning the loot drop prop at the target's last
// location when anything dropped.
func (r *Resolver) handleDeath(a *area.Area, out *Outcome, dead *area.Entity, location geometry.Point) {
	reward := dead.Actor.Actor.Reward
	if reward == nil {
		return
	}
	err := a.With(out.Attacker, func(e *area.Entity) error {
		e.Actor.AddXP(reward.XP)
		return nil
	})
	if err != nil {
		r.logger.Warn("awarding xp failed", zap.Stringer("attacker", out.Attacker), zap.Error(err))
	} else {
		out.XP = reward.XP
	}

	if reward.Loot == "" {
		return
	}
	table, ok := r.catalog.LootTable(reward.Loot)
	if !ok {
		r.logger.Warn("unknown loot table", zap.String("loot", reward.Loot))
		return
	}
	prop, ok := r.catalog.Prop(r.rules.LootDropProp)
	if !ok {
		r.logger.Warn("unable to drop loot: loot drop prop does not exist", zap.String("prop", r.rules.LootDropProp))
		return
	}
	if !r.roller.Chance(reward.LootChance) {
		return
	}
	items := item.Instantiate(r.catalog.Items(), table.Generate(r.roller))
	if len(items) == 0 {
		return
	}
	out.Loot = a.AddProp(prop, location, items)
}
