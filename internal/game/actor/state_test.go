package actor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tactica/internal/game/ability"
	"github.com/cory-johannsen/tactica/internal/game/actor"
	"github.com/cory-johannsen/tactica/internal/game/attribute"
	"github.com/cory-johannsen/tactica/internal/game/effect"
	"github.com/cory-johannsen/tactica/internal/game/item"
	"github.com/cory-johannsen/tactica/internal/game/rules"
	"github.com/cory-johannsen/tactica/internal/game/stats"
)

func testRules() *rules.Rules {
	return &rules.Rules{
		BaseAP: 6, AttackAP: 2, MovementAP: 1,
		GrazePercentile: 30, HitPercentile: 60, CritPercentile: 90,
		GrazeDamageMultiplier: 0.5, HitDamageMultiplier: 1, CritDamageMultiplier: 1.5,
		DualWieldDamageMultiplier: 0.75,
		BaseAttribute:             10,
		BaseMaxHP:                 20,
		RoundTimeMillis:           1000,
		XPTable:                   []int{100, 300},
	}
}

var (
	human = &actor.Race{ID: "human", Size: "1by1", BaseStats: stats.Bonuses{
		Attack: &stats.AttackDef{Damage: []stats.Damage{{Min: 1, Max: 2, Kind: stats.Crushing}}, Distance: 1.5},
	}}
	fighter = &actor.Class{ID: "fighter", BonusesPerLevel: stats.Bonuses{Accuracy: 5, HitPoints: 5}}
	power   = &ability.Ability{ID: "power", Name: "Power", Active: &ability.Active{AP: 3, Cooldown: 2}}
	rally   = &ability.Ability{ID: "rally", Name: "Rally", Active: &ability.Active{AP: 1, Cooldown: 1}}
	tough   = &ability.Ability{ID: "tough", Name: "Tough"}
)

func newActor() *actor.Actor {
	return &actor.Actor{
		ID: "hero", Name: "Hero", Race: human, Faction: actor.Friendly,
		Levels:     []actor.ClassLevel{{Class: fighter, Level: 1}},
		Attributes: attribute.NewSet(10),
		Abilities:  []*ability.Ability{power, tough},
	}
}

func TestNewState_FullHPAndActiveAbilityStatesOnly(t *testing.T) {
	s := actor.NewState(newActor(), testRules())
	assert.Equal(t, 25, s.Stats.MaxHP)
	assert.Equal(t, 25, s.HP())
	assert.Equal(t, 0, s.AP())
	assert.Equal(t, []string{"power"}, s.AbilityIDs())
}

func TestCanActivate_InsufficientAPDoesNotMutate(t *testing.T) {
	s := actor.NewState(newActor(), testRules())
	s.InitTurn()
	s.RemoveAP(4)
	require.Equal(t, 2, s.AP())

	assert.False(t, s.CanActivate("power"))
	st, ok := s.AbilityState("power")
	require.True(t, ok)
	assert.True(t, st.IsAvailable())
	assert.Equal(t, 2, s.AP())
	assert.False(t, s.CanActivate("tough"), "passive abilities have no state")
	assert.False(t, s.CanActivate("missing"))
}

func TestActivateAndCooldownTick(t *testing.T) {
	s := actor.NewState(newActor(), testRules())
	s.InitTurn()
	require.True(t, s.CanActivate("power"))
	s.ActivateAbilityState("power")
	assert.False(t, s.CanActivate("power"))
	s.Update(2000)
	assert.True(t, s.CanActivate("power"))
}

func TestEffects_AddAndExpireRecompute(t *testing.T) {
	s := actor.NewState(newActor(), testRules())
	base := s.Stats.Accuracy
	def := &effect.Def{ID: "bless", Name: "Bless", DurationRounds: 1, Bonuses: stats.Bonuses{Accuracy: 10}}

	notified := 0
	s.Listeners.Add("test", func(*actor.State) { notified++ })
	s.AddEffect(effect.New(def, 1000))
	assert.Equal(t, base+10, s.Stats.Accuracy)
	assert.Equal(t, 1, notified)

	removed := s.Update(400)
	assert.Empty(t, removed)
	assert.Equal(t, 1, notified, "no recompute without an effect set change")

	removed = s.Update(600)
	require.Len(t, removed, 1)
	assert.Equal(t, base, s.Stats.Accuracy)
	assert.Equal(t, 2, notified)
}

func TestLevelUp_PreservesExistingCooldowns(t *testing.T) {
	s := actor.NewState(newActor(), testRules())
	s.ActivateAbilityState("power")
	s.RemoveHP(10)

	next := s.Actor.WithLevelUp(fighter, []*ability.Ability{rally, power})
	s.LevelUp(next)

	st, ok := s.AbilityState("power")
	require.True(t, ok)
	assert.Equal(t, 2000, st.Remaining(), "cooldown in progress survives level-up")
	rs, ok := s.AbilityState("rally")
	require.True(t, ok)
	assert.True(t, rs.IsAvailable())
	assert.Equal(t, 2, s.Actor.LevelOf("fighter"))
	assert.Equal(t, 30, s.HP())
	assert.Len(t, s.Actor.Abilities, 3, "already known abilities are not duplicated")
}

func TestXPAndHasLevelUp(t *testing.T) {
	s := actor.NewState(newActor(), testRules())
	s.AddXP(99)
	assert.False(t, s.HasLevelUp())
	s.AddXP(1)
	assert.True(t, s.HasLevelUp())
}

func TestTurnsAndDamage(t *testing.T) {
	s := actor.NewState(newActor(), testRules())
	s.InitTurn()
	assert.Equal(t, 6, s.AP())
	assert.True(t, s.CanAttack(1))
	assert.False(t, s.CanAttack(2), "out of reach")
	s.EndTurn()
	assert.Equal(t, 0, s.AP())
	assert.False(t, s.CanAttack(1))

	s.RemoveHP(1000)
	assert.Equal(t, 0, s.HP())
	assert.True(t, s.IsDead())

	s.RestoreHP()
	assert.Equal(t, 25, s.HP())
}

func TestEquipRecomputesAttacks(t *testing.T) {
	s := actor.NewState(newActor(), testRules())
	sword := item.NewInstance(&item.Def{ID: "sword", Name: "Sword", Equippable: &item.Equippable{
		Slot: item.SlotMainHand,
		Bonuses: stats.Bonuses{Attack: &stats.AttackDef{
			Damage: []stats.Damage{{Min: 4, Max: 8, Kind: stats.Slashing}}, Distance: 1.5,
		}},
	}}, 1)
	dagger := item.NewInstance(&item.Def{ID: "dagger", Name: "Dagger", Equippable: &item.Equippable{
		Slot: item.SlotOffHand,
		Bonuses: stats.Bonuses{Attack: &stats.AttackDef{
			Damage: []stats.Damage{{Min: 1, Max: 4, Kind: stats.Piercing}}, Distance: 1.5,
		}},
	}}, 1)
	s.TakeAll([]*item.Instance{sword, dagger})
	require.NoError(t, s.Equip(sword.ID))
	assert.Equal(t, stats.Slashing, s.Stats.Attacks[0].Damage[0].Kind)
	require.NoError(t, s.Equip(dagger.ID))
	assert.Len(t, s.Stats.Attacks, 2)
	assert.Equal(t, 0.75, s.Stats.DamageMultiplier)

	assert.True(t, s.Unequip(item.SlotOffHand))
	assert.Equal(t, 1.0, s.Stats.DamageMultiplier)
	assert.Error(t, s.Equip(sword.ID), "already equipped, not carried")
}

func TestSnapshotRestore(t *testing.T) {
	r := testRules()
	def := &effect.Def{ID: "bless", Name: "Bless", DurationRounds: 3, Bonuses: stats.Bonuses{Accuracy: 10}}
	s := actor.NewState(newActor(), r)
	s.ActivateAbilityState("power")
	s.Update(500)
	e := effect.New(def, 3000)
	s.AddEffect(e)
	s.Update(1000)
	s.RemoveHP(5)
	s.AddXP(40)

	p := s.Snapshot()
	assert.Equal(t, map[string]int{"power": 500}, p.Cooldowns)
	require.Len(t, p.Effects, 1)

	fresh := actor.NewState(newActor(), r)
	skipped := fresh.Restore(p, func(id string) (*effect.Def, bool) {
		if id == def.ID {
			return def, true
		}
		return nil, false
	})
	assert.Empty(t, skipped)
	assert.Equal(t, s.HP(), fresh.HP())
	assert.Equal(t, 40, fresh.XP())
	assert.Equal(t, s.Stats, fresh.Stats)
	st, _ := fresh.AbilityState("power")
	assert.Equal(t, 500, st.Remaining())
	assert.Equal(t, 2000, fresh.Effects()[0].Remaining())
}

func TestLoad_RacesAndClasses(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "human.yaml"), []byte(`
id: human
name: Human
size: 1by1
base_stats:
  attributes: {str: 1}
  attack:
    damage: [{min: 1, max: 3, kind: crushing}]
    distance: 1.5
`), 0644))
	races, err := actor.Load[actor.Race](dir, func(r *actor.Race) string { return r.ID })
	require.NoError(t, err)
	assert.Equal(t, []string{"human"}, actor.SortedKeys(races))
	assert.Equal(t, 1, races["human"].BaseStats.Attributes[attribute.Strength])

	bad := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bad, "c.yaml"), []byte("id: c\nabilities: [{level: 0, ability: x}]\n"), 0644))
	_, err = actor.Load[actor.Class](bad, func(c *actor.Class) string { return c.ID })
	assert.Error(t, err)
}

func TestDef_Validate(t *testing.T) {
	d := &actor.Def{ID: "g", Name: "Goblin", Race: "goblin", Faction: "evil", Reward: &actor.RewardDef{LootChance: 2}}
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "faction")
	assert.Contains(t, err.Error(), "class level")
	assert.Contains(t, err.Error(), "loot_chance")
}
