package sim_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/tactica/internal/content"
	"github.com/cory-johannsen/tactica/internal/game/actor"
	"github.com/cory-johannsen/tactica/internal/game/area"
	"github.com/cory-johannsen/tactica/internal/game/dice"
	"github.com/cory-johannsen/tactica/internal/game/effect"
	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
	"github.com/cory-johannsen/tactica/internal/game/rules"
	"github.com/cory-johannsen/tactica/internal/game/sim"
	"github.com/cory-johannsen/tactica/internal/game/targeter"
	"github.com/cory-johannsen/tactica/internal/scripting"
)

// repoRoot walks up from the test's working directory to find the module root.
func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	root := wd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			return root
		}
		parent := filepath.Dir(root)
		if parent == root {
			t.Fatalf("could not find repo root from %s", wd)
		}
		root = parent
	}
}

// newSim loads the sample module's arena. Every roll replays rolls; the
// default of 99 makes every percentile 100 and every range roll its maximum.
func newSim(t *testing.T, rolls ...int) (*sim.Simulation, *observer.ObservedLogs) {
	t.Helper()
	m, err := content.Load(filepath.Join(repoRoot(t), "content"))
	require.NoError(t, err)
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	if len(rolls) == 0 {
		rolls = []int{99}
	}
	roller := dice.NewLoggedRoller(dice.NewFixedSource(rolls...), logger)
	s, err := sim.New(m, "arena", scripting.NewEngine(scripting.Options{}, logger), roller, logger)
	require.NoError(t, err)
	return s, logs
}

func find(t *testing.T, s *sim.Simulation, actorID string) entity.Handle {
	t.Helper()
	h, ok := s.Find(actorID)
	require.True(t, ok, "actor %q not placed", actorID)
	return h
}

func view(t *testing.T, s *sim.Simulation, h entity.Handle) scripting.EntityView {
	t.Helper()
	v, ok := s.View(h)
	require.True(t, ok)
	return v
}

func effectIDs(t *testing.T, s *sim.Simulation, h entity.Handle) []string {
	t.Helper()
	e, ok := s.Area().Get(h)
	require.True(t, ok)
	var ids []string
	for _, eff := range e.Actor.Effects() {
		ids = append(ids, eff.DefID)
	}
	return ids
}

func mustEffect(t *testing.T, s *sim.Simulation, id string) *effect.Def {
	t.Helper()
	def, ok := s.EffectDef(id)
	require.True(t, ok)
	return def
}

func actorEffect(id string) actor.SavedEffect {
	return actor.SavedEffect{DefID: id, DurationMillis: 5000}
}

func TestNew_PlacesAuthoredActors(t *testing.T) {
	s, logs := newSim(t)
	assert.Len(t, s.Area().Handles(), 5)

	hero := view(t, s, find(t, s, "hero"))
	assert.Equal(t, "Aldric", hero.Name)
	assert.Equal(t, geometry.Point{X: 2, Y: 2}, hero.Location)
	assert.Equal(t, 6, hero.AP)
	assert.Equal(t, hero.MaxHP, hero.HP)

	ogre, ok := s.Area().Get(find(t, s, "ogre"))
	require.True(t, ok)
	assert.Len(t, ogre.Footprint(), 4)
	assert.Equal(t, 1, logs.FilterMessage("area loaded").Len())
	assert.False(t, s.InEncounter())
}

func TestNew_UnknownAreaIsError(t *testing.T) {
	m, err := content.Load(filepath.Join(repoRoot(t), "content"))
	require.NoError(t, err)
	logger := zap.NewNop()
	_, err = sim.New(m, "nowhere", scripting.NewEngine(scripting.Options{}, logger), dice.NewLoggedRoller(dice.NewFixedSource(0), logger), logger)
	assert.ErrorIs(t, err, sim.ErrUnknownArea)
}

func TestStrike_SelectAndCommit(t *testing.T) {
	s, _ := newSim(t)
	hero := find(t, s, "hero")
	goblin := find(t, s, "goblin")
	before := view(t, s, goblin).HP

	require.NoError(t, s.ActivateAbility(hero, "strike"))
	tg := s.Targeter()
	require.NotNil(t, tg)
	assert.Equal(t, targeter.Active, tg.State())
	assert.Equal(t, []entity.Handle{goblin}, tg.Data().Selectable, "only the adjacent hostile is in reach")

	h, ok := s.MouseMove(3, 2)
	require.True(t, ok)
	assert.Equal(t, goblin, h)

	require.NoError(t, s.Click())
	assert.Nil(t, s.Targeter())

	outcomes := s.DrainOutcomes()
	require.Len(t, outcomes, 1)
	assert.Equal(t, rules.Crit, outcomes[0].Kind())
	assert.Positive(t, outcomes[0].Damage)
	assert.Equal(t, before-outcomes[0].Damage, view(t, s, goblin).HP)
	assert.Empty(t, s.DrainOutcomes())
}

func TestClick_InvalidSelectionKeepsTargeterRunning(t *testing.T) {
	s, _ := newSim(t)
	require.NoError(t, s.ActivateAbility(find(t, s, "hero"), "strike"))

	_, ok := s.MouseMove(6, 6)
	assert.False(t, ok)
	assert.ErrorIs(t, s.Click(), sim.ErrInvalidSelection)
	require.NotNil(t, s.Targeter())
	assert.Equal(t, targeter.Active, s.Targeter().State())
	assert.Empty(t, s.DrainOutcomes())
}

func TestCancelTargeter_RunsNoCallback(t *testing.T) {
	s, _ := newSim(t)
	goblin := find(t, s, "goblin")
	before := view(t, s, goblin).HP
	require.NoError(t, s.ActivateAbility(find(t, s, "hero"), "strike"))
	s.MouseMove(3, 2)

	assert.True(t, s.CancelTargeter())
	assert.Nil(t, s.Targeter())
	assert.ErrorIs(t, s.Click(), sim.ErrNoTargeter)
	assert.Equal(t, before, view(t, s, goblin).HP)
	assert.False(t, s.CancelTargeter(), "nothing left to cancel")
}

func TestActivate_SecondActivationWhileTargeting(t *testing.T) {
	s, _ := newSim(t)
	hero := find(t, s, "hero")
	require.NoError(t, s.ActivateAbility(hero, "strike"))
	assert.ErrorIs(t, s.ActivateAbility(hero, "strike"), area.ErrTargeterActive)
}

func TestActivate_InsufficientAPMutatesNothing(t *testing.T) {
	s, _ := newSim(t)
	hero := find(t, s, "hero")
	require.NoError(t, s.Area().With(hero, func(e *area.Entity) error {
		e.Actor.RemoveAP(4)
		return nil
	}))

	err := s.ActivateAbility(hero, "strike")
	assert.ErrorIs(t, err, sim.ErrCannotActivate)
	assert.Nil(t, s.Targeter())
	assert.Equal(t, 2, view(t, s, hero).AP)

	e, _ := s.Area().Get(hero)
	st, ok := e.Actor.AbilityState("strike")
	require.True(t, ok)
	assert.True(t, st.IsAvailable())
	assert.Zero(t, st.Remaining())
}

func TestActivate_UnknownOrUnownedAbility(t *testing.T) {
	s, _ := newSim(t)
	hero := find(t, s, "hero")
	assert.ErrorIs(t, s.ActivateAbility(hero, "fireball"), sim.ErrUnknownAbility)
	assert.ErrorIs(t, s.ActivateAbility(hero, "nope"), sim.ErrUnknownAbility)
	assert.ErrorIs(t, s.ActivateAbility(entity.Handle(99), "strike"), entity.ErrGone)
}

func TestActivate_ScriptErrorMutatesNothing(t *testing.T) {
	s, logs := newSim(t)
	hero := find(t, s, "hero")
	goblin := find(t, s, "goblin")
	ids := s.ReloadScript(content.ScriptChange{Name: "strike.lua", Body: `
		function on_activate(parent, ability, targets)
			ability:activate(parent)
			parent:attack(parent:targets():hostile():get(1))
			error("broken")
		end
	`})
	require.Equal(t, []string{"strike"}, ids)

	before := view(t, s, goblin).HP
	err := s.ActivateAbility(hero, "strike")
	var se *scripting.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "strike", se.Ability)
	assert.Equal(t, before, view(t, s, goblin).HP)
	assert.Empty(t, s.DrainOutcomes())
	assert.Equal(t, 1, logs.FilterMessage("ability activation failed").Len())
}

func TestFireball_FreeSelectAffectsCircle(t *testing.T) {
	s, logs := newSim(t)
	wizard := find(t, s, "wizard")
	hero := find(t, s, "hero")
	goblin := find(t, s, "goblin")
	heroHP := view(t, s, hero).HP
	goblinHP := view(t, s, goblin).HP

	require.NoError(t, s.ActivateAbility(wizard, "fireball"))
	_, ok := s.MouseMove(3, 3)
	assert.False(t, ok, "free select has no selectable entities")
	assert.ElementsMatch(t, []entity.Handle{hero, goblin}, s.Targeter().Affected())

	require.NoError(t, s.Click())
	assert.Equal(t, heroHP-6, view(t, s, hero).HP)
	assert.Equal(t, goblinHP-6, view(t, s, goblin).HP)
	assert.Equal(t, []string{"burning"}, effectIDs(t, s, hero))
	assert.Equal(t, []string{"burning"}, effectIDs(t, s, goblin))
	assert.Empty(t, effectIDs(t, s, wizard))
	assert.Equal(t, 1, logs.FilterMessage("Maren hurls a fireball at 3,3").Len())

	e, _ := s.Area().Get(wizard)
	st, ok := e.Actor.AbilityState("fireball")
	require.True(t, ok)
	assert.Equal(t, 3*5000, st.Remaining())
	assert.ErrorIs(t, s.ActivateAbility(wizard, "fireball"), sim.ErrCannotActivate)
}

func TestFireball_OutOfRangeOrBlockedIsRejected(t *testing.T) {
	s, _ := newSim(t)
	require.NoError(t, s.ActivateAbility(find(t, s, "wizard"), "fireball"))

	s.MouseMove(4, 3)
	assert.ErrorIs(t, s.Click(), sim.ErrInvalidSelection, "wall tile")
	s.MouseMove(2, 2)
	assert.ErrorIs(t, s.Click(), sim.ErrInvalidSelection, "occupied tile")
	s.MouseMove(10, 1)
	assert.ErrorIs(t, s.Click(), sim.ErrInvalidSelection, "beyond free select range")
	s.MouseMove(6, 5)
	assert.NoError(t, s.Click())
}

func TestWard_CallbackFiresWhenEffectExpires(t *testing.T) {
	s, logs := newSim(t)
	hero := find(t, s, "hero")
	require.NoError(t, s.Area().With(hero, func(e *area.Entity) error {
		e.Actor.AddXP(100)
		return s.Module().LevelUp(e.Actor, "fighter")
	}))
	e, _ := s.Area().Get(hero)
	baseDefense := e.Actor.Stats.Defense

	require.NoError(t, s.ActivateAbility(hero, "ward"))
	assert.Nil(t, s.Targeter())
	assert.Equal(t, []string{"warded"}, effectIDs(t, s, hero))
	assert.Equal(t, baseDefense+15, e.Actor.Stats.Defense)
	assert.Equal(t, 1, logs.FilterMessage("Aldric raises a ward").Len())

	s.Tick(5000)
	assert.Equal(t, []string{"warded"}, effectIDs(t, s, hero))
	assert.Zero(t, logs.FilterMessage("Aldric's ward fades").Len())

	s.Tick(5000)
	assert.Empty(t, effectIDs(t, s, hero))
	assert.Equal(t, baseDefense, e.Actor.Stats.Defense)
	assert.Equal(t, 1, logs.FilterMessage("Aldric's ward fades").Len())

	st, _ := e.Actor.AbilityState("ward")
	assert.Equal(t, 4*5000-10000, st.Remaining())
}

func TestKill_AwardsXPDropsLootAndSweeps(t *testing.T) {
	s, _ := newSim(t)
	hero := find(t, s, "hero")
	goblin := find(t, s, "goblin")

	for i := 0; i < 10 && !view(t, s, goblin).Dead; i++ {
		require.NoError(t, s.ActivateAbility(hero, "strike"))
		s.MouseMove(3, 2)
		require.NoError(t, s.Click())
	}
	require.True(t, view(t, s, goblin).Dead)
	assert.Equal(t, 40, func() int { e, _ := s.Area().Get(hero); return e.Actor.XP() }())

	props := s.Area().PropsAt(geometry.Point{X: 3, Y: 2})
	require.Len(t, props, 1)
	assert.Equal(t, "loot_bag", props[0].Def.ID)
	assert.Positive(t, props[0].NumItems())

	s.Tick(100)
	assert.False(t, s.Area().Live(goblin))
	_, ok := s.View(goblin)
	assert.False(t, ok)
}

func TestEncounter_TurnOrderAndAP(t *testing.T) {
	s, logs := newSim(t)
	require.NoError(t, s.StartEncounter())
	assert.ErrorIs(t, s.StartEncounter(), sim.ErrEncounterActive)
	assert.True(t, s.Area().IsTurnActive())
	assert.Equal(t, 1, s.Round())

	cur, ok := s.Current()
	require.True(t, ok)
	for _, h := range s.Living() {
		want := 0
		if h == cur {
			want = 6
		}
		assert.Equal(t, want, view(t, s, h).AP, "handle %s", h)
	}

	var other entity.Handle
	for _, h := range s.Living() {
		if h != cur {
			other = h
			break
		}
	}
	assert.ErrorIs(t, s.ActivateAbility(other, "strike"), sim.ErrNotYourTurn)

	seen := map[entity.Handle]bool{cur: true}
	for i := 0; i < 4; i++ {
		require.NoError(t, s.EndTurn())
		next, _ := s.Current()
		assert.False(t, seen[next], "each entity acts once per round")
		seen[next] = true
	}
	assert.Equal(t, 1, s.Round())
	require.NoError(t, s.EndTurn())
	assert.Equal(t, 2, s.Round())
	assert.Equal(t, 1, logs.FilterMessage("encounter started").Len())
}

func TestEncounter_AbilitySpendsAP(t *testing.T) {
	s, _ := newSim(t)
	hero := find(t, s, "hero")
	require.NoError(t, s.StartEncounter())
	for i := 0; i < 5; i++ {
		if cur, _ := s.Current(); cur == hero {
			break
		}
		require.NoError(t, s.EndTurn())
	}
	cur, _ := s.Current()
	require.Equal(t, hero, cur)

	require.NoError(t, s.ActivateAbility(hero, "strike"))
	assert.Equal(t, 6, view(t, s, hero).AP, "targeting alone spends nothing")
	s.MouseMove(3, 2)
	require.NoError(t, s.Click())
	assert.Equal(t, 3, view(t, s, hero).AP)

	require.NoError(t, s.ActivateAbility(hero, "strike"))
	s.MouseMove(3, 2)
	require.NoError(t, s.Click())
	assert.Equal(t, 0, view(t, s, hero).AP)
	assert.ErrorIs(t, s.ActivateAbility(hero, "strike"), sim.ErrCannotActivate)
}

func TestSpendAbility_ChargesAPOnlyOnActiveTurn(t *testing.T) {
	s, _ := newSim(t)
	var w scripting.World = s
	wizard := find(t, s, "wizard")
	fireball, ok := s.Module().Abilities.Get("fireball")
	require.True(t, ok)

	w.SpendAbility(wizard, fireball)
	assert.Equal(t, 6, view(t, s, wizard).AP, "no AP outside an encounter")
	e, _ := s.Area().Get(wizard)
	st, ok := e.Actor.AbilityState("fireball")
	require.True(t, ok)
	assert.False(t, st.IsAvailable())

	require.NoError(t, s.StartEncounter())
	for i := 0; i < 5; i++ {
		if cur, _ := s.Current(); cur == wizard {
			break
		}
		require.NoError(t, s.EndTurn())
	}
	cur, _ := s.Current()
	require.Equal(t, wizard, cur)
	w.SpendAbility(wizard, fireball)
	assert.Equal(t, 6-fireball.Active.AP, view(t, s, wizard).AP)
}

func TestEncounter_EndsWhenInitiativeOrderIsGone(t *testing.T) {
	s, logs := newSim(t)
	require.NoError(t, s.StartEncounter())
	order := s.Living()

	_, err := s.AddActor("wizard", geometry.Point{X: 10, Y: 6})
	require.NoError(t, err)
	_, err = s.AddActor("goblin", geometry.Point{X: 1, Y: 1})
	require.NoError(t, err)
	for _, h := range order {
		s.RemoveHP(h, 1000)
	}

	require.NoError(t, s.EndTurn())
	assert.False(t, s.InEncounter())
	assert.Len(t, s.Living(), 2)
	assert.Equal(t, 1, logs.FilterMessage("encounter ended").Len())
}

func TestEncounter_EndsWhenOneFactionRemains(t *testing.T) {
	s, logs := newSim(t)
	require.NoError(t, s.StartEncounter())
	for _, h := range s.Living() {
		if view(t, s, h).Faction == "hostile" {
			s.RemoveHP(h, 1000)
		}
	}
	require.NoError(t, s.EndTurn())
	assert.False(t, s.InEncounter())
	assert.False(t, s.Area().IsTurnActive())
	assert.Len(t, s.Area().Handles(), 2)
	for _, h := range s.Living() {
		assert.Equal(t, 6, view(t, s, h).AP)
	}
	assert.Equal(t, 3, logs.FilterMessage("entity died").Len())
	assert.ErrorIs(t, s.EndTurn(), sim.ErrNoEncounter)
}

func TestEncounter_EffectsAgePerRound(t *testing.T) {
	s, _ := newSim(t)
	hero := find(t, s, "hero")
	s.ApplyEffect(hero, mustEffect(t, s, "burning"), nil)
	require.NoError(t, s.StartEncounter())

	s.Tick(60_000)
	assert.Equal(t, []string{"burning"}, effectIDs(t, s, hero), "real time does not pass in an encounter")

	for s.Round() < 3 {
		require.NoError(t, s.EndTurn())
	}
	for {
		if cur, _ := s.Current(); cur == hero {
			break
		}
		require.NoError(t, s.EndTurn())
	}
	assert.Empty(t, effectIDs(t, s, hero), "two rounds have passed on the hero's turn in round 3")
}

func TestRemoveHP_StaleHandleIsNoOp(t *testing.T) {
	s, logs := newSim(t)
	s.RemoveHP(entity.Handle(42), 5)
	s.ApplyEffect(entity.Handle(42), mustEffect(t, s, "burning"), nil)
	assert.Equal(t, 1, logs.FilterMessage("remove hp on stale handle").Len())
	assert.Equal(t, 1, logs.FilterMessage("apply effect on stale handle").Len())
}

func TestProgress_RoundTrip(t *testing.T) {
	s, _ := newSim(t)
	wizard := find(t, s, "wizard")
	hero := find(t, s, "hero")
	require.NoError(t, s.ActivateAbility(wizard, "fireball"))
	s.MouseMove(3, 3)
	require.NoError(t, s.Click())
	s.Tick(1000)

	saved := s.Progress()
	require.Len(t, saved, 2, "only friendly actors are saved")

	restored, _ := newSim(t)
	assert.Empty(t, restored.RestoreProgress(saved))
	rHero := find(t, restored, "hero")
	rWizard := find(t, restored, "wizard")
	assert.Equal(t, view(t, s, hero).HP, view(t, restored, rHero).HP)
	assert.Equal(t, []string{"burning"}, effectIDs(t, restored, rHero))

	e, _ := restored.Area().Get(rWizard)
	st, _ := e.Actor.AbilityState("fireball")
	assert.Equal(t, 3*5000-1000, st.Remaining())
	e, _ = restored.Area().Get(rHero)
	assert.Equal(t, 1000, e.Actor.Effects()[0].ElapsedMillis)
}

func TestProgress_UnknownRecordsAreReported(t *testing.T) {
	s, logs := newSim(t)
	saved := s.Progress()
	saved[0].Effects = append(saved[0].Effects, actorEffect("vanished"))
	saved = append(saved, saved[0])
	saved[len(saved)-1].ActorID = "stranger"

	skipped := s.RestoreProgress(saved)
	assert.ElementsMatch(t, []string{"effect vanished", "actor stranger"}, skipped)
	assert.Equal(t, 1, logs.FilterMessage("progress partially restored").Len())
}
