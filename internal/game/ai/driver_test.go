package ai_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/tactica/internal/content"
	"github.com/cory-johannsen/tactica/internal/game/ai"
	"github.com/cory-johannsen/tactica/internal/game/dice"
	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/sim"
	"github.com/cory-johannsen/tactica/internal/scripting"
)

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

func newDriver(t *testing.T) (*sim.Simulation, *ai.Driver) {
	t.Helper()
	m, err := content.Load(filepath.Join(repoRoot(t), "content"))
	require.NoError(t, err)
	core, _ := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewLoggedRoller(dice.NewFixedSource(99), logger)
	s, err := sim.New(m, "arena", scripting.NewEngine(scripting.Options{}, logger), roller, logger)
	require.NoError(t, err)
	d, err := ai.LoadDriver(s, ai.LuaConditions{}, logger)
	require.NoError(t, err)
	return s, d
}

// advanceTo ends turns until h acts.
func advanceTo(t *testing.T, s *sim.Simulation, h entity.Handle) {
	t.Helper()
	for i := 0; i < 10; i++ {
		if cur, _ := s.Current(); cur == h {
			return
		}
		require.NoError(t, s.EndTurn())
	}
	t.Fatalf("%s never got a turn", h)
}

func TestNewDriver_UnknownDomain(t *testing.T) {
	m, err := content.Load(filepath.Join(repoRoot(t), "content"))
	require.NoError(t, err)
	logger := zap.NewNop()
	s, err := sim.New(m, "arena", scripting.NewEngine(scripting.Options{}, logger), dice.NewLoggedRoller(dice.NewFixedSource(99), logger), logger)
	require.NoError(t, err)

	_, err = ai.NewDriver(s, nil, ai.LuaConditions{}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `actor "goblin": unknown ai domain "brute"`)
	assert.Contains(t, err.Error(), `actor "ogre": unknown ai domain "brute"`)
}

func TestDriver_ControlsHostilesOnly(t *testing.T) {
	s, d := newDriver(t)
	hero, _ := s.Find("hero")
	goblin, _ := s.Find("goblin")
	ogre, _ := s.Find("ogre")
	assert.False(t, d.Controls(hero))
	assert.True(t, d.Controls(goblin))
	assert.True(t, d.Controls(ogre))
	assert.False(t, d.Controls(entity.Handle(99)))
}

func TestDriver_TakeTurnOutsideEncounter(t *testing.T) {
	_, d := newDriver(t)
	assert.ErrorIs(t, d.TakeTurn(), sim.ErrNoEncounter)
}

func TestDriver_GoblinStrikesUntilOutOfAP(t *testing.T) {
	s, d := newDriver(t)
	goblin, _ := s.Find("goblin")
	hero, _ := s.Find("hero")
	require.NoError(t, s.StartEncounter())
	advanceTo(t, s, goblin)
	s.DrainOutcomes()

	require.NoError(t, d.TakeTurn())

	outcomes := s.DrainOutcomes()
	require.Len(t, outcomes, 2, "strike costs 3 of 6 AP")
	for _, o := range outcomes {
		assert.Equal(t, goblin, o.Attacker)
		assert.Equal(t, hero, o.Target, "the only enemy in reach")
	}
	cur, _ := s.Current()
	assert.NotEqual(t, goblin, cur, "the turn was ended")
}

func TestDriver_OgreOutOfReachPasses(t *testing.T) {
	s, d := newDriver(t)
	ogre, _ := s.Find("ogre")
	require.NoError(t, s.StartEncounter())
	advanceTo(t, s, ogre)
	s.DrainOutcomes()

	require.NoError(t, d.TakeTurn())
	assert.Empty(t, s.DrainOutcomes())
	cur, _ := s.Current()
	assert.NotEqual(t, ogre, cur)
}

func TestDriver_PlayerTurnIsNotTaken(t *testing.T) {
	s, d := newDriver(t)
	hero, _ := s.Find("hero")
	require.NoError(t, s.StartEncounter())
	advanceTo(t, s, hero)

	assert.ErrorIs(t, d.TakeTurn(), ai.ErrNoDomain)
	cur, _ := s.Current()
	assert.Equal(t, hero, cur)
}

func TestBuildWorldState_FromHeroView(t *testing.T) {
	s, _ := newDriver(t)
	hero, _ := s.Find("hero")
	ws, ok := ai.BuildWorldState(s, hero)
	require.True(t, ok)
	assert.Equal(t, "Aldric", ws.Self.Name)
	assert.Len(t, ws.Combatants, 4)
	assert.Len(t, ws.Enemies(), 3)
	assert.Len(t, ws.Allies(), 1)
	nearest := ws.NearestEnemy()
	require.NotNil(t, nearest)
	goblin, _ := s.Find("goblin")
	assert.Equal(t, goblin, nearest.Handle)
	assert.True(t, nearest.InReach)

	_, ok = ai.BuildWorldState(s, entity.Handle(99))
	assert.False(t, ok)
}
