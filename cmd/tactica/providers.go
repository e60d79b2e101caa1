package main

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/config"
	"github.com/cory-johannsen/tactica/internal/content"
	"github.com/cory-johannsen/tactica/internal/game/ai"
	"github.com/cory-johannsen/tactica/internal/game/dice"
	"github.com/cory-johannsen/tactica/internal/game/sim"
	"github.com/cory-johannsen/tactica/internal/scenario"
	"github.com/cory-johannsen/tactica/internal/scripting"
	"github.com/cory-johannsen/tactica/internal/storage/sqlite"
)

// ScenarioPath is the scenario file to play.
type ScenarioPath string

func provideRoller(cfg config.Config, logger *zap.Logger) *dice.Roller {
	src := dice.NewCryptoSource()
	if cfg.Simulation.Seed != 0 {
		src = dice.NewSeededSource(cfg.Simulation.Seed)
	}
	return dice.NewLoggedRoller(src, logger)
}

func provideModule(cfg config.Config, logger *zap.Logger) (*content.Module, error) {
	m, err := content.Load(cfg.Content.ModuleDir)
	if err != nil {
		return nil, fmt.Errorf("loading module: %w", err)
	}
	logger.Info("module loaded",
		zap.String("dir", cfg.Content.ModuleDir),
		zap.Int("actors", len(m.Actors)),
		zap.Int("areas", len(m.Areas)),
	)
	return m, nil
}

func provideEngine(cfg config.Config, logger *zap.Logger) *scripting.Engine {
	return scripting.NewEngine(scripting.Options{
		InstructionLimit:   cfg.Scripting.InstructionLimit,
		AnimBaseTimeMillis: cfg.Display.AnimationBaseTimeMillis,
	}, logger)
}

func provideScenario(path ScenarioPath) (*scenario.Scenario, error) {
	return scenario.Load(filepath.Clean(string(path)))
}

func provideSimulation(m *content.Module, sc *scenario.Scenario, engine *scripting.Engine, roller *dice.Roller, logger *zap.Logger) (*sim.Simulation, error) {
	return sim.New(m, sc.Area, engine, roller, logger)
}

func provideDriver(s *sim.Simulation, cfg config.Config, logger *zap.Logger) (*ai.Driver, error) {
	d, err := ai.LoadDriver(s, ai.LuaConditions{InstructionLimit: cfg.Scripting.InstructionLimit}, logger)
	if err != nil {
		return nil, fmt.Errorf("loading ai domains: %w", err)
	}
	return d, nil
}

func provideRunner(s *sim.Simulation, sc *scenario.Scenario, driver *ai.Driver, logger *zap.Logger) *scenario.Runner {
	return scenario.NewRunner(s, sc, driver, logger)
}

// provideStore opens the save file, or returns nil when saving is disabled.
func provideStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*sqlite.Store, func(), error) {
	if !cfg.Save.Enabled() {
		return nil, func() {}, nil
	}
	store, err := sqlite.Open(ctx, cfg.Save.Path)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("save store opened", zap.String("path", cfg.Save.Path))
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing save store", zap.Error(err))
		}
	}, nil
}

// provideWatcher starts the script watcher, or returns nil when hot reload
// is disabled. The lifecycle closes it.
func provideWatcher(cfg config.Config, logger *zap.Logger) (*content.Watcher, error) {
	if !cfg.Content.Watch {
		return nil, nil
	}
	return content.NewWatcher(cfg.Content.ModuleDir, logger)
}
