package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/config"
	"github.com/cory-johannsen/tactica/internal/content"
	"github.com/cory-johannsen/tactica/internal/game/sim"
	"github.com/cory-johannsen/tactica/internal/scenario"
	"github.com/cory-johannsen/tactica/internal/server"
	"github.com/cory-johannsen/tactica/internal/storage/sqlite"
)

const saveTimeout = 5 * time.Second

// App plays one scenario against one simulation. The simulation is only
// touched from the goroutine running play.
type App struct {
	logger   *zap.Logger
	interval time.Duration
	sim      *sim.Simulation
	runner   *scenario.Runner
	store    *sqlite.Store
	watcher  *content.Watcher
}

func newApp(cfg config.Config, logger *zap.Logger, s *sim.Simulation, r *scenario.Runner, store *sqlite.Store, w *content.Watcher) *App {
	return &App{
		logger:   logger,
		interval: cfg.Simulation.TickInterval,
		sim:      s,
		runner:   r,
		store:    store,
		watcher:  w,
	}
}

// Restore applies the named save to the simulation.
//
// Postcondition: returns an error if saving is disabled, the save is
// missing, or it belongs to another area.
func (a *App) Restore(ctx context.Context, name string) error {
	if a.store == nil {
		return errors.New("restoring requires save.path")
	}
	sv, err := a.store.Get(ctx, name)
	if err != nil {
		return err
	}
	if sv.AreaID != a.sim.Area().ID {
		return fmt.Errorf("save %q is for area %q, not %q", name, sv.AreaID, a.sim.Area().ID)
	}
	skipped := a.sim.RestoreProgress(sv.Progress)
	a.logger.Info("save restored",
		zap.String("save", name),
		zap.Time("saved_at", sv.SavedAt),
		zap.Int("skipped", len(skipped)),
	)
	return nil
}

// Run plays the scenario under a signal-aware lifecycle and then saves the
// party under saveName when a store is configured.
func (a *App) Run(ctx context.Context, saveName string) error {
	lc := server.NewLifecycle(a.logger)
	if a.watcher != nil {
		lc.Add("script-watcher", &server.FuncService{
			StartFn: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
			StopFn: func() {
				if err := a.watcher.Close(); err != nil {
					a.logger.Warn("closing script watcher", zap.Error(err))
				}
			},
		})
	}
	lc.Add("simulation", &server.FuncService{StartFn: a.play})

	runErr := lc.Run(ctx)
	if a.store == nil || saveName == "" {
		return runErr
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	err := a.store.Put(saveCtx, sqlite.Save{
		Name:     saveName,
		AreaID:   a.sim.Area().ID,
		Progress: a.sim.Progress(),
	})
	if err != nil {
		return errors.Join(runErr, fmt.Errorf("saving progress: %w", err))
	}
	a.logger.Info("progress saved", zap.String("save", saveName))
	return runErr
}

// play advances the scenario by one step per tick and applies script
// reloads between steps.
func (a *App) play(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	var changes <-chan content.ScriptChange
	var watchErrs <-chan error
	if a.watcher != nil {
		changes = a.watcher.Changes
		watchErrs = a.watcher.Errors
	}

	for !a.runner.Done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			a.sim.ReloadScript(c)
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			a.logger.Warn("script watcher error", zap.Error(err))
		case <-ticker.C:
			if err := a.runner.Step(); err != nil {
				return err
			}
		}
	}
	a.logger.Info("scenario finished",
		zap.Int("steps", a.runner.Played()),
		zap.Bool("in_encounter", a.sim.InEncounter()),
		zap.Int("round", a.sim.Round()),
	)
	return nil
}
