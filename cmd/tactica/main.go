// Package main provides the headless tactica runner: it loads a module,
// plays a scenario of input events against one area and saves the party.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/config"
	"github.com/cory-johannsen/tactica/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/tactica.yaml", "path to configuration file")
	scenarioPath := flag.String("scenario", "content/scenarios/skirmish.yaml", "path to the scenario to play")
	saveName := flag.String("save", "autosave", "save the party under this name on exit; empty = no save")
	loadName := flag.String("load", "", "restore the party from this save before playing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	app, cleanup, err := initApp(ctx, cfg, logger, ScenarioPath(*scenarioPath))
	if err != nil {
		logger.Fatal("initializing runner", zap.Error(err))
	}
	defer cleanup()

	if *loadName != "" {
		if err := app.Restore(ctx, *loadName); err != nil {
			logger.Error("restoring save", zap.Error(err))
			cleanup()
			os.Exit(1)
		}
	}

	logger.Info("runner ready", zap.Duration("startup", time.Since(start)))
	if err := app.Run(ctx, *saveName); err != nil {
		logger.Error("scenario failed", zap.Error(err))
		cleanup()
		_ = logger.Sync()
		os.Exit(1)
	}
}
