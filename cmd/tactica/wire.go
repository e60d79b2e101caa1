//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/config"
)

func initApp(ctx context.Context, cfg config.Config, logger *zap.Logger, path ScenarioPath) (*App, func(), error) {
	wire.Build(
		provideRoller,
		provideModule,
		provideEngine,
		provideScenario,
		provideSimulation,
		provideDriver,
		provideRunner,
		provideStore,
		provideWatcher,
		newApp,
	)
	return nil, nil, nil
}
