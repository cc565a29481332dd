//go:build wireinject
// +build wireinject

package di

import (
	"PulseScan/pkg/config"
	"PulseScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Logging and metrics
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideCacheService,

		// Scan core
		ProvideStateStore,
		ProvideEvaluatorSet,
		ProvideScoreCache,
		ProvideCycleEvaluator,
		ProvideScoreAggregator,

		// Market data feed
		ProvideTickIntake,
		ProvideTickProvider,

		// Result pipeline
		ProvideResultStore,
		ProvideResultPublisher,
		ProvideResultEmitter,
		ProvideScanScheduler,

		// Symbol services
		ProvideBaselineService,
		ProvideFundamentals,
		ProvideUniverse,
		ProvideNewsQueue,

		// API
		ProvideHistoryUseCase,
		ProvideRouter,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
