//go:build wireinject
// +build wireinject

package di

import (
	"HeatDash/internal/usecase"
	"HeatDash/pkg/config"
	"HeatDash/pkg/server"

	"github.com/google/wire"
)

var dashboardSet = wire.NewSet(
	// Infrastructure clients
	ProvideKafkaProducer,
	ProvideLogger,
	ProvideMetrics,
	ProvideClickHouseClient,
	ProvideRedisCache,
	ProvideCache,

	// Repositories
	ProvideBarStore,
	ProvideBarSource,
	ProvideUniverses,

	// Use cases
	ProvideThresholds,
	ProvideBulkFetcher,
	ProvideDashboard,
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		dashboardSet,
		ProvideSummaryPublisher,
		ProvideRefreshJob,
		ProvideQueue,
		ProvideResponseCache,
		ProvideLimiter,
		ProvideHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeDashboard wires only what one-shot CLI commands need.
func InitializeDashboard(cfg *config.Config) (*usecase.DashboardUseCase, func(), error) {
	wire.Build(dashboardSet)
	return nil, nil, nil
}
