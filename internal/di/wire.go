//go:build wireinject
// +build wireinject

package di

import (
	"Infinity/pkg/config"
	"Infinity/pkg/server"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
		ProvideMetrics,
		ProvideIntentMetrics,

		// Core
		ProvideAssets,
		ProvidePriceFeed,
		ProvideSignalEngine,
		ProvideQuotaLimiter,
		ProvideTierGate,

		// Persistence and events
		ProvideStateStore,
		ProvideEventPublisher,

		ProvideSession,

		// HTTP
		ProvideHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
