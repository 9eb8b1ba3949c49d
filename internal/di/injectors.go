//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"sitestatus/internal"
	"sitestatus/internal/controllers"
	"sitestatus/internal/gateway"
	"sitestatus/internal/housekeeping"
	"sitestatus/internal/providers"
	"sitestatus/internal/queue"
	"sitestatus/internal/services"
	"sitestatus/internal/storage"
	"sitestatus/internal/structures"
)

var storeSet = wire.NewSet(
	storage.NewChangeFeed,
	storage.NewPebbleProvider,
	wire.Bind(new(storage.Database), new(*storage.PebbleStore)),
)

func InitApp(cfg *structures.CliFlags) (*internal.App, func(), error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		storeSet,
		queue.NewQueueProvider,
		gateway.NewWebsocketGateway,
		wire.Bind(new(gateway.Gateway), new(*gateway.WebsocketGateway)),

		services.NewStreamPublisher,
		services.NewStatusService,
		services.NewSubscriberService,
		services.NewPhaseStatusService,
		services.NewDeliveryDispatcher,

		housekeeping.NewZstdCompressor,
		housekeeping.NewSnapshotManager,
		housekeeping.NewScheduler,

		controllers.NewStatusController,
		controllers.NewPhaseController,
		controllers.NewConnectionController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil, nil
}

func InitSnapshotManager(cfg *structures.CliFlags) (*housekeeping.SnapshotManager, func(), error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,

		storeSet,
		housekeeping.NewZstdCompressor,
		housekeeping.NewSnapshotManager,
	)

	return nil, nil, nil
}
