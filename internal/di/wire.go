//go:build wireinject
// +build wireinject

package di

import (
	"CryptoNotify/pkg/config"
	"CryptoNotify/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideClock,
		ProvideClickHouseClient,
		ProvideCache,
		ProvideSNSClient,

		// Repositories
		ProvideSettingsRepository,
		ProvideHistoryStorage,
		ProvideHistoryPublisher,

		// Store and ingest
		ProvideStore,
		ProvideIngestPipeline,
		ProvideDecoder,
		ProvideChannelFactory,
		ProvideListener,

		// Bridges and observers
		ProvideNotifier,
		ProvideSoundPlayer,
		ProvideEffectRunner,
		ProvideAutoReader,
		ProvideHistoryRecorder,
		ProvideSettingsSync,

		// Inbound Kafka
		ProvideKafkaConsumer,
		ProvideNotificationsHandler,

		// HTTP
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
