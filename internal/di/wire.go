//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/SeekerKids/forecast-prophet-kp/pkg/config"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/server"
)

var coreSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideRecorder,
	ProvideMetrics,
	ProvideKafkaProducer,
	ProvideClickHouseClient,
	ProvideRedisCache,
	ProvideCache,
	ProvideSalesSource,
	ProvideEngine,
	ProvideCalendarEditor,
	ProvideBatchDefaults,
	ProvidePipeline,
	ProvideInteractiveForecast,
	ProvideExporter,
	ProvideRunStore,
	ProvideOrchestrator,
)

// InitializeApp wires the daemon: API, queue workers and Kafka consumer.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		coreSet,
		ProvideBatchJob,
		ProvideQueue,
		ProvideKafkaConsumer,
		ProvideLimiter,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeToolkit wires the operator CLI.
func InitializeToolkit(cfg *config.Config) (*Toolkit, func(), error) {
	wire.Build(coreSet, ProvideToolkit)
	return nil, nil, nil
}
