package di

import (
	"context"
	"fmt"
	"time"

	"CryptoNotify/internal/domain/models"
	"CryptoNotify/internal/domain/repository"
	"CryptoNotify/internal/handler/api"
	mid "CryptoNotify/internal/middleware"
	internalrepo "CryptoNotify/internal/repository"
	"CryptoNotify/internal/service/desktop"
	"CryptoNotify/internal/service/ratelimit"
	"CryptoNotify/internal/service/realtime"
	"CryptoNotify/internal/service/sound"
	"CryptoNotify/internal/usecase"
	"CryptoNotify/pkg/cache"
	pkgch "CryptoNotify/pkg/clickhouse"
	"CryptoNotify/pkg/config"
	xhttp "CryptoNotify/pkg/http"
	pkgkafka "CryptoNotify/pkg/kafka"
	"CryptoNotify/pkg/logger"
	"CryptoNotify/pkg/metrics"
	"CryptoNotify/pkg/server"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger creates the root logger. Error lines are aggregated to
// Kafka when an error topic and a producer are both available.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	// must happen before any Component call: children copy the collector
	if cfg.Log.ErrorTopic != "" && producer != nil {
		l.AttachCollector(&logger.CollectorConfig{
			Topic:     cfg.Log.ErrorTopic,
			Publisher: producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClock returns the wall clock.
func ProvideClock() clock.Clock {
	return clock.New()
}

// ProvideClickHouseClient creates a ClickHouse client when history goes to ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.History.Backend != usecase.HistoryBackendClickHouse {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(4, 2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithPingAttempts(cfg.ClickHouse.PingAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, pkgch.NotificationsSchema(cfg.ClickHouse.Database, cfg.History.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCache creates the settings cache: Redis when enabled, in-process otherwise.
func ProvideCache(cfg *config.Config, clk clock.Clock) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(
			cache.WithMemoryClock(clk),
			cache.WithMemoryMaxSize(cfg.MemoryCache.MaxSize),
			cache.WithMemoryCleanup(cfg.MemoryCache.CleanupInterval),
		), nil
	}
	c, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideSettingsRepository persists settings in the cache under the configured profile.
func ProvideSettingsRepository(c cache.Service, cfg *config.Config) repository.SettingsRepository {
	return internalrepo.NewCacheSettingsRepository(c, cfg.Notifications.Profile)
}

// ProvideHistoryStorage creates ClickHouse history storage, or nil without a client.
func ProvideHistoryStorage(ch *pkgch.Client, cfg *config.Config) repository.HistoryStorage {
	if ch == nil {
		return nil
	}
	table := cfg.ClickHouse.Database + "." + cfg.History.Table
	return internalrepo.NewClickHouseHistoryStorage(ch.DB(), table, cfg.Notifications.Profile)
}

// ProvideSNSClient creates an SNS client when history goes to SNS. Static
// keys are used when configured; otherwise the default AWS chain applies.
func ProvideSNSClient(cfg *config.Config) (*sns.Client, error) {
	if cfg.History.Backend != usecase.HistoryBackendSNS {
		return nil, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.SNS.Region)}
	if cfg.SNS.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.SNS.AccessKeyID, cfg.SNS.SecretAccessKey, ""),
		))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.SNS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.SNS.Endpoint)
		}
	}), nil
}

// ProvideHistoryPublisher creates the broker-side publisher for the configured backend.
func ProvideHistoryPublisher(producer *pkgkafka.Producer, snsClient *sns.Client, cfg *config.Config) repository.HistoryPublisher {
	switch cfg.History.Backend {
	case usecase.HistoryBackendKafka:
		if producer == nil {
			return nil
		}
		return internalrepo.NewKafkaHistoryPublisher(producer, cfg.Kafka.Topic, cfg.Notifications.Profile)
	case usecase.HistoryBackendSNS:
		if snsClient == nil {
			return nil
		}
		return internalrepo.NewSNSHistoryPublisher(snsClient, cfg.SNS.TopicARN, cfg.Notifications.Profile)
	default:
		return nil
	}
}

// ProvideStore creates the notification store seeded with the configured settings.
func ProvideStore(cfg *config.Config, m repository.Metrics, l *logger.Logger) *usecase.Store {
	return usecase.NewStore(usecase.Reducer{MaxRecords: cfg.Notifications.MaxRecords}, cfg.Notifications.Settings, m, l)
}

// ProvideIngestPipeline puts validation and per-channel throttling in front of the store.
func ProvideIngestPipeline(store *usecase.Store, m repository.Metrics, l *logger.Logger, clk clock.Clock, cfg *config.Config) *mid.IngestPipeline {
	return mid.NewIngestPipeline(store, m, l,
		mid.WithRate(cfg.Notifications.ChannelRPS, cfg.Notifications.ChannelBurst),
		mid.WithLimiter(ratelimit.NewWithClock(clk)),
	)
}

// ProvideDecoder creates the frame decoder shared by every inbound source.
func ProvideDecoder(clk clock.Clock, cfg *config.Config) *realtime.Decoder {
	return realtime.NewDecoder(clk).WithDefaultDuration(cfg.Notifications.DisplayDuration)
}

// ProvideChannelFactory builds a new WebSocket client for every listening session.
func ProvideChannelFactory(
	cfg *config.Config,
	pipeline *mid.IngestPipeline,
	dec *realtime.Decoder,
	m repository.Metrics,
	l *logger.Logger,
	clk clock.Clock,
) usecase.ChannelFactory {
	rc := realtime.Config{
		Endpoint:            cfg.Endpoints.WebSocketURL,
		ReconnectDelay:      cfg.Notifications.ReconnectDelay,
		InitialFailureDelay: cfg.Notifications.InitialFailureDelay,
		PingPeriod:          cfg.Notifications.PingInterval,
		HandshakeTimeout:    cfg.Notifications.HandshakeTimeout,
		TLSInsecureSkip:     cfg.Notifications.TLSInsecureSkip,
		Clock:               clk,
	}
	source := pipeline.Source("websocket")
	return func() (repository.Channel, error) {
		c, err := realtime.NewClient(rc, source, dec, m, l)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// ProvideListener ties the channel lifetime to the enabled setting.
func ProvideListener(factory usecase.ChannelFactory, store *usecase.Store, l *logger.Logger) *usecase.Listener {
	return usecase.NewListener(factory, store, store, l)
}

// ProvideNotifier creates the desktop notifier. Permission starts at
// "default"; the configured answer is given on the first request.
func ProvideNotifier(cfg *config.Config, m repository.Metrics, l *logger.Logger) (*desktop.Notifier, error) {
	answer, err := desktop.ParsePermission(cfg.Desktop.Permission)
	if err != nil {
		return nil, fmt.Errorf("desktop permission: %w", err)
	}
	return desktop.NewNotifier(
		desktop.Config{
			DismissAfter: cfg.Desktop.DismissAfter,
			FocusURL:     cfg.Desktop.FocusURL,
			Permission:   desktop.PermissionDefault,
		},
		desktop.BeeepBackend{AppName: cfg.Desktop.AppName, Icon: cfg.Desktop.Icon},
		desktop.ConfigPrompter{Answer: answer},
		m, l,
	), nil
}

// ProvideSoundPlayer creates the cue player, rate limited per cue.
func ProvideSoundPlayer(cfg *config.Config, clk clock.Clock, m repository.Metrics, l *logger.Logger) *sound.Player {
	return sound.NewPlayer(sound.BeeepDevice{}, ratelimit.NewWithClock(clk), cfg.Sound.BurstPerCue, cfg.Sound.RefillPerSec, m, l)
}

// ProvideEffectRunner bridges inserted records to the desktop and sound bridges.
func ProvideEffectRunner(n *desktop.Notifier, p *sound.Player, m repository.Metrics, l *logger.Logger) *usecase.EffectRunner {
	return usecase.NewEffectRunner(n, p, m, l, 64)
}

// ProvideAutoReader schedules MARK_READ for records once their display duration elapses.
func ProvideAutoReader(store *usecase.Store, clk clock.Clock, l *logger.Logger) *usecase.AutoReader {
	return usecase.NewAutoReader(context.Background(), store, store, clk, l)
}

// ProvideHistoryRecorder exports inserted records to the configured backend.
func ProvideHistoryRecorder(
	pub repository.HistoryPublisher,
	st repository.HistoryStorage,
	m repository.Metrics,
	l *logger.Logger,
	cfg *config.Config,
) *usecase.HistoryRecorder {
	return usecase.NewHistoryRecorder(pub, st, m, l, cfg.History.Backend, cfg.History.BatchSize, cfg.History.BatchTimeout)
}

// ProvideSettingsSync restores and persists settings.
func ProvideSettingsSync(repo repository.SettingsRepository, store *usecase.Store, l *logger.Logger) *usecase.SettingsSync {
	return usecase.NewSettingsSync(repo, store, store, l)
}

// ProvideKafkaConsumer creates the inbound notifications consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	if cfg.Kafka.Consumer.MaxMessage > 0 {
		consumer.WithConsumerHook(pkgkafka.MaxSizeHook(cfg.Kafka.Consumer.MaxMessage))
	}
	return consumer, nil
}

// ProvideNotificationsHandler feeds the inbound topic through the ingest pipeline.
func ProvideNotificationsHandler(
	cfg *config.Config,
	pipeline *mid.IngestPipeline,
	dec *realtime.Decoder,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.NotificationsHandler {
	return usecase.NewNotificationsHandler(cfg.Kafka.Consumer.Topic, dec, pipeline.Source("kafka"), m, l)
}

// ProvideHTTPHandler creates the local control API.
func ProvideHTTPHandler(
	cfg *config.Config,
	pipeline *mid.IngestPipeline,
	store *usecase.Store,
	dec *realtime.Decoder,
	n *desktop.Notifier,
	listener *usecase.Listener,
	l *logger.Logger,
) *api.NotificationsEchoHandler {
	return api.NewNotificationsEchoHandler(l, pipeline.Source("http"), store, dec, n, listener, models.RuntimeConfig{
		APIBaseURL:           cfg.Endpoints.APIBaseURL,
		WebSocketURL:         cfg.Endpoints.WebSocketURL,
		MLServiceURL:         cfg.Endpoints.MLServiceURL,
		StripePublishableKey: cfg.Endpoints.StripePublishableKey,
	})
}

// ProvideHTTPServer creates the Echo server for the control API.
func ProvideHTTPServer(cfg *config.Config, h *api.NotificationsEchoHandler, l *logger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, cfg.Server.AllowedOrigins...),
		xhttp.WithMetrics(metricsPath, prometheus.DefaultRegisterer, prometheus.DefaultGatherer, cfg.Metrics.SlowThreshold),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	store *usecase.Store,
	autoRead *usecase.AutoReader,
	effects *usecase.EffectRunner,
	listener *usecase.Listener,
	history *usecase.HistoryRecorder,
	settings *usecase.SettingsSync,
	consumer *pkgkafka.Consumer,
	kh *usecase.NotificationsHandler,
	httpServer *xhttp.Server,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	c cache.Service,
) *server.App {
	deps := server.Deps{
		Config:   cfg,
		Logger:   l,
		Store:    store,
		AutoRead: autoRead,
		Effects:  effects,
		Listener: listener,
		History:  history,
		Settings: settings,
		HTTP:     httpServer,
	}
	if consumer != nil {
		deps.Consumer = consumer
		deps.KafkaHandler = kh
	}
	app := server.New(deps)

	// the producer also feeds the error collector, so it closes after the app detaches it
	if producer != nil {
		app.OnClose("kafka_producer", producer.Close)
	}
	if chClient != nil {
		app.OnClose("clickhouse", chClient.Close)
	}
	app.OnClose("cache", c.Close)
	return app
}
