package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	drepo "github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	domsvc "github.com/SeekerKids/forecast-prophet-kp/internal/domain/service"
	"github.com/SeekerKids/forecast-prophet-kp/internal/handler/api"
	internalrepo "github.com/SeekerKids/forecast-prophet-kp/internal/repository"
	imetrics "github.com/SeekerKids/forecast-prophet-kp/internal/service/metrics"
	"github.com/SeekerKids/forecast-prophet-kp/internal/service/ratelimit"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/analytics"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/calendar"
	"github.com/SeekerKids/forecast-prophet-kp/internal/usecase"
	pkgcache "github.com/SeekerKids/forecast-prophet-kp/pkg/cache"
	pkgch "github.com/SeekerKids/forecast-prophet-kp/pkg/clickhouse"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/config"
	xhttp "github.com/SeekerKids/forecast-prophet-kp/pkg/http"
	pkgkafka "github.com/SeekerKids/forecast-prophet-kp/pkg/kafka"
	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/metrics"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/postgres"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/queue"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/server"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

const initTimeout = 10 * time.Second

// Toolkit is what the operator CLI needs: everything but the daemon surfaces.
type Toolkit struct {
	Config       *config.Config
	Logger       *applogger.Logger
	Source       drepo.SalesSource
	Calendar     *calendar.Editor
	Interactive  *usecase.InteractiveForecast
	Orchestrator *usecase.BatchOrchestrator
	Defaults     usecase.BatchDefaults
}

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the registry for pipeline and HTTP metrics. The
// server scrapes it together with the default gatherer.
func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func ProvideRecorder(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.New(reg)
}

func ProvideMetrics(rec *metrics.Recorder) drepo.Metrics {
	return imetrics.NewPipelineMetrics(rec)
}

// ProvideKafkaProducer returns nil when Kafka is disabled. Otherwise it also
// routes aggregated error logs to the log topic.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	if cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval: 30 * time.Second,
			Topic:        cfg.Kafka.LogTopic,
			Publisher:    producer,
		})
	}
	cleanup := func() {
		l.RemoveCollector()
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideClickHouseClient opens ClickHouse when it backs the sales source or
// the run ledger. It returns nil otherwise.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if cfg.Source.Type != "clickhouse" && !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideRedisCache returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config, l *applogger.Logger) (*pkgcache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Queue.Name),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	cleanup := func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
	return rc, cleanup, nil
}

// ProvideCache layers process memory over Redis, or uses memory alone.
func ProvideCache(rc *pkgcache.RedisCache) (pkgcache.Service, func()) {
	var svc pkgcache.Service
	if rc == nil {
		svc = pkgcache.NewMemoryCache(pkgcache.WithMemoryCleanup(time.Minute))
	} else {
		svc = pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemoryTTL(time.Minute))
	}
	return svc, func() { _ = svc.Close() }
}

// ProvideSalesSource opens the configured warehouse and fronts it with the cache.
func ProvideSalesSource(cfg *config.Config, ch *pkgch.Client, c pkgcache.Service, l *applogger.Logger) (drepo.SalesSource, func(), error) {
	var base drepo.SalesSource
	cleanup := func() {}
	switch cfg.Source.Type {
	case "clickhouse":
		table := cfg.ClickHouse.Database + "." + cfg.ClickHouse.SalesTable
		base = internalrepo.NewCHSalesSource(ch.DB(), table, cfg.Source.MaxLineQty, l)
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
		defer cancel()
		db, err := postgres.Open(ctx, postgres.ConnectionParams{
			DSN:          cfg.PostgresDSN(),
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
			PingTimeout:  5 * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		base = internalrepo.NewPGSalesSource(db, cfg.Postgres.SalesTable, cfg.Postgres.BranchTable, cfg.Source.MaxLineQty, l)
		cleanup = func() { _ = db.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
	return internalrepo.NewCachedSalesSource(base, c, cfg.Cache.SeriesTTL, cfg.Cache.CategoriesTTL, l), cleanup, nil
}

func ProvideEngine(cfg *config.Config) domsvc.ForecastEngine {
	var engine domsvc.ForecastEngine
	switch cfg.Engine.Type {
	case "additive":
		opts := analytics.DefaultAdditiveOptions()
		opts.IntervalWidth = cfg.Engine.IntervalWidth
		engine = analytics.NewAdditiveEngine(opts)
	default:
		base := analytics.NewHTTPServiceBase(cfg.Engine.ServiceURL, cfg.Engine.Timeout, cfg.Engine.RetryMaxElapsed)
		engine = analytics.NewHTTPEngine(base, cfg.Engine.IntervalWidth)
	}
	if cfg.Engine.Serialize {
		return analytics.Serialize(engine)
	}
	return engine
}

func ProvideCalendarEditor(cfg *config.Config, l *applogger.Logger) *calendar.Editor {
	return calendar.NewEditor(calendar.NewWorkbook(cfg.Calendar.File), l.With(applogger.String("component", "calendar")))
}

// ProvideBatchDefaults resolves the configured run window.
func ProvideBatchDefaults(cfg *config.Config) (usecase.BatchDefaults, error) {
	def := usecase.BatchDefaults{Dataset: cfg.Batch.Dataset, HorizonDays: cfg.Batch.HorizonDays}
	for _, f := range []struct {
		name string
		raw  string
		dst  *time.Time
	}{
		{"batch.start", cfg.Batch.Start, &def.Start},
		{"batch.end", cfg.Batch.End, &def.End},
		{"batch.cutoff", cfg.Batch.Cutoff, &def.Cutoff},
	} {
		t, ok := util.ParseDate(f.raw)
		if !ok {
			return usecase.BatchDefaults{}, fmt.Errorf("%s: invalid date %q", f.name, f.raw)
		}
		*f.dst = t
	}
	return def, nil
}

func ProvidePipeline(src drepo.SalesSource, engine domsvc.ForecastEngine, m drepo.Metrics, l *applogger.Logger) *usecase.Pipeline {
	return usecase.NewPipeline(src, engine, m, l)
}

func ProvideInteractiveForecast(p *usecase.Pipeline, editor *calendar.Editor, def usecase.BatchDefaults) *usecase.InteractiveForecast {
	return usecase.NewInteractiveForecast(p, editor, def)
}

func ProvideExporter(cfg *config.Config, l *applogger.Logger) drepo.Exporter {
	return internalrepo.NewXLSXExporter(cfg.Batch.OutputDir, l)
}

// ProvideRunStore creates the ClickHouse run ledger, or nil without ClickHouse.
func ProvideRunStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (drepo.RunStore, error) {
	if ch == nil || !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	store := internalrepo.NewClickHouseRunStore(ch.DB(), cfg.ClickHouse.Database+"."+cfg.ClickHouse.RunsTable, l)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func ProvideOrchestrator(
	cfg *config.Config,
	p *usecase.Pipeline,
	src drepo.SalesSource,
	editor *calendar.Editor,
	exp drepo.Exporter,
	m drepo.Metrics,
	runs drepo.RunStore,
	locker pkgcache.Service,
	producer *pkgkafka.Producer,
	l *applogger.Logger,
) *usecase.BatchOrchestrator {
	opts := []usecase.OrchestratorOption{usecase.WithLocker(locker)}
	if runs != nil {
		opts = append(opts, usecase.WithRunStore(runs))
	}
	if producer != nil && cfg.Kafka.ResultsTopic != "" {
		opts = append(opts, usecase.WithResultSinks(internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultsTopic)))
	}
	return usecase.NewBatchOrchestrator(p, src, editor, exp, m, usecase.OrchestratorConfig{
		ItemTimeout: cfg.Batch.ItemTimeout,
		Workers:     cfg.Batch.Workers,
		LockTTL:     cfg.Batch.LockTTL,
	}, l, opts...)
}

func ProvideToolkit(
	cfg *config.Config,
	l *applogger.Logger,
	src drepo.SalesSource,
	editor *calendar.Editor,
	interactive *usecase.InteractiveForecast,
	orch *usecase.BatchOrchestrator,
	def usecase.BatchDefaults,
) *Toolkit {
	return &Toolkit{
		Config:       cfg,
		Logger:       l,
		Source:       src,
		Calendar:     editor,
		Interactive:  interactive,
		Orchestrator: orch,
		Defaults:     def,
	}
}

func ProvideBatchJob(orch *usecase.BatchOrchestrator, def usecase.BatchDefaults, l *applogger.Logger) *usecase.BatchJob {
	return usecase.NewBatchJob(orch, def, l)
}

// ProvideQueue uses Redis when available and runs jobs in-process otherwise.
func ProvideQueue(cfg *config.Config, rc *pkgcache.RedisCache, job *usecase.BatchJob, l *applogger.Logger) queue.Worker {
	var q queue.Worker
	if rc != nil {
		q = queue.NewRedisQueue(l, queue.QueueConfig{
			Workers:      cfg.Queue.Workers,
			RetryLimit:   cfg.Queue.RetryLimit,
			PollInterval: cfg.Queue.PollInterval,
		}, rc.Client(), queue.WithKeyPrefix(cfg.Queue.Name+":queue"))
	} else {
		q = queue.NewInlineQueue(l, cfg.Queue.Workers)
	}
	q.RegisterJob(job)
	return q
}

// ProvideKafkaConsumer subscribes batch triggers, or returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, q queue.Worker, m drepo.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.RequestsTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewBatchRequestHandler(cfg.Kafka.RequestsTopic, q, m))
	return consumer, nil
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.BatchCapacity, cfg.RateLimit.BatchRefillRate)
}

func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	interactive *usecase.InteractiveForecast,
	q queue.Worker,
	src drepo.SalesSource,
	limiter *ratelimit.Limiter,
	editor *calendar.Editor,
	def usecase.BatchDefaults,
) *xhttp.Server {
	handlers := []xhttp.Handler{
		api.NewForecastHandler(l, interactive, q, src, limiter, def),
		api.NewCalendarHandler(l, editor, cfg.Calendar.CacheTTL),
	}
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg))
	} else {
		opts = append(opts, xhttp.WithMetrics("", reg))
	}
	return xhttp.NewServer(l, handlers, opts...)
}

// ProvideApp orders the daemon components: queue workers first, then the
// consumer feeding them, then the API.
func ProvideApp(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, q queue.Worker, consumer *pkgkafka.Consumer) *server.App {
	opts := []server.Option{
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithComponent(server.Component{Name: "queue", Start: q.Start, Stop: q.Stop}),
	}
	if consumer != nil {
		opts = append(opts, server.WithComponent(server.Component{
			Name:  "kafka-consumer",
			Start: func(context.Context) error { return consumer.Start() },
			Stop:  consumer.Stop,
		}))
	}
	opts = append(opts,
		server.WithComponent(server.Component{
			Name:  "http",
			Start: func(context.Context) error { return srv.Start() },
			Stop:  srv.Stop,
		}),
		server.WithFatalErrors(srv.Errors()),
	)
	return server.New(l, opts...)
}
