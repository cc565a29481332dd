package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"PulseScan/internal/domain/models"
	"PulseScan/internal/domain/repository"
	domsvc "PulseScan/internal/domain/service"
	"PulseScan/internal/handler/api"
	mid "PulseScan/internal/middleware"
	internalrepo "PulseScan/internal/repository"
	"PulseScan/internal/service/baseline"
	icache "PulseScan/internal/service/cache"
	"PulseScan/internal/service/catalyst"
	"PulseScan/internal/service/feed"
	"PulseScan/internal/service/fundamentals"
	"PulseScan/internal/service/scorecache"
	"PulseScan/internal/service/state"
	"PulseScan/internal/service/universe"
	"PulseScan/internal/services/pillars"
	"PulseScan/internal/usecase"
	pkgcache "PulseScan/pkg/cache"
	pkgch "PulseScan/pkg/clickhouse"
	"PulseScan/pkg/config"
	pkghttp "PulseScan/pkg/http"
	pkgkafka "PulseScan/pkg/kafka"
	applogger "PulseScan/pkg/logger"
	"PulseScan/pkg/metrics"
	pkgqueue "PulseScan/pkg/queue"
	"PulseScan/pkg/server"
)

// ProvideLogger creates the application logger from config. With a Kafka
// producer and an error topic configured, repeated error logs are
// aggregated and flushed to that topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "console"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	l, err := applogger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Logging.ErrorTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Logging.ErrorTopic,
			Publisher:      producerPublisher{producer},
		})
	}
	return l, nil
}

// producerPublisher adapts the Kafka producer to the log collector's
// Publisher interface.
type producerPublisher struct {
	p *pkgkafka.Producer
}

func (a producerPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return a.p.Publish(ctx, topic, nil, payload)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStateStore creates the per-symbol rolling state store.
func ProvideStateStore(cfg *config.Config) *state.Store {
	return state.NewStore(state.Config{
		PriceWindow:       cfg.Scanner.PriceWindow,
		VolumeWindow:      cfg.Scanner.VolumeWindow,
		CatalystRetention: cfg.Scanner.CatalystRetention,
	})
}

// ProvideEvaluatorSet creates the five pillar evaluators with bands from
// config layered over the stock defaults.
func ProvideEvaluatorSet(cfg *config.Config) domsvc.EvaluatorSet {
	return pillars.NewSet(pillarsConfig(cfg))
}

// ProvideScoreCache creates the version-keyed pillar score cache.
func ProvideScoreCache(cfg *config.Config) *scorecache.Cache {
	return scorecache.New(cfg.Scanner.CacheCapacity)
}

// ProvideCycleEvaluator creates the per-cycle evaluation fan-out.
func ProvideCycleEvaluator(set domsvc.EvaluatorSet, cache *scorecache.Cache, cfg *config.Config) *usecase.CycleEvaluator {
	return usecase.NewCycleEvaluator(set, cache, cfg.Scanner.Workers)
}

// ProvideScoreAggregator creates the weighted composite aggregator.
func ProvideScoreAggregator(cfg *config.Config) *usecase.ScoreAggregator {
	return usecase.NewScoreAggregator(aggregatorWeights(cfg))
}

// ProvideClickHouseClient creates a ClickHouse client when any configured
// component needs one; otherwise it returns nil and the Kafka/log paths
// run without ClickHouse. Table DDL is owned by the stores themselves.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !chNeeded(cfg) {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer for result publishing.
// Returns nil when the backend does not publish to Kafka.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	switch cfg.Backend.Type {
	case usecase.BackendKafka, usecase.BackendBoth:
	default:
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

// ProvideKafkaConsumer creates a Kafka consumer for the tick feed.
// Returns nil when the feed does not read from Kafka.
func ProvideKafkaConsumer(cfg *config.Config, m repository.Metrics) (*pkgkafka.Consumer, error) {
	if cfg.Feed.Type != feed.TypeKafka {
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
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.MetricsHook{
		Observe: func(_ string, seconds float64) { m.RecordLatency("feed_consume", seconds) },
		OnFail:  func(string) { m.RecordError("feed_consume") },
	})
	return consumer, nil
}

// ProvideTickIntake creates the validation/buffer stage between the feed
// transport and the state store.
func ProvideTickIntake(cfg *config.Config, m repository.Metrics) *mid.TickIntake {
	var opts []mid.IntakeOption
	if cfg.Feed.BufferSize > 0 {
		opts = append(opts, mid.WithBufferSize(cfg.Feed.BufferSize))
	}
	if cfg.Feed.MaxSymbolRPS > 0 {
		opts = append(opts, mid.WithMaxRPS(cfg.Feed.MaxSymbolRPS))
	}
	return mid.NewTickIntake(m, opts...)
}

// ProvideTickProvider builds the configured market-data feed.
func ProvideTickProvider(
	cfg *config.Config,
	intake *mid.TickIntake,
	consumer *pkgkafka.Consumer,
	m repository.Metrics,
	l *applogger.Logger,
) (repository.TickProvider, error) {
	p, err := feed.New(feed.Options{
		Type:           cfg.Feed.Type,
		APIKey:         cfg.Feed.APIKey,
		WebsocketURL:   cfg.Feed.WebSocketURL,
		ReconnectDelay: cfg.Feed.ReconnectDelay,
		PingInterval:   cfg.Feed.PingInterval,
		Topic:          cfg.Feed.Topic,
		ReplayFile:     cfg.Feed.ReplayFile,
		ReplayBatch:    cfg.Feed.ReplayBatch,
	}, intake, consumer, m)
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}
	if sl, ok := p.(interface{ SetLogger(*applogger.Logger) }); ok {
		sl.SetLogger(l)
	}
	return p, nil
}

// ProvideResultStore creates the ClickHouse scan-result store. Returns nil
// when the backend does not persist to ClickHouse.
func ProvideResultStore(chClient *pkgch.Client, cfg *config.Config) repository.ResultStore {
	switch cfg.Backend.Type {
	case usecase.BackendClickHouse, usecase.BackendBoth:
	default:
		return nil
	}
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseScanStore(chClient.DB(), cfg.Backend.Table)
}

// ProvideResultPublisher creates the Kafka result publisher. Returns nil
// when the backend does not publish to Kafka.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	switch cfg.Backend.Type {
	case usecase.BackendKafka, usecase.BackendBoth:
	default:
		return nil
	}
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Backend.Topic)
}

// ProvideResultEmitter creates the backend fan-out for completed cycles.
func ProvideResultEmitter(
	pub repository.ResultPublisher,
	store repository.ResultStore,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.ResultEmitter {
	e := usecase.NewResultEmitter(pub, store, m, cfg.Backend.Type)
	e.SetLogger(l)
	return e
}

// ProvideScanScheduler creates the fixed-interval scan loop.
func ProvideScanScheduler(
	cfg *config.Config,
	provider repository.TickProvider,
	store *state.Store,
	evaluator *usecase.CycleEvaluator,
	agg *usecase.ScoreAggregator,
	emitter *usecase.ResultEmitter,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ScanScheduler {
	s := usecase.NewScanScheduler(usecase.SchedulerConfig{
		Interval:     cfg.Scanner.Interval,
		CycleBudget:  cfg.Scanner.CycleBudget,
		IngestBudget: cfg.Scanner.IngestBudget,
	}, provider, store, evaluator, agg, emitter, m)
	s.SetLogger(l)
	return s
}

// ProvideRedisCache creates the shared Redis client wrapper. Returns nil
// when Redis is disabled; baseline snapshots and the news queue are then
// off and the legacy API falls back to in-process response caching.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, port := splitHostPort(cfg.Redis.Addr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService wraps Redis in the layered (memory + Redis) cache.
func ProvideCacheService(rc *pkgcache.RedisCache) pkgcache.Service {
	if rc == nil {
		return nil
	}
	return pkgcache.NewLayeredCache(rc)
}

// ProvideBaselineService creates the relative-volume baseline warmer.
// Returns nil without ClickHouse; the volume pillar then falls back to
// trailing in-session means.
func ProvideBaselineService(
	chClient *pkgch.Client,
	cache pkgcache.Service,
	store *state.Store,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *baseline.Service {
	if chClient == nil || cfg.Baseline.Table == "" {
		return nil
	}
	reader := internalrepo.NewCHBaselineStore(chClient, cfg.Baseline.Table)
	reader.SetLogger(l)
	b := baseline.New(reader, cache, store, m, baseline.Config{
		Window:        repository.BaselineWindow(cfg.Baseline.Window),
		ScanInterval:  cfg.Scanner.Interval,
		SessionLength: cfg.Baseline.SessionLength,
		CacheTTL:      cfg.Baseline.CacheTTL,
	})
	b.SetLogger(l)
	return b
}

// ProvideFundamentals creates the share-float client. Returns nil when no
// fundamentals API is configured; the float pillar then scores neutral.
func ProvideFundamentals(cfg *config.Config, store *state.Store, m repository.Metrics, l *applogger.Logger) *fundamentals.Client {
	if cfg.Fundamentals.BaseURL == "" {
		return nil
	}
	var opts []pkghttp.ClientOption
	if cfg.Fundamentals.Timeout > 0 {
		opts = append(opts, pkghttp.WithTimeout(cfg.Fundamentals.Timeout))
	}
	f := fundamentals.New(pkghttp.NewClient(opts...), cfg.Fundamentals.BaseURL, cfg.Fundamentals.APIKey, store, m)
	f.SetLogger(l)
	return f
}

// ProvideUniverse creates the tracked-symbol set seeded from config.
func ProvideUniverse(
	provider repository.TickProvider,
	store *state.Store,
	cfg *config.Config,
	b *baseline.Service,
	f *fundamentals.Client,
	l *applogger.Logger,
) *universe.Service {
	var opts []universe.Option
	if b != nil {
		opts = append(opts, universe.WithBaselineWarm(b))
	}
	if f != nil {
		opts = append(opts, universe.WithFloatWarm(f))
	}
	u := universe.New(provider, store, cfg.Universe.Symbols, opts...)
	u.SetLogger(l)
	return u
}

// ProvideNewsQueue creates the Redis consumer for catalyst news events.
// Returns nil when Redis is off or no queue name is configured.
func ProvideNewsQueue(
	cfg *config.Config,
	rc *pkgcache.RedisCache,
	store *state.Store,
	m repository.Metrics,
	l *applogger.Logger,
) *pkgqueue.RedisQueue {
	if rc == nil || cfg.Redis.NewsQueue == "" {
		return nil
	}
	job := catalyst.NewNewsJob(store, m)
	job.SetLogger(l)
	qcfg := &pkgqueue.QueueConfig{
		Workers:    2,
		QueueSize:  256,
		RetryLimit: 3,
		RetryDelay: 5 * time.Second,
	}
	return pkgqueue.NewRedisConsumer(l, qcfg, rc.Client(), []pkgqueue.Job{job},
		pkgqueue.WithKeyPrefix(cfg.Redis.NewsQueue))
}

// ProvideHistoryUseCase creates the stored-score query use case.
func ProvideHistoryUseCase(store repository.ResultStore) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(store)
}

// ProvideRouter builds both API surfaces: the /api/v1 Echo handler and the
// legacy /api handler with its own rate limiting and response cache.
func ProvideRouter(
	l *applogger.Logger,
	sched *usecase.ScanScheduler,
	history *usecase.HistoryUseCase,
	uni *universe.Service,
	b *baseline.Service,
	rc *pkgcache.RedisCache,
) *api.Router {
	legacy := api.NewScansHandler(sched, history)
	legacy.SetLogger(l)
	if b != nil {
		legacy.SetBaseline(b)
	}
	if rc != nil {
		legacy.SetCache(icache.NewRedisCache(rc.Client(), ""))
	} else {
		legacy.SetCache(icache.NewTTLCache())
	}

	v1 := api.NewScansEchoHandler(l, sched, history, uni)
	return api.NewRouter(v1, legacy)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	provider repository.TickProvider,
	sched *usecase.ScanScheduler,
	uni *universe.Service,
	b *baseline.Service,
	f *fundamentals.Client,
	chClient *pkgch.Client,
	rc *pkgcache.RedisCache,
	q *pkgqueue.RedisQueue,
	router *api.Router,
	emitter *usecase.ResultEmitter,
	resultStore repository.ResultStore,
) *server.App {
	app := server.New(cfg, l, provider, sched, uni)
	app.SetHTTPHandler(router)
	if b != nil {
		app.SetBaseline(b)
	}
	if f != nil {
		app.SetFundamentals(f)
	}
	if chClient != nil {
		app.SetClickHouse(chClient)
	}
	if rc != nil {
		app.SetRedis(rc)
	}
	if q != nil {
		app.SetNewsQueue(q)
	}
	if resultStore != nil {
		app.SetResultStore(resultStore)
	}
	app.Emitter = emitter
	return app
}

// pillarsConfig layers YAML pillar bands over the stock defaults; zero
// values keep the default.
func pillarsConfig(cfg *config.Config) pillars.Config {
	pc := pillars.DefaultConfig()
	p := cfg.Scanner.Pillars
	if p.MinPrice > 0 {
		pc.Price.MinPrice = p.MinPrice
	}
	if p.MaxPrice > 0 {
		pc.Price.MaxPrice = p.MaxPrice
	}
	if p.LookbackTicks > 0 {
		pc.Momentum.LookbackTicks = p.LookbackTicks
	}
	if p.MaxROCPct > 0 {
		pc.Momentum.MaxROCPct = p.MaxROCPct
	}
	if p.RVolTarget > 0 {
		pc.Volume.RVolTarget = p.RVolTarget
	}
	if p.FreshAge > 0 {
		pc.Catalyst.FreshAge = p.FreshAge
	}
	if p.RecentAge > 0 {
		pc.Catalyst.RecentAge = p.RecentAge
	}
	if p.SmallFloatMax > 0 {
		pc.Float.SmallMax = p.SmallFloatMax
	}
	if p.MidFloatMax > 0 {
		pc.Float.MediumMax = p.MidFloatMax
	}
	return pc
}

func aggregatorWeights(cfg *config.Config) usecase.Weights {
	if len(cfg.Scanner.Weights) == 0 {
		return usecase.EqualWeights()
	}
	w := make(usecase.Weights, len(cfg.Scanner.Weights))
	for k, v := range cfg.Scanner.Weights {
		w[models.Pillar(k)] = v
	}
	return w
}

// chNeeded reports whether any configured component talks to ClickHouse.
func chNeeded(cfg *config.Config) bool {
	switch cfg.Backend.Type {
	case usecase.BackendClickHouse, usecase.BackendBoth:
		return true
	}
	return cfg.Baseline.Table != ""
}

// splitHostPort splits "host:port", defaulting to the standard Redis port
// when the address has none.
func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
