package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	domrepo "PulseScan/internal/domain/repository"
	"PulseScan/internal/service/baseline"
	"PulseScan/internal/service/fundamentals"
	"PulseScan/internal/service/universe"
	"PulseScan/internal/usecase"
	pkgcache "PulseScan/pkg/cache"
	pkgch "PulseScan/pkg/clickhouse"
	"PulseScan/pkg/config"
	xhttp "PulseScan/pkg/http"
	applogger "PulseScan/pkg/logger"
	pkgqueue "PulseScan/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	l        *applogger.Logger
	provider domrepo.TickProvider
	sched    *usecase.ScanScheduler
	universe *universe.Service

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler

	baseline     *baseline.Service
	fundamentals *fundamentals.Client
	chClient     *pkgch.Client
	redisCache   *pkgcache.RedisCache
	newsQueue    *pkgqueue.RedisQueue
	resultStore  domrepo.ResultStore
	cron         *cron.Cron

	Emitter *usecase.ResultEmitter
}

// New creates a new App instance with the core pipeline dependencies.
// Optional infrastructure is injected through the Set* methods.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	provider domrepo.TickProvider,
	sched *usecase.ScanScheduler,
	uni *universe.Service,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		provider: provider,
		sched:    sched,
		universe: uni,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetBaseline wires the relative-volume baseline service.
func (a *App) SetBaseline(b *baseline.Service) { a.baseline = b }

// SetFundamentals wires the float-shares client.
func (a *App) SetFundamentals(f *fundamentals.Client) { a.fundamentals = f }

// SetClickHouse hands the App the ClickHouse client for teardown.
func (a *App) SetClickHouse(c *pkgch.Client) { a.chClient = c }

// SetRedis hands the App the Redis cache for teardown.
func (a *App) SetRedis(c *pkgcache.RedisCache) { a.redisCache = c }

// SetNewsQueue wires the catalyst news consumer.
func (a *App) SetNewsQueue(q *pkgqueue.RedisQueue) { a.newsQueue = q }

// SetResultStore wires the scan-result store so Run can prepare its schema.
func (a *App) SetResultStore(s domrepo.ResultStore) { a.resultStore = s }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.l
	if l == nil {
		l, _ = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
		a.l = l
	}

	// Result schema must exist before the first cycle tries to persist.
	if a.resultStore != nil {
		initCtx, cancelInit := context.WithTimeout(ctx, 10*time.Second)
		err := a.resultStore.Init(initCtx)
		cancelInit()
		if err != nil {
			return fmt.Errorf("init result store: %w", err)
		}
	}

	// Restore cached baselines synchronously so the first cycles are not
	// cold, then warm fresh ones in the background; startup is not gated
	// on ClickHouse.
	if a.baseline != nil {
		restoreCtx, cancelRestore := context.WithTimeout(ctx, 5*time.Second)
		restored := a.baseline.Restore(restoreCtx)
		cancelRestore()
		l.Info("volume baselines restored", applogger.Int("symbols", restored))
		go func() {
			if err := a.baseline.Warm(ctx, a.universe.Symbols()); err != nil {
				l.Warn("baseline warm failed", applogger.Error(err))
			}
		}()
	}

	if a.fundamentals != nil {
		go a.fundamentals.Refresh(ctx, a.universe.Symbols())
	}

	// Feed before universe: subscriptions need a live connection.
	if err := a.provider.Connect(ctx); err != nil {
		return fmt.Errorf("connect feed: %w", err)
	}
	if err := a.universe.Start(ctx); err != nil {
		l.Error("universe subscribe error", applogger.Error(err))
		return err
	}
	l.Info("universe subscribed", applogger.Strings("symbols", a.universe.Symbols()))

	if a.newsQueue != nil {
		if err := a.newsQueue.Start(); err != nil {
			l.Error("news queue start error", applogger.Error(err))
		} else {
			a.newsQueue.StartRetryProcessor()
		}
	}

	if err := a.sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	l.Info("scan scheduler started",
		applogger.String("interval", a.cfg.Scanner.Interval.String()),
		applogger.String("backend", a.cfg.Backend.Type),
	)

	a.startCron(ctx, l)

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// startCron registers the recurring maintenance jobs. Every spec is
// optional; an empty spec leaves its job unscheduled.
func (a *App) startCron(ctx context.Context, l *applogger.Logger) {
	type job struct {
		spec string
		name string
		run  func()
	}
	var jobs []job
	if a.baseline != nil && a.cfg.Baseline.WarmSpec != "" {
		jobs = append(jobs, job{a.cfg.Baseline.WarmSpec, "baseline_warm", func() {
			if err := a.baseline.Warm(ctx, a.universe.Symbols()); err != nil {
				l.Warn("scheduled baseline warm failed", applogger.Error(err))
			}
		}})
	}
	if a.fundamentals != nil && a.cfg.Fundamentals.RefreshSpec != "" {
		jobs = append(jobs, job{a.cfg.Fundamentals.RefreshSpec, "fundamentals_refresh", func() {
			a.fundamentals.Refresh(ctx, a.universe.Symbols())
		}})
	}
	if a.cfg.Universe.ResyncSpec != "" {
		jobs = append(jobs, job{a.cfg.Universe.ResyncSpec, "universe_resync", func() {
			if err := a.universe.Resync(ctx); err != nil {
				l.Warn("universe resync failed", applogger.Error(err))
			}
		}})
	}
	if len(jobs) == 0 {
		return
	}

	a.cron = cron.New()
	for _, j := range jobs {
		if _, err := a.cron.AddFunc(j.spec, j.run); err != nil {
			l.Warn("cron job rejected",
				applogger.String("job", j.name),
				applogger.String("spec", j.spec),
				applogger.Error(err),
			)
		}
	}
	a.cron.Start()
	l.Info("maintenance cron started", applogger.Int("jobs", len(jobs)))
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.l
	if l == nil {
		var err error
		l, err = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
		if err != nil {
			log.Printf("failed to create logger: %v", err)
			return err
		}
	}
	l.Info("shutting down...")

	if a.cron != nil {
		a.cron.Stop()
	}

	// Stop producing new cycles before tearing the pipe down.
	a.sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	// The feed owns its transport; for Kafka feeds this stops the consumer.
	if err := a.provider.Close(); err != nil {
		l.Warn("feed close error", applogger.Error(err))
	}

	if a.newsQueue != nil {
		if err := a.newsQueue.Stop(shutdownCtx); err != nil {
			l.Warn("news queue stop error", applogger.Error(err))
		}
	}

	// Flush aggregated error logs while the producer is still open.
	l.RemoveCollector()

	// Emitter owns the publisher and store handles.
	if a.Emitter != nil {
		a.Emitter.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redisCache != nil {
		if err := a.redisCache.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
