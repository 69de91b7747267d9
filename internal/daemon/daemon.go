// Package daemon runs the build-and-stage pipeline continuously: periodic
// rebuilds on a schedule, build history persistence, metrics exposure and
// optional build event publishing.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/webstage/webstage/internal/config"
	"github.com/webstage/webstage/internal/events"
	"github.com/webstage/webstage/internal/history"
	"github.com/webstage/webstage/internal/logfields"
	"github.com/webstage/webstage/internal/metrics"
	"github.com/webstage/webstage/internal/pipeline"
)

// Builder runs one build-and-stage pass. *pipeline.Pipeline satisfies it;
// tests inject stubs.
type Builder interface {
	Run(ctx context.Context) (*pipeline.BuildReport, error)
}

// Daemon owns the continuous-mode collaborators. Builds are serialized:
// a scheduled trigger arriving while a build runs waits for it.
type Daemon struct {
	cfg       *config.DaemonConfig
	builder   Builder
	store     *history.Store
	publisher events.Publisher
	scheduler gocron.Scheduler
	httpSrv   *http.Server
	registry  *prom.Registry
	recorder  *metrics.PrometheusRecorder

	mu sync.Mutex // serializes builds
}

// New wires up a daemon from configuration. The builder is constructed by
// the caller so command-level flags (verify, skip-install) apply.
func New(cfg *config.DaemonConfig, builder Builder) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("daemon configuration is required")
	}

	d := &Daemon{cfg: cfg, builder: builder, publisher: events.NoopPublisher{}}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	d.store = store

	if cfg.NATS != nil {
		pub, err := events.NewNATSPublisher(*cfg.NATS)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		d.publisher = pub
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		_ = store.Close()
		d.publisher.Close()
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	d.scheduler = scheduler

	d.registry = prom.NewRegistry()
	d.recorder = metrics.NewPrometheusRecorder(d.registry)

	return d, nil
}

// Recorder exposes the daemon's metrics recorder so the caller can attach
// it to the pipeline before Start.
func (d *Daemon) Recorder() metrics.Recorder { return d.recorder }

// SetBuilder replaces the builder (used by callers that need the recorder
// before constructing the pipeline).
func (d *Daemon) SetBuilder(b Builder) { d.builder = b }

// Start runs an initial build, schedules periodic rebuilds and serves
// metrics until ctx is canceled.
func (d *Daemon) Start(ctx context.Context) error {
	if d.builder == nil {
		return fmt.Errorf("daemon builder not set")
	}
	if d.cfg.MetricsAddr != "" {
		d.startMetricsServer()
	}

	_, err := d.scheduler.NewJob(
		gocron.DurationJob(d.cfg.Interval),
		gocron.NewTask(func() { d.runBuild(ctx) }),
		gocron.WithName("periodic-build"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule periodic build: %w", err)
	}
	d.scheduler.Start()

	slog.Info("Daemon started", slog.Duration("interval", d.cfg.Interval))

	// Initial build so the target is populated without waiting a full interval.
	d.runBuild(ctx)

	<-ctx.Done()
	return nil
}

// Stop shuts down the scheduler, metrics server and collaborators.
func (d *Daemon) Stop(ctx context.Context) error {
	slog.Info("Stopping daemon")

	var errs []error
	if err := d.scheduler.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
	}
	if d.httpSrv != nil {
		if err := d.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	d.publisher.Close()
	if err := d.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("history store close: %w", err))
	}
	return errors.Join(errs...)
}

// runBuild executes one serialized build and records its outcome.
func (d *Daemon) runBuild(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	report, err := d.builder.Run(ctx)
	if err != nil {
		slog.Error("Scheduled build failed", logfields.Error(err))
	}
	if report == nil {
		return
	}

	storeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.store.Append(storeCtx, report); err != nil {
		slog.Warn("Failed to record build history", logfields.BuildID(report.ID), logfields.Error(err))
	}
	if err := d.publisher.Publish(report); err != nil {
		slog.Warn("Failed to publish build event", logfields.BuildID(report.ID), logfields.Error(err))
	}
}

func (d *Daemon) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(d.registry))
	d.httpSrv = &http.Server{Addr: d.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("Serving metrics", slog.String("addr", d.cfg.MetricsAddr))
		if err := d.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", logfields.Error(err))
		}
	}()
}
