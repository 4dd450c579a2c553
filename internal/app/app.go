package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"PubmedLoader/internal/checkpoint"
	"PubmedLoader/internal/config"
	"PubmedLoader/internal/infrastructure/scheduler"
	"PubmedLoader/internal/infrastructure/source"
	"PubmedLoader/internal/infrastructure/storage"
	"PubmedLoader/internal/logging"
	"PubmedLoader/internal/metrics"
	"PubmedLoader/internal/ports"
	"PubmedLoader/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

type schemaSink interface {
	ports.Sink
	EnsureSchema(ctx context.Context) error
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	metrics  *metrics.Ingest
	pipeline *usecase.Pipeline
	closers  []func() error
}

// New validates cfg, opens the corpus, sink and checkpoint log, and builds the pipeline.
// Call Close when done, also after a failed New.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &Application{cfg: cfg, logger: baseLogger, metrics: metrics.New()}

	src, err := source.DefaultRegistry().Open(ctx, cfg.Corpus)
	if err != nil {
		return a, err
	}

	sink, err := a.openSink(ctx)
	if err != nil {
		return a, err
	}

	log, err := checkpoint.Open(cfg.Checkpoint.Path)
	if err != nil {
		return a, err
	}
	a.closers = append(a.closers, log.Close)

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:      src,
		Sink:        sink,
		Checkpoints: log,
		LoadCheckpoints: func() (map[string]struct{}, error) {
			return checkpoint.Load(cfg.Checkpoint.Path)
		},
		Workers:        cfg.Workers.Count,
		ReportInterval: cfg.Workers.ReportInterval,
		Logger:         baseLogger.With("component", "pipeline"),
		Metrics:        a.metrics,
	})
	return a, nil
}

func (a *Application) openSink(ctx context.Context) (schemaSink, error) {
	var sink schemaSink
	switch a.cfg.Sink.Driver {
	case config.SinkPostgres:
		db, err := storage.OpenPostgres(ctx, a.cfg.Sink.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		sink = storage.NewPostgresSink(db, a.cfg.Sink.Table)
	case config.SinkOpenSearch:
		client, err := storage.NewOpenSearchClient(a.cfg.Sink.URL)
		if err != nil {
			return nil, err
		}
		sink = storage.NewOpenSearchSink(client, a.cfg.Sink.Index)
	default:
		return nil, fmt.Errorf("unknown sink driver %q", a.cfg.Sink.Driver)
	}

	if err := sink.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return sink, nil
}

// Run performs a single pass, or keeps running passes on the configured interval until ctx
// is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}

	if addr := a.cfg.Metrics.ListenAddr; addr != "" {
		stop := a.serveMetrics(addr)
		defer stop()
	}

	if a.cfg.Scheduler.Interval > 0 {
		return a.runScheduled(ctx)
	}

	report, err := a.pipeline.Run(ctx)
	a.logReport(report)
	return err
}

func (a *Application) runScheduled(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval)
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("stopping scheduler, waiting for the current run")
	case runErr = <-sched.Err():
		a.logger.Error("stopping scheduler after fatal error", "error", runErr)
	}
	return errors.Join(runErr, sched.Stop(context.Background()))
}

func (a *Application) serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func (a *Application) logReport(r usecase.Report) {
	a.logger.Info("run finished",
		"files", r.Totals.Files,
		"articles", r.Totals.Articles,
		"elapsed_sec", r.Totals.Elapsed.Seconds(),
		"already_processed", r.Skipped,
		"baseline_failed", r.Baseline.Failed,
		"updates_failed", r.Updates.Failed,
	)
	if r.UpdatesHeld != nil {
		a.logger.Warn("update files were not processed", "reason", r.UpdatesHeld)
	}
}

// Close releases the checkpoint log and sink connections.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
