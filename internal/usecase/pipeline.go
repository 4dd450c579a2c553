package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"PubmedLoader/internal/domain"
	"PubmedLoader/internal/metrics"
	"PubmedLoader/internal/ports"
)

// ErrBaselineIncomplete is reported when update files are held back because a baseline file
// of the same run failed.
var ErrBaselineIncomplete = errors.New("baseline incomplete, update files not applied")

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Source      ports.FileSource
	Sink        ports.Sink
	Checkpoints ports.CheckpointWriter
	// LoadCheckpoints returns the filenames already recorded in the checkpoint log.
	LoadCheckpoints func() (map[string]struct{}, error)
	Workers         int
	ReportInterval  time.Duration
	Logger          *slog.Logger
	Metrics         *metrics.Ingest
}

// Pipeline loads the baseline in parallel and then applies update files in release order.
type Pipeline struct {
	source          ports.FileSource
	sink            ports.Sink
	checkpoints     ports.CheckpointWriter
	loadCheckpoints func() (map[string]struct{}, error)
	workers         int
	reportInterval  time.Duration
	logger          *slog.Logger
	metrics         *metrics.Ingest
}

// PhaseReport counts the files of one class.
type PhaseReport struct {
	Queued int
	Failed int
}

// Report describes one pipeline run.
type Report struct {
	Baseline PhaseReport
	Updates  PhaseReport
	Skipped  int
	// UpdatesHeld is set when the update phase did not run.
	UpdatesHeld error
	Totals      Totals
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workers := deps.Workers
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		source:          deps.Source,
		sink:            deps.Sink,
		checkpoints:     deps.Checkpoints,
		loadCheckpoints: deps.LoadCheckpoints,
		workers:         workers,
		reportInterval:  deps.ReportInterval,
		logger:          logger,
		metrics:         deps.Metrics,
	}
}

// Run performs one resumable pass over the corpus. Only fatal conditions are returned as
// errors: the file list or the checkpoint log cannot be read, or a checkpoint cannot be written.
// Cancelling ctx lets files in progress finish and stops pulling new ones.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	var report Report

	done := map[string]struct{}{}
	if p.loadCheckpoints != nil {
		loaded, err := p.loadCheckpoints()
		if err != nil {
			return report, &EnumerationError{Op: "checkpoint log", Err: err}
		}
		done = loaded
	}

	plan, err := Enumerate(ctx, p.source, done)
	if err != nil {
		return report, err
	}

	report.Skipped = plan.Skipped
	report.Baseline.Queued = len(plan.Baseline)
	report.Updates.Queued = len(plan.Updates)
	p.logger.Info("files queued",
		"baseline", len(plan.Baseline),
		"updatefiles", len(plan.Updates),
		"already_processed", plan.Skipped,
	)

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	events := make(chan domain.Completion)
	aggregator := NewAggregator(AggregatorDeps{
		Checkpoints:    p.checkpoints,
		Logger:         p.logger.With("component", "aggregator"),
		Metrics:        p.metrics,
		Workers:        p.workers,
		ReportInterval: p.reportInterval,
		OnFailure:      cancel,
	})
	aggDone := make(chan error, 1)
	go func() { aggDone <- aggregator.Run(events) }()

	report.Baseline.Failed = p.runPhase(runCtx, plan.Baseline, p.workers, false, events)
	p.logger.Info("finished processing baseline files", "failed", report.Baseline.Failed)

	switch {
	case runCtx.Err() != nil:
		report.UpdatesHeld = context.Cause(runCtx)
	case report.Baseline.Failed > 0:
		report.UpdatesHeld = ErrBaselineIncomplete
	default:
		p.logger.Info("starting to process updatefiles", "count", len(plan.Updates))
		report.Updates.Failed = p.runPhase(runCtx, plan.Updates, 1, true, events)
	}
	if report.UpdatesHeld != nil && len(plan.Updates) > 0 {
		p.logger.Warn("update files held back", "count", len(plan.Updates), "reason", report.UpdatesHeld)
	}

	close(events)
	aggErr := <-aggDone
	report.Totals = aggregator.Totals()
	if aggErr != nil {
		return report, fmt.Errorf("checkpoint log: %w", aggErr)
	}

	return report, nil
}

// runPhase drains files with the given number of workers and waits for all of them.
func (p *Pipeline) runPhase(ctx context.Context, files []domain.SourceFile, workers int, haltOnFailure bool, events chan<- domain.Completion) int {
	if len(files) == 0 {
		return 0
	}
	if workers > len(files) {
		workers = len(files)
	}

	queue := NewClosedQueue(files)
	var failed atomic.Int64
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		worker := NewWorker(WorkerDeps{
			Source:  p.source,
			Sink:    p.sink,
			Logger:  p.logger.With("component", "worker", "worker_id", i, "class", files[0].Class),
			Metrics: p.metrics,
		})
		g.Go(func() error {
			failed.Add(int64(worker.Run(ctx, queue, events, haltOnFailure)))
			return nil
		})
	}
	_ = g.Wait()

	return int(failed.Load())
}
