package usecase

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"PubmedLoader/internal/domain"
	"PubmedLoader/internal/metrics"
	"PubmedLoader/internal/ports"
)

// AggregatorDeps wires the checkpoint writer and reporting settings.
type AggregatorDeps struct {
	Checkpoints    ports.CheckpointWriter
	Logger         *slog.Logger
	Metrics        *metrics.Ingest
	Workers        int
	ReportInterval time.Duration
	// OnFailure is called once when the checkpoint log can no longer be written.
	OnFailure func(error)
}

// Totals summarises what the aggregator recorded.
type Totals struct {
	Files    int
	Articles int
	Elapsed  time.Duration
}

// Aggregator is the single writer of the checkpoint log.
type Aggregator struct {
	checkpoints ports.CheckpointWriter
	logger      *slog.Logger
	metrics     *metrics.Ingest
	workers     int
	interval    time.Duration
	onFailure   func(error)

	start  time.Time
	totals Totals
}

// NewAggregator builds an aggregator; Workers below one is treated as one.
func NewAggregator(deps AggregatorDeps) *Aggregator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workers := deps.Workers
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{
		checkpoints: deps.Checkpoints,
		logger:      logger,
		metrics:     deps.Metrics,
		workers:     workers,
		interval:    deps.ReportInterval,
		onFailure:   deps.OnFailure,
	}
}

// Run consumes completions until events is closed. After the first checkpoint failure the
// remaining completions are drained but not recorded, and the failure is returned.
func (a *Aggregator) Run(events <-chan domain.Completion) error {
	a.start = time.Now()

	var tick <-chan time.Time
	if a.interval > 0 {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var failure error
	for {
		select {
		case c, ok := <-events:
			if !ok {
				a.report()
				return failure
			}
			if failure != nil {
				a.logger.Warn("checkpoint log unavailable, completion not recorded", "file", c.File.Path)
				continue
			}
			if err := a.record(c); err != nil {
				failure = err
				a.logger.Error("cannot write checkpoint", "file", c.File.Path, "error", err)
				if a.onFailure != nil {
					a.onFailure(err)
				}
			}
		case <-tick:
			a.report()
		}
	}
}

// Totals is safe to call once Run has returned.
func (a *Aggregator) Totals() Totals {
	t := a.totals
	t.Elapsed = time.Since(a.start)
	return t
}

func (a *Aggregator) record(c domain.Completion) error {
	if err := a.checkpoints.Append(c.Entry(), Summary(c, a.workers)); err != nil {
		return err
	}
	a.metrics.CheckpointWritten()
	a.metrics.FileCompleted(string(c.File.Class), c.ArticleCount)

	a.totals.Files++
	a.totals.Articles += c.ArticleCount

	rate := perSecond(c.ArticleCount, c.Duration)
	attrs := []any{
		"file", c.File.Path,
		"class", c.File.Class,
		"articles", c.ArticleCount,
		"duration_sec", c.Duration.Seconds(),
		"articles_per_sec", rate,
	}
	if c.File.Class == domain.ClassBaseline {
		attrs = append(attrs, "estimated_total_articles_per_sec", rate*float64(a.workers))
	}
	a.logger.Info("file completed", attrs...)
	return nil
}

func (a *Aggregator) report() {
	elapsed := time.Since(a.start)
	a.logger.Info("throughput",
		"files", a.totals.Files,
		"articles", a.totals.Articles,
		"elapsed_sec", elapsed.Seconds(),
		"articles_per_sec", perSecond(a.totals.Articles, elapsed),
	)
}

// Summary is the human-readable throughput line stored next to a checkpoint entry. Baseline
// files run in parallel, so their rate is also scaled by the worker count.
func Summary(c domain.Completion, workers int) string {
	rate := perSecond(c.ArticleCount, c.Duration)
	if c.File.Class == domain.ClassBaseline {
		return fmt.Sprintf("Baseline: %d Articles/sec: %.2f Duration(sec): %.2f Estimated Total Articles/Sec: %.2f FN: %s",
			c.ArticleCount, rate, c.Duration.Seconds(), rate*float64(workers), c.File.Path)
	}
	return fmt.Sprintf("UpdateFiles: %d Articles/sec: %.2f Duration(sec): %.2f FN: %s",
		c.ArticleCount, rate, c.Duration.Seconds(), c.File.Path)
}

func perSecond(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}
