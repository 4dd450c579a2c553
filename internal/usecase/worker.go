package usecase

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"PubmedLoader/internal/domain"
	"PubmedLoader/internal/medline"
	"PubmedLoader/internal/metrics"
	"PubmedLoader/internal/ports"
)

// WorkerDeps wires the collaborators a worker needs.
type WorkerDeps struct {
	Source  ports.FileSource
	Sink    ports.Sink
	Logger  *slog.Logger
	Metrics *metrics.Ingest
}

// Worker streams archives one at a time into the sink.
type Worker struct {
	source  ports.FileSource
	sink    ports.Sink
	logger  *slog.Logger
	metrics *metrics.Ingest
}

// NewWorker builds a worker; a nil logger discards output.
func NewWorker(deps WorkerDeps) *Worker {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Worker{
		source:  deps.Source,
		sink:    deps.Sink,
		logger:  logger,
		metrics: deps.Metrics,
	}
}

// Run processes files until the queue is drained or ctx is cancelled, sending one completion per
// finished file. A failed file is logged and left for the next run; with haltOnFailure the
// worker stops pulling after the first failure. Run returns the number of failed files.
func (w *Worker) Run(ctx context.Context, queue *TaskQueue, events chan<- domain.Completion, haltOnFailure bool) int {
	failed := 0
	for {
		file, ok := queue.Pop(ctx)
		if !ok {
			return failed
		}

		w.logger.Info("processing file", "file", file.Path, "class", file.Class)
		completion, err := w.ProcessFile(ctx, file)
		if err != nil {
			failed++
			w.metrics.FileFailed(string(file.Class))
			w.logger.Error("file failed, will be retried on next run", "file", file.Path, "error", err)
			if haltOnFailure {
				return failed
			}
			continue
		}

		events <- completion
	}
}

// ProcessFile streams a single archive. Cancelling ctx does not interrupt a file in progress.
// The returned error is file-level: nothing of the file should be checkpointed.
func (w *Worker) ProcessFile(ctx context.Context, file domain.SourceFile) (domain.Completion, error) {
	start := time.Now()
	ioCtx := context.WithoutCancel(ctx)

	body, err := w.source.Fetch(ioCtx, file.Path)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("fetch %s: %w", file.Path, err)
	}
	defer body.Close()

	gz, err := gzip.NewReader(body)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("decompress %s: %w", file.Path, err)
	}
	defer gz.Close()

	reader := medline.NewReader(gz)
	count := 0
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Completion{}, fmt.Errorf("parse %s: %w", file.Path, err)
		}

		handled, err := w.handle(ioCtx, file, rec)
		if err != nil {
			return domain.Completion{}, err
		}
		if handled {
			count++
		}
	}

	return domain.Completion{File: file, ArticleCount: count, Duration: time.Since(start)}, nil
}

// handle applies one record. It reports whether the record counted as handled; an error is
// returned only when the sink fails.
func (w *Worker) handle(ctx context.Context, file domain.SourceFile, rec medline.Record) (bool, error) {
	switch rec.Variant {
	case medline.JournalArticle, medline.BookArticle:
		conv, err := medline.Convert(rec)
		if err != nil {
			w.metrics.Record(metrics.OutcomeSkipped)
			w.logger.Error("skipping record", "file", file.Path, "tag", rec.Variant, "error", err)
			return false, nil
		}

		doc := conv.Document
		if conv.MissingTitle {
			w.logger.Warn("missing title", "pmid", doc.ID)
		}
		if conv.Date.Kind == medline.DateFallback {
			w.logger.Error("problem converting pub date", "pmid", doc.ID, "reason", conv.Date.Reason)
		}

		if err := w.sink.Upsert(ctx, doc.ID, doc); err != nil {
			return false, fmt.Errorf("upsert pmid %s from %s: %w", doc.ID, file.Path, err)
		}
		w.metrics.Record(metrics.OutcomeUpserted)
		return true, nil

	case medline.DeleteCitation:
		events, err := medline.Deletions(rec)
		if err != nil {
			w.metrics.Record(metrics.OutcomeSkipped)
			w.logger.Error("skipping record", "file", file.Path, "tag", rec.Variant, "error", err)
			return false, nil
		}

		for _, ev := range events {
			if err := w.sink.Delete(ctx, ev.ID); err != nil {
				return false, fmt.Errorf("delete pmid %s from %s: %w", ev.ID, file.Path, err)
			}
			w.metrics.Record(metrics.OutcomeDeleted)
		}
		return true, nil

	default:
		w.metrics.Record(metrics.OutcomeUnsupported)
		w.logger.Warn("record type is not processed", "file", file.Path, "tag", rec.Variant)
		return false, nil
	}
}
