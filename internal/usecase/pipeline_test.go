package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PubmedLoader/internal/domain"
)

func corpus(t *testing.T, baseline, updates int) *memorySource {
	t.Helper()

	src := newMemorySource()
	for i := 1; i <= baseline; i++ {
		src.add(domain.ClassBaseline, fmt.Sprintf("baseline/pubmed25n%04d.xml.gz", i),
			archive(t, article(fmt.Sprintf("%d", i), fmt.Sprintf("baseline %d", i))))
	}
	for i := 1; i <= updates; i++ {
		src.add(domain.ClassUpdate, fmt.Sprintf("updatefiles/pubmed25n%04d.xml.gz", 1000+i),
			archive(t, article(fmt.Sprintf("%d", i), fmt.Sprintf("update %d", i))))
	}
	return src
}

func loaded(names ...string) func() (map[string]struct{}, error) {
	return func() (map[string]struct{}, error) {
		done := make(map[string]struct{}, len(names))
		for _, n := range names {
			done[n] = struct{}{}
		}
		return done, nil
	}
}

func TestPipelineProcessesOnlyUnfinishedFiles(t *testing.T) {
	t.Parallel()

	src := corpus(t, 3, 2)
	checkpoints := &memoryCheckpoints{}
	p := NewPipeline(PipelineDeps{
		Source:          src,
		Sink:            newMemorySink(),
		Checkpoints:     checkpoints,
		LoadCheckpoints: loaded("baseline/pubmed25n0001.xml.gz", "updatefiles/pubmed25n1001.xml.gz"),
		Workers:         2,
	})

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 2, report.Baseline.Queued)
	assert.Equal(t, 1, report.Updates.Queued)
	assert.NoError(t, report.UpdatesHeld)
	assert.ElementsMatch(t, []string{
		"baseline/pubmed25n0002.xml.gz",
		"baseline/pubmed25n0003.xml.gz",
		"updatefiles/pubmed25n1002.xml.gz",
	}, checkpoints.filenames())
	assert.Equal(t, 3, report.Totals.Files)
	assert.Equal(t, 3, report.Totals.Articles)
}

func TestPipelineRecordsBaselineBeforeUpdates(t *testing.T) {
	t.Parallel()

	src := corpus(t, 12, 5)
	checkpoints := &memoryCheckpoints{}
	sink := newMemorySink()
	p := NewPipeline(PipelineDeps{Source: src, Sink: sink, Checkpoints: checkpoints, Workers: 4})

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	names := checkpoints.filenames()
	require.Len(t, names, 17)
	for i, n := range names {
		if i < 12 {
			assert.True(t, strings.HasPrefix(n, "baseline/"), n)
		} else {
			assert.True(t, strings.HasPrefix(n, "updatefiles/"), n)
		}
	}
	assert.Equal(t, []string{
		"updatefiles/pubmed25n1001.xml.gz",
		"updatefiles/pubmed25n1002.xml.gz",
		"updatefiles/pubmed25n1003.xml.gz",
		"updatefiles/pubmed25n1004.xml.gz",
		"updatefiles/pubmed25n1005.xml.gz",
	}, names[12:])

	// updates overwrite the baseline version of the same pmid
	assert.Equal(t, "update 1", sink.docs["1"].Title)
	assert.Equal(t, "baseline 6", sink.docs["6"].Title)
}

func TestPipelineHoldsUpdatesWhenBaselineFails(t *testing.T) {
	t.Parallel()

	src := corpus(t, 3, 2)
	src.files["baseline/pubmed25n0002.xml.gz"] = []byte("not gzip")
	checkpoints := &memoryCheckpoints{}
	p := NewPipeline(PipelineDeps{Source: src, Sink: newMemorySink(), Checkpoints: checkpoints, Workers: 3})

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Baseline.Failed)
	assert.ErrorIs(t, report.UpdatesHeld, ErrBaselineIncomplete)
	assert.ElementsMatch(t, []string{
		"baseline/pubmed25n0001.xml.gz",
		"baseline/pubmed25n0003.xml.gz",
	}, checkpoints.filenames())
}

func TestPipelineStopsUpdatesAtFirstFailure(t *testing.T) {
	t.Parallel()

	src := corpus(t, 1, 3)
	src.files["updatefiles/pubmed25n1002.xml.gz"] = []byte("not gzip")
	checkpoints := &memoryCheckpoints{}
	p := NewPipeline(PipelineDeps{Source: src, Sink: newMemorySink(), Checkpoints: checkpoints, Workers: 2})

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updates.Failed)
	assert.Equal(t, []string{
		"baseline/pubmed25n0001.xml.gz",
		"updatefiles/pubmed25n1001.xml.gz",
	}, checkpoints.filenames())
}

func TestPipelineFatalErrors(t *testing.T) {
	t.Parallel()

	t.Run("checkpoint log unreadable", func(t *testing.T) {
		p := NewPipeline(PipelineDeps{
			Source:          corpus(t, 1, 0),
			Sink:            newMemorySink(),
			Checkpoints:     &memoryCheckpoints{},
			LoadCheckpoints: func() (map[string]struct{}, error) { return nil, errors.New("permission denied") },
		})
		_, err := p.Run(context.Background())

		var enumErr *EnumerationError
		require.ErrorAs(t, err, &enumErr)
		assert.Equal(t, "checkpoint log", enumErr.Op)
	})

	t.Run("listing fails", func(t *testing.T) {
		src := corpus(t, 1, 0)
		src.listErr = errors.New("no such directory")
		sink := newMemorySink()
		p := NewPipeline(PipelineDeps{Source: src, Sink: sink, Checkpoints: &memoryCheckpoints{}})
		_, err := p.Run(context.Background())

		var enumErr *EnumerationError
		require.ErrorAs(t, err, &enumErr)
		assert.Zero(t, sink.upserts)
	})

	t.Run("checkpoint write fails", func(t *testing.T) {
		writeErr := errors.New("read-only file system")
		p := NewPipeline(PipelineDeps{
			Source:      corpus(t, 4, 2),
			Sink:        newMemorySink(),
			Checkpoints: &memoryCheckpoints{err: writeErr},
			Workers:     1,
		})
		report, err := p.Run(context.Background())

		require.ErrorIs(t, err, writeErr)
		assert.Error(t, report.UpdatesHeld)
		assert.Zero(t, report.Totals.Files)
	})
}

func TestPipelineCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checkpoints := &memoryCheckpoints{}
	p := NewPipeline(PipelineDeps{Source: corpus(t, 3, 1), Sink: newMemorySink(), Checkpoints: checkpoints})
	report, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Empty(t, checkpoints.filenames())
	assert.ErrorIs(t, report.UpdatesHeld, context.Canceled)
}

func TestPipelineRerunIsIdempotent(t *testing.T) {
	t.Parallel()

	src := corpus(t, 2, 1)
	sink := newMemorySink()
	run := func() {
		p := NewPipeline(PipelineDeps{Source: src, Sink: sink, Checkpoints: &memoryCheckpoints{}, Workers: 2})
		_, err := p.Run(context.Background())
		require.NoError(t, err)
	}

	run()
	first := make(map[string]domain.Document, len(sink.docs))
	for k, v := range sink.docs {
		first[k] = v
	}
	run()

	assert.Equal(t, first, sink.docs)
	assert.Equal(t, 6, sink.upserts)
}
