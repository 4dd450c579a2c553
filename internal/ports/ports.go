package ports

import (
	"context"
	"io"
	"time"

	"PubmedLoader/internal/domain"
)

// Sink persists converted documents. Implementations must be safe for concurrent use,
// treat repeated upserts of one id as last-write-wins and deletes of unknown ids as no-ops.
type Sink interface {
	Upsert(ctx context.Context, id string, doc domain.Document) error
	Delete(ctx context.Context, id string) error
}

// FileSource enumerates and opens corpus archives.
type FileSource interface {
	// List returns the archive paths of one class relative to the corpus root.
	List(ctx context.Context, class domain.FileClass) ([]string, error)
	// Fetch opens the gzip-compressed archive stored under path.
	Fetch(ctx context.Context, path string) (io.ReadCloser, error)
}

// CheckpointWriter appends durable completion entries.
type CheckpointWriter interface {
	Append(entry domain.CheckpointEntry, summary string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
