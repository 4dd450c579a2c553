package usecase

import (
	"context"
	"sync"

	"PubmedLoader/internal/domain"
)

// TaskQueue hands source files to workers. Consumers drain it until it is closed, so a
// momentarily empty queue is never mistaken for an exhausted one.
type TaskQueue struct {
	ch   chan domain.SourceFile
	once sync.Once
}

// NewTaskQueue creates an open queue buffering up to capacity files.
func NewTaskQueue(capacity int) *TaskQueue {
	return &TaskQueue{ch: make(chan domain.SourceFile, capacity)}
}

// NewClosedQueue enqueues every file and closes the queue.
func NewClosedQueue(files []domain.SourceFile) *TaskQueue {
	q := NewTaskQueue(len(files))
	for _, f := range files {
		q.ch <- f
	}
	q.Close()
	return q
}

// Push blocks until the file is queued or ctx is done. Pushing after Close panics.
func (q *TaskQueue) Push(ctx context.Context, file domain.SourceFile) error {
	select {
	case q.ch <- file:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks that no more files will be pushed.
func (q *TaskQueue) Close() {
	q.once.Do(func() { close(q.ch) })
}

// Pop returns the next file. ok is false once the queue is closed and drained, or when ctx
// is done.
func (q *TaskQueue) Pop(ctx context.Context) (file domain.SourceFile, ok bool) {
	if ctx.Err() != nil {
		return domain.SourceFile{}, false
	}

	select {
	case file, ok = <-q.ch:
		return file, ok
	case <-ctx.Done():
		return domain.SourceFile{}, false
	}
}

// Len reports how many files are waiting.
func (q *TaskQueue) Len() int {
	return len(q.ch)
}
