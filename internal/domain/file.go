package domain

import "time"

// FileClass separates full snapshots from deltas.
type FileClass string

const (
	ClassBaseline FileClass = "baseline"
	ClassUpdate   FileClass = "updatefiles"
)

// SourceFile is one compressed archive of the corpus. Path is relative to the corpus root,
// e.g. "baseline/pubmed25n0001.xml.gz", and is the file identity.
type SourceFile struct {
	Path  string
	Class FileClass
}

// Completion is reported by a worker once a file has been fully streamed.
type Completion struct {
	File         SourceFile
	ArticleCount int
	Duration     time.Duration
}

// Entry converts the completion into its checkpoint form.
func (c Completion) Entry() CheckpointEntry {
	return CheckpointEntry{
		Filename:        c.File.Path,
		ArticleCount:    c.ArticleCount,
		DurationSeconds: c.Duration.Seconds(),
	}
}

// CheckpointEntry is written exactly once per fully processed file.
type CheckpointEntry struct {
	Filename        string
	ArticleCount    int
	DurationSeconds float64
}
