package checkpoint

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"PubmedLoader/internal/domain"
	"PubmedLoader/internal/ports"
)

// commentPrefix marks human-readable summary lines that are not filenames.
const commentPrefix = "#"

// Load reads the set of already processed filenames. A log that does not exist yet is an
// empty set; any other read failure is returned.
func Load(path string) (map[string]struct{}, error) {
	done := map[string]struct{}{}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return done, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open checkpoint log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		done[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checkpoint log: %w", err)
	}

	return done, nil
}

// Log appends checkpoint entries to a text file, one filename per line, each followed by an
// optional "# summary" line.
type Log struct {
	mu sync.Mutex
	f  *os.File
}

var _ ports.CheckpointWriter = (*Log)(nil)

// Open opens path for appending, creating it when missing.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint log: %w", err)
	}
	return &Log{f: f}, nil
}

// Append writes the entry and syncs it to disk before returning.
func (l *Log) Append(entry domain.CheckpointEntry, summary string) error {
	if strings.ContainsAny(entry.Filename, "\r\n") || strings.TrimSpace(entry.Filename) == "" {
		return fmt.Errorf("invalid checkpoint filename %q", entry.Filename)
	}

	var b strings.Builder
	b.WriteString(entry.Filename)
	b.WriteString("\n")
	if summary = strings.TrimSpace(summary); summary != "" {
		b.WriteString(commentPrefix + " ")
		b.WriteString(strings.ReplaceAll(summary, "\n", " "))
		b.WriteString("\n")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append checkpoint %s: %w", entry.Filename, err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync checkpoint log: %w", err)
	}
	return nil
}

// Close releases the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
