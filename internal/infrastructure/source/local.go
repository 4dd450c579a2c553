package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"PubmedLoader/internal/domain"
	"PubmedLoader/internal/ports"
)

const archivePattern = "*xml.gz"

// LocalSource reads archives from <root>/baseline and <root>/updatefiles.
type LocalSource struct {
	root string
}

var _ ports.FileSource = (*LocalSource)(nil)

// NewLocalSource fails when root is not a readable directory.
func NewLocalSource(root string) (*LocalSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s is not a directory", root)
	}
	return &LocalSource{root: root}, nil
}

// List returns slash-separated paths relative to the root. A missing class directory yields
// no files.
func (s *LocalSource) List(_ context.Context, class domain.FileClass) ([]string, error) {
	if _, err := os.ReadDir(s.root); err != nil {
		return nil, fmt.Errorf("read corpus root: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(s.root, string(class), archivePattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", class, err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(s.root, m)
		if err != nil {
			return nil, err
		}
		names = append(names, filepath.ToSlash(rel))
	}
	return names, nil
}

// Fetch opens an archive returned by List.
func (s *LocalSource) Fetch(_ context.Context, path string) (io.ReadCloser, error) {
	rel := filepath.FromSlash(path)
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("path %s escapes corpus root", path)
	}
	return os.Open(filepath.Join(s.root, rel))
}
