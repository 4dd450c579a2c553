package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"PubmedLoader/internal/domain"
	"PubmedLoader/internal/ports"
)

const archiveSuffix = "xml.gz"

// EnumerationError means the run cannot tell which files still need processing.
type EnumerationError struct {
	Op  string
	Err error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("enumerate %s: %v", e.Op, e.Err)
}

func (e *EnumerationError) Unwrap() error {
	return e.Err
}

// Plan lists the files still to process, each class in archive release order.
type Plan struct {
	Baseline []domain.SourceFile
	Updates  []domain.SourceFile
	Skipped  int
}

// Enumerate lists both file classes and removes everything already present in done.
func Enumerate(ctx context.Context, source ports.FileSource, done map[string]struct{}) (Plan, error) {
	var plan Plan

	for _, class := range []domain.FileClass{domain.ClassBaseline, domain.ClassUpdate} {
		names, err := source.List(ctx, class)
		if err != nil {
			return Plan{}, &EnumerationError{Op: string(class), Err: err}
		}

		sort.Strings(names)
		for _, name := range names {
			if !strings.HasSuffix(name, archiveSuffix) {
				continue
			}
			if _, ok := done[name]; ok {
				plan.Skipped++
				continue
			}

			file := domain.SourceFile{Path: name, Class: class}
			if class == domain.ClassBaseline {
				plan.Baseline = append(plan.Baseline, file)
			} else {
				plan.Updates = append(plan.Updates, file)
			}
		}
	}

	return plan, nil
}
