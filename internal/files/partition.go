package files

import (
	"fmt"

	apperrors "volscan/internal/errors"
)

// FileGroup is the ordered list of paths handed to one worker.
// It is never modified after the worker starts.
type FileGroup []string

// Partition splits files into min(workers, len(files)) contiguous groups.
//
// Group sizes differ by at most one, larger groups first, so the largest group
// holds ceil(len(files)/workers) paths. Concatenating the groups in order
// reproduces files exactly. Zero files yield zero groups.
func Partition(files []string, workers int) ([]FileGroup, error) {
	if workers < 1 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("worker count must be at least 1, got %d", workers))
	}
	if len(files) == 0 {
		return []FileGroup{}, nil
	}
	if workers > len(files) {
		workers = len(files)
	}

	base := len(files) / workers
	extra := len(files) % workers

	groups := make([]FileGroup, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < extra {
			size++
		}
		group := make(FileGroup, size)
		copy(group, files[start:start+size])
		groups = append(groups, group)
		start += size
	}

	return groups, nil
}

// Count returns the total number of paths across groups
func Count(groups []FileGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	return n
}
