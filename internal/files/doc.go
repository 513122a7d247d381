// Package files discovers price-history files and splits them into worker groups.
//
// ListFiles walks a root directory recursively and returns every regular file.
// Partition turns that list into contiguous FileGroups, one per worker:
//
//	paths, err := files.ListFiles("trades")
//	if err != nil {
//	    return err // *errors.DirectoryNotFoundError when the root is missing
//	}
//	groups, err := files.Partition(paths, runtime.NumCPU())
//
// The small helpers in manager.go prepare output locations for exporters.
package files
