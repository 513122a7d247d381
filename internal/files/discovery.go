package files

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "volscan/internal/errors"
)

// Discovery enumerates price files below a base path
type Discovery struct {
	basePath string
	logger   *slog.Logger
}

// NewDiscovery creates a new file discovery instance.
// Relative directories passed to ListFiles are resolved against basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath, logger: slog.Default()}
}

// WithLogger sets the logger used for skipped-entry diagnostics
func (d *Discovery) WithLogger(logger *slog.Logger) *Discovery {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// ListFiles returns every regular file under root, recursively.
// The order is whatever the walk yields and callers must not rely on it.
func ListFiles(root string) ([]string, error) {
	return NewDiscovery("").ListFiles(root)
}

// ListFiles returns every regular file under dir, recursively.
// Symlinks to regular files are included; symlinked directories are not followed.
// A dir that does not exist, or is not a directory, yields *errors.DirectoryNotFoundError.
func (d *Discovery) ListFiles(dir string) ([]string, error) {
	root := d.resolvePath(dir)

	info, err := os.Stat(root)
	if err != nil {
		return nil, &apperrors.DirectoryNotFoundError{Path: root, Cause: err}
	}
	if !info.IsDir() {
		return nil, &apperrors.DirectoryNotFoundError{Path: root, Cause: errors.New("not a directory")}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			// an unreadable subdirectory is skipped rather than failing the scan
			d.logger.Warn("Skipping unreadable path",
				slog.String("path", path),
				slog.String("error", walkErr.Error()))
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		switch {
		case entry.Type().IsRegular():
			files = append(files, path)
		case entry.Type()&fs.ModeSymlink != 0:
			// linked files count; linked directories are not followed
			if FileExists(path) {
				files = append(files, path)
			} else {
				d.logger.Debug("Skipping symlink that is not a regular file",
					slog.String("path", path))
			}
		}
		return nil
	})
	if err != nil {
		return nil, &apperrors.DirectoryNotFoundError{Path: root, Cause: err}
	}

	d.logger.Debug("Listed price files",
		slog.String("root", root),
		slog.Int("count", len(files)))

	return files, nil
}

func (d *Discovery) resolvePath(dir string) string {
	if d.basePath == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
