// Package artifact implements the filter-and-copy operations performed on
// front-end build output: pruning unwanted generated files and staging the
// surviving artifacts into a clean target directory.
package artifact

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/webstage/webstage/internal/stagefs"
)

// Prune recursively enumerates regular files under dir and deletes every
// file whose basename matches one of the glob patterns. Matching is by
// filename only, never content. Zero matches is not an error. Returns the
// paths of removed files.
func Prune(fsys stagefs.FS, dir string, patterns []string) ([]string, error) {
	var removed []string
	err := fsys.WalkFiles(dir, func(path string, _ fs.DirEntry) error {
		name := filepath.Base(path)
		for _, pattern := range patterns {
			ok, err := filepath.Match(pattern, name)
			if err != nil {
				return fmt.Errorf("invalid prune pattern %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
			if err := fsys.Remove(path); err != nil {
				return fmt.Errorf("failed to remove %s: %w", path, err)
			}
			slog.Debug("Pruned build artifact", "path", path, "pattern", pattern)
			removed = append(removed, path)
			break
		}
		return nil
	})
	if err != nil {
		return removed, err
	}
	return removed, nil
}

// PrepareTarget clears the target directory if it exists and recreates it,
// so a run never inherits leftovers from a previous one.
func PrepareTarget(fsys stagefs.FS, targetDir string) error {
	if err := fsys.RemoveAll(targetDir); err != nil {
		return fmt.Errorf("failed to clear target directory %s: %w", targetDir, err)
	}
	if err := fsys.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("failed to create target directory %s: %w", targetDir, err)
	}
	return nil
}

// CopyEntries copies the named build output entries (files or directory
// subtrees) into the target directory, preserving relative paths and
// overwriting existing files. Every entry must exist in the build output.
func CopyEntries(fsys stagefs.FS, buildDir, targetDir string, entries []string) error {
	for _, entry := range entries {
		src := filepath.Join(buildDir, entry)
		dst := filepath.Join(targetDir, entry)

		info, err := fsys.Stat(src)
		if err != nil {
			return fmt.Errorf("build output entry %s not found: %w", entry, err)
		}

		if info.IsDir() {
			if err := fsys.CopyDir(src, dst); err != nil {
				return fmt.Errorf("failed to copy directory %s: %w", entry, err)
			}
		} else {
			if err := fsys.CopyFile(src, dst); err != nil {
				return fmt.Errorf("failed to copy file %s: %w", entry, err)
			}
		}
		slog.Debug("Staged artifact", "entry", entry, "target", dst)
	}
	return nil
}
