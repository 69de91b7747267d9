package stagefs

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FS abstracts the filesystem operations the staging pipeline performs, so
// pipeline logic can be exercised against a scratch directory (or a fake)
// without touching real build output.
type FS interface {
	// Stat reports file info for path; callers use it for existence checks.
	Stat(path string) (os.FileInfo, error)
	// WalkFiles calls fn for every regular file under root (lazily, in
	// lexical order). Directories and symlinks are skipped.
	WalkFiles(root string, fn func(path string, info fs.DirEntry) error) error
	// Remove deletes a single file.
	Remove(path string) error
	// RemoveAll deletes path and everything below it; missing paths are not an error.
	RemoveAll(path string) error
	// MkdirAll creates a directory along with any missing parents.
	MkdirAll(path string, perm os.FileMode) error
	// CopyFile copies a single file, overwriting dst if present.
	CopyFile(src, dst string) error
	// CopyDir recursively copies a directory tree, overwriting existing files.
	CopyDir(src, dst string) error
}

// OS is the real-filesystem implementation of FS.
type OS struct{}

func (OS) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

func (OS) WalkFiles(root string, fn func(path string, info fs.DirEntry) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return fn(path, d)
	})
}

func (OS) Remove(path string) error    { return os.Remove(path) }
func (OS) RemoveAll(path string) error { return os.RemoveAll(path) }

func (OS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (o OS) CopyFile(src, dst string) error { return copyFile(src, dst) }

// CopyDir recursively copies a directory tree, handling cross-device scenarios.
func (o OS) CopyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := o.CopyDir(srcPath, dstPath); err != nil {
				return err
			}
		} else {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}

	return nil
}

// copyFile copies a single file from src to dst.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = dstFile.Close()
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, srcInfo.Mode())
}
