package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/webstage/webstage/internal/logfields"
)

// Manager provisions the directory a git checkout lives in.
type Manager struct {
	baseDir  string
	dir      string
	reusable bool
}

// NewEphemeral returns a manager that provisions a fresh unique directory on
// Create and deletes it on Cleanup. baseDir defaults to os.TempDir().
func NewEphemeral(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// NewPersistent returns a manager bound to baseDir/name. Create reuses the
// same directory across builds and Cleanup leaves it in place, so repeated
// fetches stay incremental.
func NewPersistent(baseDir, name string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if name == "" {
		name = "webstage-checkout"
	}
	return &Manager{
		baseDir:  baseDir,
		dir:      filepath.Join(baseDir, name),
		reusable: true,
	}
}

// Create provisions the checkout directory and returns its path.
func (m *Manager) Create() (string, error) {
	if m.reusable {
		if err := os.MkdirAll(m.dir, 0o750); err != nil {
			return "", fmt.Errorf("failed to create checkout directory: %w", err)
		}
		slog.Debug("Reusing checkout directory", logfields.Path(m.dir))
		return m.dir, nil
	}

	dir, err := os.MkdirTemp(m.baseDir, "webstage-")
	if err != nil {
		return "", fmt.Errorf("failed to create checkout directory: %w", err)
	}
	m.dir = dir
	slog.Debug("Created checkout directory", logfields.Path(dir))
	return dir, nil
}

// Path returns the current checkout directory. Empty before Create for
// ephemeral managers and after a successful Cleanup.
func (m *Manager) Path() string {
	return m.dir
}

// Cleanup deletes an ephemeral checkout directory. Persistent directories
// survive so the next fetch is a pull, not a fresh clone.
func (m *Manager) Cleanup() error {
	if m.dir == "" || m.reusable {
		return nil
	}

	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to remove checkout directory: %w", err)
	}
	slog.Debug("Removed checkout directory", logfields.Path(m.dir))
	m.dir = ""
	return nil
}
