package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEphemeralCreateAndCleanup(t *testing.T) {
	mgr := NewEphemeral(t.TempDir())

	dir, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if dir == "" || dir != mgr.Path() {
		t.Fatalf("Create() returned %q, Path() returned %q", dir, mgr.Path())
	}
	if !strings.HasPrefix(filepath.Base(dir), "webstage-") {
		t.Errorf("Expected webstage- prefixed directory, got: %s", dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Checkout directory does not exist: %v", err)
	}

	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("Checkout directory still exists after cleanup: %s", dir)
	}
	if mgr.Path() != "" {
		t.Errorf("Path() should be empty after cleanup, got: %s", mgr.Path())
	}
}

func TestEphemeralCleanupBeforeCreateIsSafe(t *testing.T) {
	mgr := NewEphemeral(t.TempDir())
	if err := mgr.Cleanup(); err != nil {
		t.Errorf("Cleanup() before Create() should be a no-op: %v", err)
	}
}

func TestPersistentSurvivesCleanup(t *testing.T) {
	base := t.TempDir()
	mgr := NewPersistent(base, "checkout")

	dir, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if dir != filepath.Join(base, "checkout") {
		t.Fatalf("Expected fixed directory, got: %s", dir)
	}

	marker := filepath.Join(dir, "marker.txt")
	if err := os.WriteFile(marker, []byte("keep"), 0o600); err != nil {
		t.Fatalf("Failed to write marker file: %v", err)
	}

	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("Persistent checkout was removed on cleanup: %v", err)
	}

	// A second Create reuses the same directory.
	again, err := mgr.Create()
	if err != nil {
		t.Fatalf("Second Create() failed: %v", err)
	}
	if again != dir {
		t.Errorf("Expected reused directory %s, got: %s", dir, again)
	}
}

func TestPersistentDefaultName(t *testing.T) {
	base := t.TempDir()
	mgr := NewPersistent(base, "")

	if _, err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if mgr.Path() != filepath.Join(base, "webstage-checkout") {
		t.Errorf("Expected default checkout name, got: %s", mgr.Path())
	}
}
