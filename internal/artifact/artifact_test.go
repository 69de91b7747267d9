package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webstage/webstage/internal/stagefs"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestPruneRemovesMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.runtime.abc123.js":       "runtime",
		"b.js.map":                  "sourcemap",
		"c.js":                      "keep",
		"static/js/runtime-main.js": "runtime nested",
		"static/css/app.css.map":    "sourcemap nested",
		"static/css/app.css":        "keep",
		"index.html":                "keep",
	})

	removed, err := Prune(stagefs.OS{}, dir, []string{"*runtime*.js", "*.map"})
	require.NoError(t, err)
	assert.Len(t, removed, 4)

	for _, rel := range []string{"c.js", "static/css/app.css", "index.html"} {
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
		assert.NoError(t, err, "surviving file %s should remain", rel)
	}
	for _, rel := range []string{"a.runtime.abc123.js", "b.js.map", "static/js/runtime-main.js", "static/css/app.css.map"} {
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
		assert.True(t, os.IsNotExist(err), "pruned file %s should be gone", rel)
	}
}

func TestPruneNoMatchesIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"index.html": "x", "static/app.js": "y"})

	removed, err := Prune(stagefs.OS{}, dir, []string{"*runtime*.js", "*.map"})
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestPruneMatchesBasenameNotPath(t *testing.T) {
	dir := t.TempDir()
	// Directory named to look like a match must not confuse basename matching.
	writeTree(t, dir, map[string]string{"runtime.js.d/app.js": "keep"})

	removed, err := Prune(stagefs.OS{}, dir, []string{"*runtime*.js"})
	require.NoError(t, err)
	assert.Empty(t, removed)
	_, err = os.Stat(filepath.Join(dir, "runtime.js.d", "app.js"))
	assert.NoError(t, err)
}

func TestPrepareTargetClearsLeftovers(t *testing.T) {
	target := filepath.Join(t.TempDir(), "stage")
	writeTree(t, target, map[string]string{"stale.txt": "old", "static/old.js": "old"})

	require.NoError(t, PrepareTarget(stagefs.OS{}, target))

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Empty(t, entries, "target should be empty after prepare")
}

func TestPrepareTargetCreatesMissingParents(t *testing.T) {
	target := filepath.Join(t.TempDir(), "deep", "nested", "stage")
	require.NoError(t, PrepareTarget(stagefs.OS{}, target))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCopyEntriesByteIdentical(t *testing.T) {
	dir := t.TempDir()
	buildDir := filepath.Join(dir, "build")
	target := filepath.Join(dir, "stage")
	writeTree(t, buildDir, map[string]string{
		"index.html":          "<html><body>app</body></html>",
		"static/js/app.js":    "console.log('app')",
		"static/css/app.css":  "body{margin:0}",
		"asset-manifest.json": "not staged",
	})

	require.NoError(t, PrepareTarget(stagefs.OS{}, target))
	require.NoError(t, CopyEntries(stagefs.OS{}, buildDir, target, []string{"index.html", "static"}))

	for _, rel := range []string{"index.html", "static/js/app.js", "static/css/app.css"} {
		want, err := os.ReadFile(filepath.Join(buildDir, filepath.FromSlash(rel)))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(target, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, want, got, "staged %s must be byte-identical", rel)
	}

	// Entries not listed must not be staged.
	_, err := os.Stat(filepath.Join(target, "asset-manifest.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestCopyEntriesMissingEntryFails(t *testing.T) {
	dir := t.TempDir()
	buildDir := filepath.Join(dir, "build")
	target := filepath.Join(dir, "stage")
	writeTree(t, buildDir, map[string]string{"static/app.js": "x"})
	require.NoError(t, PrepareTarget(stagefs.OS{}, target))

	err := CopyEntries(stagefs.OS{}, buildDir, target, []string{"index.html", "static"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index.html")
}

func TestStagingIdempotence(t *testing.T) {
	dir := t.TempDir()
	buildDir := filepath.Join(dir, "build")
	target := filepath.Join(dir, "stage")
	writeTree(t, buildDir, map[string]string{
		"index.html":       "<html></html>",
		"static/js/app.js": "app",
	})

	stageOnce := func() {
		require.NoError(t, PrepareTarget(stagefs.OS{}, target))
		require.NoError(t, CopyEntries(stagefs.OS{}, buildDir, target, []string{"index.html", "static"}))
	}

	stageOnce()
	// Simulate drift between runs: an extra stale file appears in the target.
	writeTree(t, target, map[string]string{"static/js/stale.js": "stale"})
	stageOnce()

	var got []string
	require.NoError(t, filepath.Walk(target, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if !info.IsDir() {
			rel, _ := filepath.Rel(target, path)
			got = append(got, filepath.ToSlash(rel))
		}
		return nil
	}))
	assert.ElementsMatch(t, []string{"index.html", "static/js/app.js"}, got)
}
