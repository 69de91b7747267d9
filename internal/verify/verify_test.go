package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageFixture(t *testing.T, index string, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0o644))
	for _, rel := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	return dir
}

func TestVerify_AllReferencesResolve(t *testing.T) {
	dir := stageFixture(t, `<html><head>
		<link href="/static/css/app.css" rel="stylesheet">
		<script src="static/js/main.js"></script>
	</head><body></body></html>`,
		"static/css/app.css", "static/js/main.js")

	problems, err := Checker{}.Verify(dir)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestVerify_ReportsMissingAssets(t *testing.T) {
	dir := stageFixture(t, `<html><head>
		<script src="/static/js/main.js?v=2"></script>
		<link href="static/css/gone.css" rel="stylesheet">
	</head></html>`,
		"static/js/main.js")

	problems, err := Checker{}.Verify(dir)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "static/css/gone.css")
}

func TestVerify_IgnoresExternalReferences(t *testing.T) {
	dir := stageFixture(t, `<html><head>
		<script src="https://cdn.example.com/lib.js"></script>
		<link href="//fonts.example.com/font.css" rel="stylesheet">
		<img src="data:image/png;base64,AAAA">
	</head></html>`)

	problems, err := Checker{}.Verify(dir)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestVerify_MissingIndexIsError(t *testing.T) {
	_, err := Checker{}.Verify(t.TempDir())
	require.Error(t, err)
}
