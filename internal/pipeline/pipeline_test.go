package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webstage/webstage/internal/config"
	"github.com/webstage/webstage/internal/stagefs"
	"github.com/webstage/webstage/internal/toolchain"
)

// stubRunner records invocations and lets tests simulate the external
// package manager, including producing build output on Build.
type stubRunner struct {
	installErr error
	buildErr   error
	installs   int
	builds     int
	onBuild    func(dir string) error
}

func (s *stubRunner) Install(_ context.Context, _ string) error {
	s.installs++
	return s.installErr
}

func (s *stubRunner) Build(_ context.Context, dir string) error {
	s.builds++
	if s.buildErr != nil {
		return s.buildErr
	}
	if s.onBuild != nil {
		return s.onBuild(dir)
	}
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	srcDir := filepath.Join(root, "web")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))

	cfg := config.Default()
	cfg.Source.Dir = srcDir
	cfg.Staging.TargetDir = filepath.Join(root, "stage")
	return cfg
}

// produceBuildOutput writes a typical front-end build tree including files
// that must be pruned.
func produceBuildOutput(t *testing.T, cfg *config.Config) func(dir string) error {
	t.Helper()
	return func(dir string) error {
		buildDir := filepath.Join(dir, cfg.Toolchain.OutputDir)
		files := map[string]string{
			"index.html":                    "<html><body>app</body></html>",
			"a.runtime.abc123.js":           "runtime",
			"b.js.map":                      "map",
			"c.js":                          "keep",
			"static/js/main.0f3a.js":        "main",
			"static/js/main.0f3a.js.map":    "map",
			"static/js/runtime-main.88c.js": "runtime",
			"static/css/app.css":            "css",
		}
		for rel, content := range files {
			path := filepath.Join(buildDir, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestRun_FullPipeline(t *testing.T) {
	cfg := testConfig(t)
	runner := &stubRunner{}
	runner.onBuild = produceBuildOutput(t, cfg)

	report, err := New(cfg).WithRunner(runner).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, 1, runner.installs)
	assert.Equal(t, 1, runner.builds)
	assert.Equal(t, 4, report.PrunedArtifacts)

	// Target holds exactly index.html plus the static subtree, pruned.
	target := cfg.Staging.TargetDir
	wantStaged := []string{"index.html", "static/css/app.css", "static/js/main.0f3a.js"}
	var got []string
	require.NoError(t, filepath.Walk(target, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if !info.IsDir() {
			rel, _ := filepath.Rel(target, path)
			got = append(got, filepath.ToSlash(rel))
		}
		return nil
	}))
	assert.ElementsMatch(t, wantStaged, got)
	assert.Equal(t, len(wantStaged), report.StagedFiles)

	// index.html must be byte-identical to the build output copy.
	want, err := os.ReadFile(filepath.Join(cfg.Source.Dir, cfg.Toolchain.OutputDir, "index.html"))
	require.NoError(t, err)
	staged, err := os.ReadFile(filepath.Join(target, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, want, staged)
}

func TestRun_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	runner := &stubRunner{}
	runner.onBuild = produceBuildOutput(t, cfg)
	p := New(cfg).WithRunner(runner)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	first := listFiles(t, cfg.Staging.TargetDir)

	_, err = p.Run(context.Background())
	require.NoError(t, err)
	second := listFiles(t, cfg.Staging.TargetDir)

	assert.Equal(t, first, second)
}

func listFiles(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if info.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	}))
	return out
}

func TestRun_InstallFailureStopsEverything(t *testing.T) {
	cfg := testConfig(t)
	runner := &stubRunner{installErr: fmt.Errorf("%w: npm exited with code 1", toolchain.ErrInstallFailed)}

	// Pre-existing target contents must remain untouched on failure.
	require.NoError(t, os.MkdirAll(cfg.Staging.TargetDir, 0o755))
	sentinel := filepath.Join(cfg.Staging.TargetDir, "sentinel.txt")
	require.NoError(t, os.WriteFile(sentinel, []byte("keep"), 0o644))

	report, err := New(cfg).WithRunner(runner).Run(context.Background())
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrBuild), "install failure classifies as build error: %v", err)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, 0, runner.builds, "build must never execute after install failure")

	_, statErr := os.Stat(sentinel)
	assert.NoError(t, statErr, "target directory must remain untouched")
}

func TestRun_BuildFailureStopsStaging(t *testing.T) {
	cfg := testConfig(t)
	runner := &stubRunner{buildErr: fmt.Errorf("%w: npm exited with code 2", toolchain.ErrBuildFailed)}

	report, err := New(cfg).WithRunner(runner).Run(context.Background())
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrBuild))
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, 0, report.PrunedArtifacts)

	_, statErr := os.Stat(cfg.Staging.TargetDir)
	assert.True(t, os.IsNotExist(statErr), "target must not be created after build failure")
}

// faultFS delegates to a real filesystem but fails every file removal,
// simulating an unwritable build output tree.
type faultFS struct {
	stagefs.FS
	removeErr error
}

func (f faultFS) Remove(string) error { return f.removeErr }

func TestRun_RemovalFailureIsFilesystemError(t *testing.T) {
	cfg := testConfig(t)
	runner := &stubRunner{}
	runner.onBuild = produceBuildOutput(t, cfg)

	report, err := New(cfg).
		WithRunner(runner).
		WithFS(faultFS{FS: stagefs.OS{}, removeErr: os.ErrPermission}).
		Run(context.Background())
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrFilesystem), "prune failure classifies as filesystem error: %v", err)
	assert.True(t, errors.Is(err, os.ErrPermission), "underlying cause must stay reachable: %v", err)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, StageErrorFatal, report.StageErrorKinds[StagePruneArtifacts])

	// The run aborted at pruning, so the target stage never ran.
	_, statErr := os.Stat(cfg.Staging.TargetDir)
	assert.True(t, os.IsNotExist(statErr), "target must not be created after prune failure")
}

func TestRun_MissingToolchainIsEnvironmentError(t *testing.T) {
	cfg := testConfig(t)
	runner := &stubRunner{installErr: fmt.Errorf("%w: %w", toolchain.ErrInstallFailed, toolchain.ErrToolchainNotFound)}

	_, err := New(cfg).WithRunner(runner).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEnvironment), "missing binary classifies as environment error: %v", err)
}

func TestRun_MissingSourceDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.Dir = filepath.Join(t.TempDir(), "does-not-exist")
	runner := &stubRunner{}

	_, err := New(cfg).WithRunner(runner).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEnvironment))
	assert.Equal(t, 0, runner.installs, "install must never run without a project directory")
}

func TestRun_Canceled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(cfg).WithRunner(&stubRunner{}).Run(ctx)
	require.Error(t, err)
	assert.Equal(t, OutcomeCanceled, report.Outcome)
}

type stubVerifier struct {
	problems []string
	err      error
}

func (s *stubVerifier) Verify(string) ([]string, error) { return s.problems, s.err }

func TestRun_VerifierProblemsAreWarnings(t *testing.T) {
	cfg := testConfig(t)
	runner := &stubRunner{}
	runner.onBuild = produceBuildOutput(t, cfg)

	report, err := New(cfg).
		WithRunner(runner).
		WithVerifier(&stubVerifier{problems: []string{"missing static/js/gone.js"}}).
		Run(context.Background())

	require.NoError(t, err, "verification problems must not fail the run")
	assert.Equal(t, OutcomeWarning, report.Outcome)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "gone.js")
}

func TestRun_SkipInstall(t *testing.T) {
	cfg := testConfig(t)
	runner := &stubRunner{}
	runner.onBuild = produceBuildOutput(t, cfg)

	_, err := New(cfg).WithRunner(runner).WithSkipInstall(true).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, runner.installs)
	assert.Equal(t, 1, runner.builds)
}
