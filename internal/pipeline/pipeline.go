// Package pipeline orchestrates the build-and-stage procedure: install
// dependencies, run the front-end build, prune generated artifacts, clear
// the target directory and copy the surviving files into it. Stages run
// strictly sequentially and the first fatal error aborts the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/webstage/webstage/internal/config"
	"github.com/webstage/webstage/internal/logfields"
	"github.com/webstage/webstage/internal/metrics"
	"github.com/webstage/webstage/internal/stagefs"
	"github.com/webstage/webstage/internal/toolchain"
)

// Stage is a discrete unit of work in the build-and-stage procedure.
type Stage func(ctx context.Context, bs *BuildState) error

// StageName is a strongly-typed identifier for a pipeline stage.
type StageName string

// Canonical stage names.
const (
	StagePrepareSource  StageName = "prepare_source"
	StageInstallDeps    StageName = "install_deps"
	StageRunBuild       StageName = "run_build"
	StagePruneArtifacts StageName = "prune_artifacts"
	StagePrepareTarget  StageName = "prepare_target"
	StageStageArtifacts StageName = "stage_artifacts"
	StageVerifyOutput   StageName = "verify_output"
)

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Run must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}
func newWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}
func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// SourceFetcher optionally materializes the project directory before the
// build (e.g. a git checkout into a workspace). Returns the local path of
// the project to build.
type SourceFetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Verifier checks staged output after a successful copy. Returned problems
// are surfaced as warnings, never as fatal errors.
type Verifier interface {
	Verify(targetDir string) ([]string, error)
}

// BuildState carries mutable state across stages.
type BuildState struct {
	Config    *config.Config
	FS        stagefs.FS
	Runner    toolchain.Runner
	SourceDir string // resolved project directory
	Report    *BuildReport
}

// BuildDir returns the build output directory for the resolved source.
func (bs *BuildState) BuildDir() string {
	return filepath.Join(bs.SourceDir, bs.Config.Toolchain.OutputDir)
}

// Pipeline runs the build-and-stage procedure with injected collaborators.
type Pipeline struct {
	cfg         *config.Config
	fs          stagefs.FS
	runner      toolchain.Runner
	recorder    metrics.Recorder
	fetcher     SourceFetcher
	verifier    Verifier
	skipInstall bool
}

// New constructs a Pipeline with production defaults: the real filesystem,
// the configured package manager binary and no metrics.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		fs:       stagefs.OS{},
		runner:   toolchain.NewBinaryRunner(cfg.Toolchain),
		recorder: metrics.NoopRecorder{},
	}
}

// WithFS injects a filesystem implementation (for testing).
func (p *Pipeline) WithFS(fsys stagefs.FS) *Pipeline {
	if fsys != nil {
		p.fs = fsys
	}
	return p
}

// WithRunner injects a toolchain runner (for testing).
func (p *Pipeline) WithRunner(r toolchain.Runner) *Pipeline {
	if r != nil {
		p.runner = r
	}
	return p
}

// WithRecorder injects a metrics recorder.
func (p *Pipeline) WithRecorder(rec metrics.Recorder) *Pipeline {
	if rec != nil {
		p.recorder = rec
	}
	return p
}

// WithFetcher injects an optional source fetcher (git acquisition).
func (p *Pipeline) WithFetcher(f SourceFetcher) *Pipeline { p.fetcher = f; return p }

// WithVerifier enables post-staging output verification.
func (p *Pipeline) WithVerifier(v Verifier) *Pipeline { p.verifier = v; return p }

// WithSkipInstall skips the dependency install stage.
func (p *Pipeline) WithSkipInstall(skip bool) *Pipeline { p.skipInstall = skip; return p }

// Run executes the pipeline once. The returned report is always non-nil;
// the error is the first fatal stage error, if any.
func (p *Pipeline) Run(ctx context.Context) (*BuildReport, error) {
	report := newBuildReport()
	bs := &BuildState{
		Config: p.cfg,
		FS:     p.fs,
		Runner: p.runner,
		Report: report,
	}

	stages := []StageDef{
		{StagePrepareSource, p.stagePrepareSource},
		{StageInstallDeps, p.stageInstallDeps},
		{StageRunBuild, p.stageRunBuild},
		{StagePruneArtifacts, stagePruneArtifacts},
		{StagePrepareTarget, stagePrepareTarget},
		{StageStageArtifacts, stageStageArtifacts},
		{StageVerifyOutput, p.stageVerifyOutput},
	}

	slog.Info("Starting build-and-stage run",
		logfields.BuildID(report.ID),
		logfields.Manager(p.cfg.Toolchain.Manager),
		logfields.Target(p.cfg.Staging.TargetDir))

	err := p.runStages(ctx, bs, stages)
	report.finish(err)

	p.recorder.ObserveBuildDuration(report.Duration)
	p.recorder.IncBuildOutcome(string(report.Outcome))
	p.recorder.AddPrunedArtifacts(report.PrunedArtifacts)
	p.recorder.AddStagedFiles(report.StagedFiles)

	if err != nil {
		return report, err
	}
	slog.Info("Build-and-stage run completed",
		logfields.BuildID(report.ID),
		slog.Int("pruned", report.PrunedArtifacts),
		slog.Int("staged", report.StagedFiles),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

// runStages executes stages in order, recording timing and stopping on the
// first fatal error. Warnings are recorded and execution continues.
func (p *Pipeline) runStages(ctx context.Context, bs *BuildState, stages []StageDef) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := newCanceledStageError(st.Name, ctx.Err())
			bs.Report.recordStage(st.Name, 0, se)
			p.recorder.IncStageResult(string(st.Name), metrics.ResultCanceled)
			return se
		default:
		}

		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)

		var se *StageError
		if err != nil && !errors.As(err, &se) {
			// Wrap unknown errors as fatal by default.
			se = newFatalStageError(st.Name, err)
		}
		bs.Report.recordStage(st.Name, dur, se)
		p.recorder.ObserveStageDuration(string(st.Name), dur)

		if se == nil {
			p.recorder.IncStageResult(string(st.Name), metrics.ResultSuccess)
			continue
		}

		switch se.Kind {
		case StageErrorWarning:
			p.recorder.IncStageResult(string(st.Name), metrics.ResultWarning)
			slog.Warn("Stage completed with warning", logfields.Stage(string(st.Name)), logfields.Error(se.Err))
			continue
		case StageErrorCanceled:
			p.recorder.IncStageResult(string(st.Name), metrics.ResultCanceled)
			return se
		default:
			p.recorder.IncStageResult(string(st.Name), metrics.ResultFatal)
			slog.Error("Stage failed", logfields.Stage(string(st.Name)), logfields.Error(se.Err))
			return se
		}
	}
	return nil
}
