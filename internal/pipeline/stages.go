package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/webstage/webstage/internal/artifact"
	"github.com/webstage/webstage/internal/toolchain"
)

// stagePrepareSource resolves the project directory, fetching from git first
// when a fetcher is configured, and verifies it exists.
func (p *Pipeline) stagePrepareSource(ctx context.Context, bs *BuildState) error {
	if p.fetcher != nil {
		dir, err := p.fetcher.Fetch(ctx)
		if err != nil {
			return newFatalStageError(StagePrepareSource, fmt.Errorf("%w: fetch source: %w", ErrEnvironment, err))
		}
		bs.SourceDir = dir
	} else {
		bs.SourceDir = bs.Config.Source.Dir
	}

	info, err := bs.FS.Stat(bs.SourceDir)
	if err != nil {
		return newFatalStageError(StagePrepareSource, fmt.Errorf("%w: project directory %s: %w", ErrEnvironment, bs.SourceDir, err))
	}
	if !info.IsDir() {
		return newFatalStageError(StagePrepareSource, fmt.Errorf("%w: %s is not a directory", ErrEnvironment, bs.SourceDir))
	}
	return nil
}

// stageInstallDeps runs the package manager install command in the project directory.
func (p *Pipeline) stageInstallDeps(ctx context.Context, bs *BuildState) error {
	if p.skipInstall {
		return nil
	}
	if err := bs.Runner.Install(ctx, bs.SourceDir); err != nil {
		return newFatalStageError(StageInstallDeps, classifyToolchainError(err))
	}
	return nil
}

// stageRunBuild runs the package manager build command in the project directory.
func (p *Pipeline) stageRunBuild(ctx context.Context, bs *BuildState) error {
	if err := bs.Runner.Build(ctx, bs.SourceDir); err != nil {
		return newFatalStageError(StageRunBuild, classifyToolchainError(err))
	}
	return nil
}

// classifyToolchainError maps runner failures onto the pipeline error taxonomy:
// a missing binary is an environment problem, a non-zero exit a build problem.
func classifyToolchainError(err error) error {
	if errors.Is(err, toolchain.ErrToolchainNotFound) {
		return fmt.Errorf("%w: %w", ErrEnvironment, err)
	}
	return fmt.Errorf("%w: %w", ErrBuild, err)
}

// stagePruneArtifacts deletes generated files matching the configured
// patterns from the build output directory.
func stagePruneArtifacts(_ context.Context, bs *BuildState) error {
	removed, err := artifact.Prune(bs.FS, bs.BuildDir(), bs.Config.Staging.Prune)
	bs.Report.PrunedArtifacts = len(removed)
	if err != nil {
		return newFatalStageError(StagePruneArtifacts, fmt.Errorf("%w: %w", ErrFilesystem, err))
	}
	return nil
}

// stagePrepareTarget clears and recreates the target directory.
func stagePrepareTarget(_ context.Context, bs *BuildState) error {
	if err := artifact.PrepareTarget(bs.FS, bs.Config.Staging.TargetDir); err != nil {
		return newFatalStageError(StagePrepareTarget, fmt.Errorf("%w: %w", ErrFilesystem, err))
	}
	return nil
}

// stageStageArtifacts copies the configured build output entries into the target.
func stageStageArtifacts(_ context.Context, bs *BuildState) error {
	target := bs.Config.Staging.TargetDir
	if err := artifact.CopyEntries(bs.FS, bs.BuildDir(), target, bs.Config.Staging.Entries); err != nil {
		return newFatalStageError(StageStageArtifacts, fmt.Errorf("%w: %w", ErrFilesystem, err))
	}

	staged := 0
	if err := bs.FS.WalkFiles(target, func(string, fs.DirEntry) error {
		staged++
		return nil
	}); err == nil {
		bs.Report.StagedFiles = staged
	}
	return nil
}

// stageVerifyOutput checks staged references when a verifier is configured.
// Problems are warnings only; the staged output is still usable.
func (p *Pipeline) stageVerifyOutput(_ context.Context, bs *BuildState) error {
	if p.verifier == nil {
		return nil
	}
	problems, err := p.verifier.Verify(bs.Config.Staging.TargetDir)
	if err != nil {
		return newWarnStageError(StageVerifyOutput, fmt.Errorf("%w: %w", ErrVerification, err))
	}
	if len(problems) > 0 {
		return newWarnStageError(StageVerifyOutput, fmt.Errorf("%w: %s", ErrVerification, strings.Join(problems, "; ")))
	}
	return nil
}
