package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/webstage/webstage/internal/config"
)

// Sentinel errors for toolchain invocation.
var (
	// ErrToolchainNotFound indicates the package manager executable was not detected on PATH.
	ErrToolchainNotFound = errors.New("package manager not found")
	// ErrInstallFailed indicates the install command returned a non-zero exit status.
	ErrInstallFailed = errors.New("dependency install failed")
	// ErrBuildFailed indicates the build command returned a non-zero exit status.
	ErrBuildFailed = errors.New("build command failed")
)

// Runner abstracts how the external package manager is invoked. This allows
// swapping out the real binary (BinaryRunner) with a stub in tests without
// changing stage orchestration.
type Runner interface {
	// Install runs the dependency install command inside dir.
	Install(ctx context.Context, dir string) error
	// Build runs the build command inside dir.
	Build(ctx context.Context, dir string) error
}

// BinaryRunner invokes the configured package manager binary present on PATH.
type BinaryRunner struct {
	Manager     string
	InstallArgs []string
	BuildArgs   []string
}

// NewBinaryRunner constructs a BinaryRunner from toolchain configuration.
func NewBinaryRunner(tc config.ToolchainConfig) *BinaryRunner {
	return &BinaryRunner{Manager: tc.Manager, InstallArgs: tc.InstallArgs, BuildArgs: tc.BuildArgs}
}

// installArgs returns the argument list for the install invocation.
func (r *BinaryRunner) installArgs() []string {
	args := []string{"install"}
	return append(args, r.InstallArgs...)
}

// buildArgs returns the argument list for the build invocation.
// npm requires the `run` prefix for package scripts; yarn and pnpm accept it too.
func (r *BinaryRunner) buildArgs() []string {
	args := []string{"run", "build"}
	return append(args, r.BuildArgs...)
}

func (r *BinaryRunner) Install(ctx context.Context, dir string) error {
	if err := r.run(ctx, dir, r.installArgs()); err != nil {
		return fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}
	return nil
}

func (r *BinaryRunner) Build(ctx context.Context, dir string) error {
	if err := r.run(ctx, dir, r.buildArgs()); err != nil {
		return fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	return nil
}

func (r *BinaryRunner) run(ctx context.Context, dir string, args []string) error {
	if _, err := exec.LookPath(r.Manager); err != nil {
		return fmt.Errorf("%w: %w", ErrToolchainNotFound, err)
	}

	cmd := exec.CommandContext(ctx, r.Manager, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("Invoking package manager", "manager", r.Manager, "args", args, "dir", dir)

	err := cmd.Run()

	// Always surface toolchain output when non-empty; the wrapped tool's own
	// diagnostics are the only error detail the pipeline adds nothing to.
	outStr := stdout.String()
	errStr := stderr.String()
	if outStr != "" {
		slog.Debug("toolchain stdout", "output", outStr)
	}
	if errStr != "" {
		slog.Warn("toolchain stderr", "error_output", errStr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			output := errStr
			if output == "" {
				output = outStr
			}
			if output != "" {
				return fmt.Errorf("%s exited with code %d: %s", r.Manager, exitErr.ExitCode(), output)
			}
			return fmt.Errorf("%s exited with code %d", r.Manager, exitErr.ExitCode())
		}
		return fmt.Errorf("%s invocation failed: %w", r.Manager, err)
	}

	return nil
}
