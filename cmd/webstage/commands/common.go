package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/webstage/webstage/internal/config"
	"github.com/webstage/webstage/internal/gitsrc"
	"github.com/webstage/webstage/internal/pipeline"
	"github.com/webstage/webstage/internal/verify"
	"github.com/webstage/webstage/internal/workspace"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"webstage.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" default:"withargs" help:"Run the build-and-stage pipeline once"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild and restage whenever the project source changes"`
	Daemon  DaemonCmd  `cmd:"" help:"Run continuously: scheduled rebuilds, metrics and build history"`
	History HistoryCmd `cmd:"" help:"List recent builds from the history store"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// LoadConfig reads the configured file, falling back to defaults when the
// default config file is simply absent (so the tool runs with no input).
func LoadConfig(root *CLI) (*config.Config, error) {
	if _, err := os.Stat(root.Config); os.IsNotExist(err) && root.Config == "webstage.yaml" {
		return config.Default(), nil
	}
	return config.Load(root.Config)
}

// ResolveTargetDir determines the final target directory.
// Priority: CLI flag > configured staging.target_dir.
func ResolveTargetDir(cliTarget string, cfg *config.Config) string {
	if cliTarget != "" {
		return cliTarget
	}
	return cfg.Staging.TargetDir
}

// NewPipeline assembles a pipeline from config plus command-level options.
// Git-sourced builds check out into a workspace: long-running modes get a
// persistent one so later fetches are incremental pulls, one-shot builds an
// ephemeral one removed by the returned cleanup. cleanup is always safe to
// call.
func NewPipeline(cfg *config.Config, skipInstall, verifyOutput, longRunning bool) (*pipeline.Pipeline, func()) {
	p := pipeline.New(cfg).WithSkipInstall(skipInstall)
	cleanup := func() {}
	if cfg.Source.Repo != nil {
		var ws *workspace.Manager
		if longRunning {
			ws = workspace.NewPersistent("", "webstage-source")
		} else {
			ws = workspace.NewEphemeral("")
		}
		fetcher := gitsrc.NewFetcher(*cfg.Source.Repo, ws, cfg.Source.Dir)
		p = p.WithFetcher(fetcher)
		cleanup = func() {
			if err := fetcher.Cleanup(); err != nil {
				slog.Warn("Failed to remove checkout workspace", "error", err)
			}
		}
	}
	if verifyOutput {
		p = p.WithVerifier(verify.Checker{})
	}
	return p, cleanup
}
