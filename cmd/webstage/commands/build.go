package commands

import (
	"context"
	"os/signal"
	"syscall"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Target      string `short:"t" help:"Override the target staging directory"`
	SkipInstall bool   `help:"Skip the dependency install step"`
	Verify      bool   `help:"Verify staged index.html references after copying"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadConfig(root)
	if err != nil {
		return err
	}
	cfg.Staging.TargetDir = ResolveTargetDir(b.Target, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, cleanup := NewPipeline(cfg, b.SkipInstall, b.Verify, false)
	defer cleanup()

	_, err = p.Run(ctx)
	return err
}
