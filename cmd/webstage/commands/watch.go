package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/webstage/webstage/internal/watch"
)

// WatchCmd implements the 'watch' command: build once, then rebuild on
// source changes until interrupted.
type WatchCmd struct {
	Target      string `short:"t" help:"Override the target staging directory"`
	SkipInstall bool   `help:"Skip the dependency install step on rebuilds"`
	Verify      bool   `help:"Verify staged index.html references after copying"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadConfig(root)
	if err != nil {
		return err
	}
	cfg.Staging.TargetDir = ResolveTargetDir(w.Target, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, cleanup := NewPipeline(cfg, w.SkipInstall, w.Verify, true)
	defer cleanup()

	var mu sync.Mutex // one build at a time
	runBuild := func() {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if _, err := p.Run(ctx); err != nil {
			slog.Error("Rebuild failed; continuing to watch", "error", err)
		}
	}

	// Initial build; failures keep the watcher alive so the next save retries.
	runBuild()

	watcher, err := watch.New(cfg.Source.Dir, cfg.Toolchain.OutputDir, runBuild)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			slog.Warn("Failed to stop watcher", "error", err)
		}
	}()

	slog.Info("Watching for source changes, press Ctrl-C to stop")
	<-ctx.Done()
	return nil
}
