package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/webstage/webstage/internal/daemon"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	SkipInstall bool `help:"Skip the dependency install step on rebuilds"`
	Verify      bool `help:"Verify staged index.html references after copying"`
}

func (dc *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadConfig(root)
	if err != nil {
		return err
	}
	if cfg.Daemon == nil {
		return fmt.Errorf("daemon mode requires a daemon section in %s", root.Config)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg.Daemon, nil)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}
	// The pipeline reports into the daemon's metrics registry.
	p, cleanup := NewPipeline(cfg, dc.SkipInstall, dc.Verify, true)
	defer cleanup()
	d.SetBuilder(p.WithRecorder(d.Recorder()))

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(ctx)
	}()

	slog.Info("Daemon started, waiting for shutdown signal...")

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("daemon error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping daemon...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := d.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	slog.Info("Daemon stopped successfully")
	return nil
}
