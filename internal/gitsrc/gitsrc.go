// Package gitsrc fetches the front-end project from a git repository into a
// workspace directory before building, for setups where the project is not
// checked out next to the staging tool.
package gitsrc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/webstage/webstage/internal/config"
	"github.com/webstage/webstage/internal/logfields"
	"github.com/webstage/webstage/internal/workspace"
)

// Fetcher clones or updates the configured repository and returns the local
// project directory to build. It implements pipeline.SourceFetcher.
type Fetcher struct {
	repo   config.RepoConfig
	ws     *workspace.Manager
	subdir string // relative project directory inside the checkout, "" for repo root
}

// NewFetcher creates a Fetcher cloning into the given workspace manager.
// subdir is the project directory inside the repository (may be empty).
func NewFetcher(repo config.RepoConfig, ws *workspace.Manager, subdir string) *Fetcher {
	return &Fetcher{repo: repo, ws: ws, subdir: subdir}
}

// Fetch clones the repository into the workspace, or pulls when a previous
// checkout is present (persistent workspaces). Returns the project directory.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	root, err := f.ws.Create()
	if err != nil {
		return "", err
	}

	checkout := filepath.Join(root, "source")
	if _, err := os.Stat(filepath.Join(checkout, ".git")); err == nil {
		if err := f.update(ctx, checkout); err != nil {
			return "", err
		}
	} else {
		if err := f.clone(ctx, checkout); err != nil {
			return "", err
		}
	}

	if f.subdir == "" {
		return checkout, nil
	}
	return filepath.Join(checkout, f.subdir), nil
}

// Cleanup removes an ephemeral checkout workspace after the build has been
// staged. Persistent workspaces are left in place.
func (f *Fetcher) Cleanup() error {
	return f.ws.Cleanup()
}

func (f *Fetcher) clone(ctx context.Context, checkout string) error {
	slog.Debug("Cloning source repository", logfields.Path(checkout), slog.String("url", f.repo.URL))
	if err := os.RemoveAll(checkout); err != nil {
		return fmt.Errorf("failed to remove existing checkout: %w", err)
	}

	opts := &git.CloneOptions{URL: f.repo.URL, Depth: 1}
	if f.repo.Branch != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + f.repo.Branch)
		opts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, checkout, false, opts)
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", f.repo.URL, err)
	}
	if ref, herr := repo.Head(); herr == nil {
		slog.Info("Source repository cloned", slog.String("url", f.repo.URL), slog.String("commit", ref.Hash().String()[:8]))
	}
	return nil
}

func (f *Fetcher) update(ctx context.Context, checkout string) error {
	repo, err := git.PlainOpen(checkout)
	if err != nil {
		return fmt.Errorf("failed to open existing checkout: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("failed to update checkout: %w", err)
	}
	slog.Debug("Source repository updated", logfields.Path(checkout))
	return nil
}
