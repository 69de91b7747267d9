package commands

import (
	"context"
	"fmt"

	"github.com/webstage/webstage/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" default:"20" help:"Maximum number of builds to list"`
	DB    string `help:"History database path (defaults to daemon.history_db)"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadConfig(root)
	if err != nil {
		return err
	}

	dbPath := h.DB
	if dbPath == "" {
		if cfg.Daemon == nil || cfg.Daemon.HistoryDB == "" {
			return fmt.Errorf("no history database configured; pass --db or set daemon.history_db")
		}
		dbPath = cfg.Daemon.HistoryDB
	}

	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	records, err := store.Recent(context.Background(), h.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No builds recorded")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %-8s  %6dms  pruned=%d staged=%d  %s\n",
			rec.Start.Format("2006-01-02 15:04:05"),
			rec.Outcome, rec.DurationMS, rec.PrunedArtifacts, rec.StagedFiles, rec.BuildID)
	}
	return nil
}
