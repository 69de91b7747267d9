package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/webstage/webstage/cmd/webstage/commands"
	"github.com/webstage/webstage/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("webstage"),
		kong.Description("Build a front-end project and stage its filtered artifacts into a target directory."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	if err := ctx.Run(&commands.Global{Logger: slog.Default()}, &cli); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
