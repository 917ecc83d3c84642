package main

import (
	"log/slog"
	"os"

	"github.com/crateship/crateship/internal/cli"
)

// The entry point for the crateship CLI.
//
// Executes the root command and exits with a stage-specific non-zero code
// when the build pipeline fails, so callers can script against the failing
// stage.
func main() {
	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(cli.ExitCode(err))
	}
}
