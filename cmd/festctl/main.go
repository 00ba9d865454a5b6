// Command festctl runs maintenance tasks against the festplanner database:
// migrations, bulk imports, artist metadata sync and role changes.
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/iliyamo/festplanner/internal/logging"
)

func main() {
	logger := logging.New(os.Stderr, os.Getenv("LOG_LEVEL"))
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "festctl",
		Usage:    "Manage festivals, lineups and users",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("festctl: %v", err)
	}
}
