// Command volumefind is the thin CLI adapter over internal/engine:
// "search" runs one indexing pass plus a single query, "watch" keeps
// indexing and monitoring running and prints live change events.
// Grounded on the teacher's cmd/lci (urfave/cli App + one file per
// subcommand, signal-driven graceful shutdown for the long-running
// command).
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/standardbeagle/volumefind/internal/logging"
)

var log *zap.SugaredLogger

func main() {
	app := &cli.App{
		Name:                   "volumefind",
		Usage:                  "instant file search over an indexed NTFS volume or directory tree",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "directory to index (repeatable); defaults to the current directory",
			},
			&cli.StringSliceFlag{
				Name:  "drive",
				Usage: "drive letter to index via raw volume access (Windows only, repeatable)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			searchCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "volumefind:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.SugaredLogger {
	if verbose {
		return logging.NewDevelopment()
	}
	return logging.NewProduction()
}
