package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/volumefind/internal/engine"
	"github.com/standardbeagle/volumefind/internal/persistence"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "index the configured roots, then print live changes until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "persist-dir", Usage: "directory for the on-disk index snapshot; empty disables it"},
		},
		Action: runWatch,
	}
}

func runWatch(c *cli.Context) error {
	log = newLogger(c.Bool("verbose"))

	cfg, err := loadOptions(c)
	if err != nil {
		return err
	}
	cfg.EnableMonitoring = true

	var persist persistence.IndexPersistence
	if dir := c.String("persist-dir"); dir != "" {
		persist = persistence.New(persistence.Config{Dir: dir, Compress: cfg.CompressIndex, Logger: log})
	}

	eng := engine.New(engine.Config{Logger: log, Persistence: persist})
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stats, err := eng.StartIndexing(ctx, cfg)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "indexed %d records across %d volumes, watching for changes...\n", stats.RecordCount, stats.VolumesIndexed)

	changes, unsubscribe := eng.SubscribeChanges(256)
	defer unsubscribe()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(os.Stderr, "received %v, shutting down\n", sig)
			eng.StopIndexing()
			return nil
		case ev, ok := <-changes:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case engine.FileRenamed:
				fmt.Printf("%s\t%s -> %s\n", ev.Kind, ev.OldPath, ev.NewPath)
			default:
				fmt.Printf("%s\t%s\n", ev.Kind, ev.NewPath)
			}
		}
	}
}
