package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/volumefind/internal/config"
	"github.com/standardbeagle/volumefind/internal/engine"
	"github.com/standardbeagle/volumefind/internal/persistence"
	"github.com/standardbeagle/volumefind/internal/record"
	"github.com/standardbeagle/volumefind/internal/search"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "index the configured roots and run one query",
		ArgsUsage: "<pattern>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ext", Usage: "extension filter, without the dot (e.g. \"txt\")"},
			&cli.StringFlag{Name: "base-path", Usage: "restrict results to this directory"},
			&cli.BoolFlag{Name: "recursive", Usage: "include subdirectories of --base-path", Value: true},
			&cli.BoolFlag{Name: "regex", Usage: "treat <pattern> as a regular expression"},
			&cli.BoolFlag{Name: "case-sensitive", Usage: "match case exactly"},
			&cli.BoolFlag{Name: "dirs", Usage: "include directories in results"},
			&cli.BoolFlag{Name: "dirs-only", Usage: "match directories only, not files"},
			&cli.BoolFlag{Name: "hidden", Usage: "include hidden files/directories"},
			&cli.BoolFlag{Name: "system", Usage: "include system files/directories"},
			&cli.IntFlag{Name: "max-results", Usage: "stop after this many matches (0 = unlimited)"},
			&cli.BoolFlag{Name: "json", Usage: "print results as a JSON array"},
			&cli.StringFlag{Name: "persist-dir", Usage: "directory for the on-disk index snapshot; empty disables it"},
		},
		Action: runSearch,
	}
}

func runSearch(c *cli.Context) error {
	pattern := c.Args().First()
	if pattern == "" && c.String("ext") == "" && c.String("base-path") == "" {
		return errors.New("usage: volumefind search <pattern> (or --ext/--base-path)")
	}

	log = newLogger(c.Bool("verbose"))

	cfg, err := loadOptions(c)
	if err != nil {
		return err
	}
	cfg.EnableMonitoring = false

	var persist persistence.IndexPersistence
	if dir := c.String("persist-dir"); dir != "" {
		persist = persistence.New(persistence.Config{Dir: dir, Compress: cfg.CompressIndex, Logger: log})
	}

	eng := engine.New(engine.Config{Logger: log, Persistence: persist})
	defer eng.Close()

	ctx := context.Background()
	if _, err := eng.StartIndexing(ctx, cfg); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	dirsOnly := c.Bool("dirs-only")
	q := search.Query{
		Text:                  pattern,
		CaseSensitive:         c.Bool("case-sensitive"),
		UseRegex:              c.Bool("regex"),
		BasePath:              c.String("base-path"),
		IncludeSubdirectories: c.Bool("recursive"),
		ExtensionFilter:       c.String("ext"),
		MaxResults:            c.Int("max-results"),
		IncludeFiles:          !dirsOnly,
		IncludeDirectories:    c.Bool("dirs") || dirsOnly,
		IncludeHidden:         c.Bool("hidden"),
		IncludeSystem:         c.Bool("system"),
	}

	result := eng.Search(ctx, q)
	if result.Failed {
		return fmt.Errorf("invalid query: %s", result.FailureMessage)
	}

	var matches []record.FullRecord
	for {
		rec, ok, err := result.Files()
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if !ok {
			break
		}
		matches = append(matches, rec)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}

	for _, rec := range matches {
		fmt.Println(rec.Path)
	}
	if result.HasMore {
		fmt.Fprintf(os.Stderr, "(more results available; raise --max-results)\n")
	}
	return nil
}

// loadOptions merges the project's .volumefind.kdl file with the global
// --root/--drive flag overrides, in that priority order (flags win).
func loadOptions(c *cli.Context) (config.IndexingOptions, error) {
	root, err := os.Getwd()
	if err != nil {
		return config.IndexingOptions{}, err
	}

	opts, err := config.LoadKDL(root)
	if err != nil {
		return config.IndexingOptions{}, err
	}

	if dirs := c.StringSlice("root"); len(dirs) > 0 {
		opts.SpecificDirectories = dirs
	}
	if drives := c.StringSlice("drive"); len(drives) > 0 {
		opts.DriveLetters = drives
	}
	return opts, opts.Validate()
}
