package main

import (
	"context"
	"fmt"
	"io"

	"github.com/eringen/pubcorpus"
)

func runIndex(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cfg, err := newFlags("index")
	if err != nil {
		return err
	}
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "SQLite index path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	corpus, report, err := loadCorpus(ctx, *cfg)
	if err != nil {
		return err
	}
	store, err := pubcorpus.NewStore(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := store.Sync(ctx, corpus.Posts())
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %s\n", cfg.DatabasePath, res)
	if !report.OK() {
		fmt.Fprintf(stdout, "corpus has %d errors; run pubcorpus check for details\n", len(report.Errors()))
	}
	return nil
}
