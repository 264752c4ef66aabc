package main

import (
	"context"

	"github.com/eringen/pubcorpus"
)

func runServe(ctx context.Context, args []string) error {
	fs, cfg, err := newFlags("serve")
	if err != nil {
		return err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "SQLite index path")
	fs.DurationVar(&cfg.ReloadInterval, "reload", cfg.ReloadInterval, "reload the corpus at this interval (0 disables)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app := pubcorpus.New(*cfg)
	defer app.Close()
	return app.Start(ctx)
}
