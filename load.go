package pubcorpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/eringen/pubcorpus/check"
	"github.com/eringen/pubcorpus/content"
)

// ContentFS returns the corpus root as an fs.FS, failing early when the
// directory does not exist.
func (c SiteConfig) ContentFS() (fs.FS, error) {
	info, err := os.Stat(c.ContentDir)
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content dir %s: not a directory", c.ContentDir)
	}
	return os.DirFS(c.ContentDir), nil
}

// NewChecker builds the corpus checker described by the config, compiling
// the header schema when SchemaPath is set.
func (c SiteConfig) NewChecker(fsys fs.FS, extra ...check.Rule) (*check.Checker, error) {
	opts := check.Options{
		FS:         fsys,
		PostPrefix: c.PostPrefix,
		Strict:     c.Strict,
	}
	if c.SchemaPath != "" {
		schema, err := check.LoadSchema(c.SchemaPath)
		if err != nil {
			return nil, err
		}
		opts.Schema = schema
	}
	return check.New(opts, extra...), nil
}

// LoadAndCheck loads the corpus in fsys and runs checker over it.
func LoadAndCheck(ctx context.Context, cfg SiteConfig, fsys fs.FS, checker *check.Checker) (*content.Corpus, *check.Report, error) {
	corpus, err := content.NewLoader(fsys, cfg.LoaderConfig()).Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load corpus: %w", err)
	}
	report, err := checker.Run(ctx, corpus)
	if err != nil {
		return nil, nil, fmt.Errorf("check corpus: %w", err)
	}
	return corpus, report, nil
}
