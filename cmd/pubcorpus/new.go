package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goslug "github.com/goliatone/go-slug"

	"github.com/eringen/pubcorpus/content"
	"github.com/eringen/pubcorpus/scaffold"
)

func runNew(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cfg, err := newFlags("new")
	if err != nil {
		return err
	}
	title := fs.String("title", "", "post title (defaults to the slug)")
	description := fs.String("description", "", "post description")
	category := fs.String("category", "", "comma-separated categories")
	tags := fs.String("tags", "", "comma-separated tags")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: pubcorpus new [flags] <slug>")
	}

	slug, err := goslug.Normalize(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("slug %q: %w", fs.Arg(0), err)
	}
	if slug == "" {
		return fmt.Errorf("slug %q normalizes to nothing", fs.Arg(0))
	}

	if err := os.MkdirAll(cfg.ContentDir, 0o755); err != nil {
		return err
	}
	// Only the loader runs here; existing check issues must not block a new post.
	fsys, err := cfg.ContentFS()
	if err != nil {
		return err
	}
	corpus, err := content.NewLoader(fsys, cfg.LoaderConfig()).Load(ctx)
	if err != nil {
		return err
	}
	for _, p := range corpus.Posts() {
		if strings.EqualFold(p.Slug, slug) {
			return fmt.Errorf("slug %q is already used by %s", slug, p.File)
		}
	}

	categories, err := content.StringSet(*category)
	if err != nil {
		return err
	}
	tagList, err := content.StringSet(*tags)
	if err != nil {
		return err
	}
	if *title == "" {
		*title = strings.ReplaceAll(slug, "-", " ")
	}

	entry, err := scaffold.WritePost(cfg.ContentDir, scaffold.PostData{
		Slug:        slug,
		Title:       *title,
		Description: *description,
		Categories:  categories,
		Tags:        tagList,
		EntryName:   cfg.EntryName,
	})
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(".", entry)
	if err != nil {
		rel = entry
	}
	fmt.Fprintf(stdout, "created %s\n", rel)
	return nil
}
