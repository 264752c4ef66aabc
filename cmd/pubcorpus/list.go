package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/bytedance/sonic"

	"github.com/eringen/pubcorpus/content"
)

type listedPost struct {
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Date       string   `json:"date"`
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
	File       string   `json:"file"`
}

func runList(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cfg, err := newFlags("list")
	if err != nil {
		return err
	}
	tag := fs.String("tag", "", "only posts with this tag")
	category := fs.String("category", "", "only posts in this category")
	format := fs.String("format", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fsys, err := cfg.ContentFS()
	if err != nil {
		return err
	}
	corpus, err := content.NewLoader(fsys, cfg.LoaderConfig()).Load(ctx)
	if err != nil {
		return err
	}

	var posts []content.Post
	switch {
	case *tag != "":
		posts = corpus.ByTag(*tag)
	case *category != "":
		posts = corpus.ByCategory(*category)
	default:
		posts = corpus.Posts()
	}
	if *tag != "" && *category != "" {
		var both []content.Post
		for _, p := range posts {
			if p.HasCategory(*category) {
				both = append(both, p)
			}
		}
		posts = both
	}
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].Slug < posts[j].Slug
	})

	out := make([]listedPost, 0, len(posts))
	for _, p := range posts {
		lp := listedPost{Slug: p.Slug, Title: p.Title, Categories: p.Categories, Tags: p.Tags, File: p.File}
		if !p.Date.IsZero() {
			lp.Date = p.Date.Format("2006-01-02")
		}
		out = append(out, lp)
	}

	switch *format {
	case "json":
		enc := sonic.ConfigStd.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "text":
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tSLUG\tTITLE\tTAGS")
		for _, p := range out {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Date, p.Slug, p.Title, strings.Join(p.Tags, ","))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
}
