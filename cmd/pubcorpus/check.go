package main

import (
	"context"
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	"github.com/eringen/pubcorpus/check"
)

func runCheck(ctx context.Context, args []string, stdout io.Writer) error {
	fs, cfg, err := newFlags("check")
	if err != nil {
		return err
	}
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "treat warnings as errors")
	fs.StringVar(&cfg.SchemaPath, "schema", cfg.SchemaPath, "JSON Schema file for post headers")
	format := fs.String("format", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *format != "text" && *format != "json" {
		return fmt.Errorf("unknown format %q", *format)
	}

	_, report, err := loadCorpus(ctx, *cfg)
	if err != nil {
		return err
	}
	if *format == "json" {
		enc := sonic.ConfigStd.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		writeReport(stdout, report)
	}
	return report.Err()
}

func writeReport(w io.Writer, r *check.Report) {
	for _, issue := range r.Issues {
		fmt.Fprintln(w, issue.String())
	}
	fmt.Fprintf(w, "%d posts, %d errors, %d warnings\n", r.Posts, len(r.Errors()), len(r.Warnings()))
}
