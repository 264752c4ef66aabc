package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/eringen/pubcorpus"
	"github.com/eringen/pubcorpus/check"
	"github.com/eringen/pubcorpus/content"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1], os.Args[2:], os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, check.ErrCorpusInvalid):
		// The report has already been printed.
		stop()
		os.Exit(1)
	case errors.Is(err, flag.ErrHelp):
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, stdout io.Writer) error {
	switch cmd {
	case "check":
		return runCheck(ctx, args, stdout)
	case "new":
		return runNew(ctx, args, stdout)
	case "list":
		return runList(ctx, args, stdout)
	case "index":
		return runIndex(ctx, args, stdout)
	case "serve":
		return runServe(ctx, args)
	case "version":
		fmt.Fprintf(stdout, "pubcorpus %s\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `pubcorpus - index, check and preview a corpus of Markdown posts

Usage:
  pubcorpus <command> [flags] [arguments]

Commands:
  check     Check the corpus and exit 1 when it has errors
  new       Create a post directory from the built-in template
  list      List the posts in the corpus
  index     Sync the corpus into the SQLite index
  serve     Run the preview server
  version   Print the pubcorpus version
  help      Show this help message

Configuration is read from PUBCORPUS_* environment variables; flags
override them. Run "pubcorpus <command> -h" for the flags of a command.

Examples:
  pubcorpus check -dir content -strict
  pubcorpus new -title "Python Generators" -tags python,iterators python-generators
  pubcorpus serve -addr :8080`)
}

// newFlags returns a flag set preloaded with the environment config and the
// -dir flag every command shares.
func newFlags(name string) (*flag.FlagSet, *pubcorpus.SiteConfig, error) {
	cfg, err := pubcorpus.ConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.ContentDir, "dir", cfg.ContentDir, "corpus root directory")
	return fs, &cfg, nil
}

// loadCorpus loads and checks the corpus described by cfg.
func loadCorpus(ctx context.Context, cfg pubcorpus.SiteConfig) (*content.Corpus, *check.Report, error) {
	fsys, err := cfg.ContentFS()
	if err != nil {
		return nil, nil, err
	}
	checker, err := cfg.NewChecker(fsys)
	if err != nil {
		return nil, nil, err
	}
	return pubcorpus.LoadAndCheck(ctx, cfg, fsys, checker)
}
