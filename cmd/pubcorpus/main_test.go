package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/eringen/pubcorpus/check"
)

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

const decorators = `---
title: Python Decorators
description: Wrapping functions.
date: 2021-03-04
tags: [python, functions]
categories: [python]
---
Body.
`

func runCmd(t *testing.T, cmd string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), cmd, args, &out)
	return out.String(), err
}

func TestCheckClean(t *testing.T) {
	root := writeCorpus(t, map[string]string{"decorators/index.md": decorators})
	out, err := runCmd(t, "check", "-dir", root)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 posts, 0 errors, 0 warnings") {
		t.Errorf("output = %q", out)
	}
}

func TestCheckFailsOnDuplicateSlug(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"decorators/index.md": decorators,
		"copy/index.md":       strings.Replace(decorators, "title:", "slug: decorators\ntitle:", 1),
	})
	out, err := runCmd(t, "check", "-dir", root)
	if !errors.Is(err, check.ErrCorpusInvalid) {
		t.Fatalf("err = %v, want ErrCorpusInvalid", err)
	}
	if !strings.Contains(out, "[slug-unique]") {
		t.Errorf("output = %q", out)
	}
}

func TestCheckJSON(t *testing.T) {
	root := writeCorpus(t, map[string]string{"decorators/index.md": decorators})
	out, err := runCmd(t, "check", "-dir", root, "-format", "json")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	var report check.Report
	if err := sonic.UnmarshalString(out, &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.RunID == "" || report.Posts != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestNewThenCheck(t *testing.T) {
	root := writeCorpus(t, map[string]string{"decorators/index.md": decorators})
	out, err := runCmd(t, "new", "-dir", root, "-title", "Generators", "-tags", "python,iterators", "generators")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !strings.Contains(out, "created") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(root, "generators", "index.md")); err != nil {
		t.Fatalf("entry not created: %v", err)
	}

	if _, err := runCmd(t, "check", "-dir", root); err != nil {
		t.Errorf("check after new: %v", err)
	}
	if _, err := runCmd(t, "new", "-dir", root, "decorators"); err == nil {
		t.Error("new with a used slug succeeded")
	}
}

func TestNewRejectsSlugDifferingInCase(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"Decorators/index.md": strings.Replace(decorators, "title:", "slug: Decorators\ntitle:", 1),
	})
	if _, err := runCmd(t, "new", "-dir", root, "decorators"); err == nil {
		t.Fatal("new accepted a slug that differs only in case")
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("corpus root has %d entries, want 1", len(entries))
	}
}

func TestList(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"decorators/index.md": decorators,
		"closures/index.md":   "---\ntitle: Closures\ndate: 2020-01-01\ntags: [scope]\n---\n",
	})
	out, err := runCmd(t, "list", "-dir", root, "-format", "json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var posts []listedPost
	if err := sonic.UnmarshalString(out, &posts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(posts) != 2 || posts[0].Slug != "decorators" || posts[1].Date != "2020-01-01" {
		t.Errorf("posts = %+v", posts)
	}

	out, err = runCmd(t, "list", "-dir", root, "-tag", "scope")
	if err != nil {
		t.Fatalf("list -tag: %v", err)
	}
	if !strings.Contains(out, "closures") || strings.Contains(out, "decorators") {
		t.Errorf("filtered list = %q", out)
	}
}

func TestIndex(t *testing.T) {
	root := writeCorpus(t, map[string]string{"decorators/index.md": decorators})
	db := filepath.Join(t.TempDir(), "index.db")
	out, err := runCmd(t, "index", "-dir", root, "-db", db)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if !strings.Contains(out, "1 added") {
		t.Errorf("output = %q", out)
	}
	out, err = runCmd(t, "index", "-dir", root, "-db", db)
	if err != nil {
		t.Fatalf("second index: %v", err)
	}
	if !strings.Contains(out, "1 unchanged") {
		t.Errorf("output = %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := runCmd(t, "frobnicate"); err == nil {
		t.Error("unknown command succeeded")
	}
}
