package scaffold

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eringen/pubcorpus/content"
)

func TestRenderPostParses(t *testing.T) {
	var buf bytes.Buffer
	err := RenderPost(&buf, PostData{
		Slug:        "python-generators",
		Title:       `Generators: "lazy" iteration`,
		Description: "yield, send and close",
		Date:        time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC),
		Categories:  []string{"python"},
		Tags:        []string{"generators", "iterators"},
	})
	if err != nil {
		t.Fatalf("RenderPost: %v", err)
	}

	post, issues, err := content.NewPost("python-generators", "python-generators/index.md", buf.Bytes(), time.Time{})
	if err != nil {
		t.Fatalf("NewPost: %v\n%s", err, buf.String())
	}
	if len(issues) != 0 {
		t.Errorf("issues = %v", issues)
	}
	if post.Slug != "python-generators" {
		t.Errorf("Slug = %q", post.Slug)
	}
	if post.Title != `Generators: "lazy" iteration` {
		t.Errorf("Title = %q", post.Title)
	}
	if want := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC); !post.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", post.Date, want)
	}
	if len(post.Tags) != 2 || post.Tags[0] != "generators" {
		t.Errorf("Tags = %v", post.Tags)
	}
	if len(post.Categories) != 1 || post.Categories[0] != "python" {
		t.Errorf("Categories = %v", post.Categories)
	}
}

func TestRenderPostEmptyTaxonomy(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPost(&buf, PostData{Slug: "notes", Date: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)}); err != nil {
		t.Fatalf("RenderPost: %v", err)
	}
	hdr, _, err := content.ParseEntry(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if hdr.String("title") != "notes" {
		t.Errorf("title = %q", hdr.String("title"))
	}
	if tags, err := content.StringSet(hdr["tags"]); err != nil || len(tags) != 0 {
		t.Errorf("tags = %v, %v", tags, err)
	}
}

func TestWritePost(t *testing.T) {
	root := t.TempDir()
	entry, err := WritePost(root, PostData{Slug: "closures", Title: "Closures", EntryName: "post.md"})
	if err != nil {
		t.Fatalf("WritePost: %v", err)
	}
	if want := filepath.Join(root, "closures", "post.md"); entry != want {
		t.Errorf("entry = %q, want %q", entry, want)
	}
	if _, err := os.Stat(entry); err != nil {
		t.Fatalf("entry not written: %v", err)
	}

	_, err = WritePost(root, PostData{Slug: "closures"})
	if !errors.Is(err, ErrExists) {
		t.Errorf("second WritePost error = %v, want ErrExists", err)
	}
}

func TestWritePostRejectsBadSlug(t *testing.T) {
	for _, slug := range []string{"", "a/b", "..", `a\b`} {
		if _, err := WritePost(t.TempDir(), PostData{Slug: slug}); err == nil {
			t.Errorf("WritePost(%q) succeeded", slug)
		}
	}
}

func TestWritePostCleansUpOnFailure(t *testing.T) {
	root := t.TempDir()
	if _, err := WritePost(root, PostData{Slug: "closures", EntryName: "missing/index.md"}); err == nil {
		t.Fatal("WritePost into a missing subdirectory succeeded")
	}
	if _, err := os.Stat(filepath.Join(root, "closures")); !os.IsNotExist(err) {
		t.Fatalf("partial post directory left behind: %v", err)
	}
	if _, err := WritePost(root, PostData{Slug: "closures"}); err != nil {
		t.Errorf("retry after failure: %v", err)
	}
}
