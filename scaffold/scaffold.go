// Package scaffold creates new post directories from embedded templates.
package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// Templates contains all scaffold template files.
// Files use Go text/template syntax and have a .tmpl suffix.
//
//go:embed all:templates
var Templates embed.FS

const (
	postRoot  = "templates/post"
	entryTmpl = "index.md.tmpl"
)

// ErrExists is returned by WritePost when the post directory already exists.
var ErrExists = errors.New("post directory already exists")

// PostData holds the values substituted into the post templates.
type PostData struct {
	Slug        string
	Title       string
	Description string
	Date        time.Time
	Categories  []string
	Tags        []string
	// EntryName is the file name the entry template is written as
	// (default "index.md").
	EntryName string
}

var funcs = template.FuncMap{
	// quote emits a double-quoted YAML scalar.
	"quote": strconv.Quote,
}

func parse(name string) (*template.Template, error) {
	raw, err := Templates.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	tmpl, err := template.New(filepath.Base(name)).Funcs(funcs).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return tmpl, nil
}

func (d PostData) withDefaults() PostData {
	if d.Date.IsZero() {
		d.Date = time.Now()
	}
	if d.EntryName == "" {
		d.EntryName = "index.md"
	}
	if d.Title == "" {
		d.Title = d.Slug
	}
	return d
}

// RenderPost writes the entry file for d to w.
func RenderPost(w io.Writer, d PostData) error {
	tmpl, err := parse(postRoot + "/" + entryTmpl)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, d.withDefaults())
}

// WritePost creates root/<slug>/ from the post templates and returns the
// path of the entry file. Existing directories are never overwritten; on
// failure the new directory is removed.
func WritePost(root string, d PostData) (string, error) {
	d = d.withDefaults()
	if d.Slug == "" || strings.ContainsAny(d.Slug, `/\`) || strings.HasPrefix(d.Slug, ".") {
		return "", fmt.Errorf("invalid slug %q", d.Slug)
	}
	dir := filepath.Join(root, d.Slug)
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("%s: %w", dir, ErrExists)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%s: %w", dir, ErrExists)
		}
		return "", err
	}

	var entry string
	err := fs.WalkDir(Templates, postRoot, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(postRoot, p)
		if err != nil {
			return err
		}
		if de.IsDir() {
			return os.MkdirAll(filepath.Join(dir, rel), 0o755)
		}

		out := filepath.Join(dir, strings.TrimSuffix(rel, ".tmpl"))
		if rel == entryTmpl {
			out = filepath.Join(dir, d.EntryName)
			entry = out
		}
		tmpl, err := parse(p)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, d); err != nil {
			return fmt.Errorf("execute template %s: %w", p, err)
		}
		return os.WriteFile(out, buf.Bytes(), 0o644)
	})
	if err != nil {
		// A partial post would block the retry with ErrExists.
		_ = os.RemoveAll(dir)
		return "", err
	}
	return entry, nil
}
