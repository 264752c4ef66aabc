package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// ErrNoEntry is reported for a post directory without a usable entry file.
var ErrNoEntry = errors.New("no entry file")

// LoaderConfig configures how post directories are discovered.
type LoaderConfig struct {
	// Extensions lists entry file extensions (defaults to .md and .markdown).
	Extensions []string
	// EntryName is preferred when a directory holds several candidates (defaults to index.md).
	EntryName string
	// Ignore holds glob patterns matched against both the slash path and the base name.
	Ignore []string
}

// Loader reads a corpus from a filesystem rooted at the corpus directory.
type Loader struct {
	fs         fs.FS
	extensions []string
	entryName  string
	ignore     []string
}

// NewLoader constructs a Loader for filesystem using cfg.
func NewLoader(filesystem fs.FS, cfg LoaderConfig) *Loader {
	exts := make([]string, 0, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = []string{".md", ".markdown"}
	}
	entry := strings.TrimSpace(cfg.EntryName)
	if entry == "" {
		entry = "index.md"
	}
	return &Loader{
		fs:         filesystem,
		extensions: exts,
		entryName:  entry,
		ignore:     append([]string(nil), cfg.Ignore...),
	}
}

// Load walks the corpus and parses every post directory. Per-post problems
// become issues on the returned Corpus; only walk failures and context
// cancellation are returned as errors.
func (l *Loader) Load(ctx context.Context) (*Corpus, error) {
	candidates := map[string][]string{}

	err := fs.WalkDir(l.fs, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == "." {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || l.ignored(p) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !l.isEntry(d.Name()) {
			return nil
		}
		dir := path.Dir(p)
		// Files at the corpus root (README, contribution notes) are not posts.
		if dir == "." {
			return nil
		}
		candidates[dir] = append(candidates[dir], p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("content loader walk: %w", err)
	}

	dirs := make([]string, 0, len(candidates))
	for dir := range candidates {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var (
		posts  []Post
		issues []Issue
	)
	for _, dir := range dirs {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		file, issue := l.pickEntry(dir, candidates[dir])
		if issue != nil {
			issues = append(issues, *issue)
		}
		post, postIssues, err := l.loadPost(dir, file)
		if err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Rule:     RuleFrontMatter,
				Path:     file,
				Slug:     path.Base(dir),
				Message:  err.Error(),
			})
			continue
		}
		posts = append(posts, post)
		issues = append(issues, postIssues...)
	}
	return NewCorpus(posts, issues), nil
}

func (l *Loader) loadPost(dir, file string) (Post, []Issue, error) {
	data, err := fs.ReadFile(l.fs, file)
	if err != nil {
		return Post{}, nil, fmt.Errorf("read %s: %w", file, err)
	}
	info, err := fs.Stat(l.fs, file)
	if err != nil {
		return Post{}, nil, fmt.Errorf("stat %s: %w", file, err)
	}
	return NewPost(dir, file, data, info.ModTime())
}

func (l *Loader) pickEntry(dir string, files []string) (string, *Issue) {
	sort.Strings(files)
	if len(files) == 1 {
		return files[0], nil
	}
	for _, f := range files {
		if path.Base(f) == l.entryName {
			return f, nil
		}
	}
	return files[0], &Issue{
		Severity: SeverityError,
		Rule:     RuleEntry,
		Path:     dir,
		Slug:     path.Base(dir),
		Message:  fmt.Sprintf("%v: %d candidate files and no %s; using %s", ErrNoEntry, len(files), l.entryName, path.Base(files[0])),
	}
}

func (l *Loader) isEntry(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range l.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (l *Loader) ignored(p string) bool {
	base := path.Base(p)
	for _, pattern := range l.ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if ok, _ := path.Match(pattern, p); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
