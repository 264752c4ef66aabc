package check

import (
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"net/url"
	"path"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/eringen/pubcorpus/content"
	"github.com/eringen/pubcorpus/markdown"
)

// imageRule checks that the header image and every image embedded in the
// body exist next to the entry file and decode as a known format.
type imageRule struct {
	fs fs.FS
}

func (imageRule) Name() string { return RuleImage }

func (r imageRule) Check(ctx context.Context, c *content.Corpus) []content.Issue {
	var issues []content.Issue
	for _, p := range c.Posts() {
		if ctx.Err() != nil {
			return issues
		}
		seen := map[string]bool{}
		refs := []string{}
		if p.Image != "" {
			refs = append(refs, p.Image)
		}
		for _, ref := range markdown.References([]byte(p.Body)) {
			if ref.Image {
				refs = append(refs, ref.Destination)
			}
		}
		for _, ref := range refs {
			if seen[ref] {
				continue
			}
			seen[ref] = true
			if msg := r.checkImage(p, ref); msg != "" {
				issues = append(issues, issue(content.SeverityError, RuleImage, p, "%s", msg))
			}
		}
	}
	return issues
}

func (r imageRule) checkImage(p content.Post, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if isRemote(ref) {
		if _, err := url.ParseRequestURI(ref); err != nil {
			return "image " + ref + ": invalid URL"
		}
		return ""
	}
	if isSiteRelative(ref) || strings.Contains(ref, ":") {
		return ""
	}
	name, ok := localPath(p.Dir, ref)
	if !ok {
		return "image " + ref + ": escapes the corpus root"
	}
	if strings.EqualFold(path.Ext(name), ".svg") {
		if _, err := fs.Stat(r.fs, name); err != nil {
			return "image " + ref + ": not found"
		}
		return ""
	}
	f, err := r.fs.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "image " + ref + ": not found"
		}
		return "image " + ref + ": " + err.Error()
	}
	defer f.Close()
	if _, _, err := image.DecodeConfig(f); err != nil {
		return "image " + ref + ": cannot decode: " + err.Error()
	}
	return ""
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isSiteRelative(ref string) bool {
	return strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//")
}

// localPath resolves ref against the post directory, dropping any query or
// fragment. It reports false when the result leaves the corpus root.
func localPath(dir, ref string) (string, bool) {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}
	name := path.Clean(path.Join(dir, ref))
	if name == ".." || strings.HasPrefix(name, "../") {
		return "", false
	}
	return name, true
}
