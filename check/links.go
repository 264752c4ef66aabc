package check

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"strings"

	"github.com/eringen/pubcorpus/content"
	"github.com/eringen/pubcorpus/markdown"
)

// linksRule resolves links that point back into the corpus: "/<prefix>/<slug>/"
// must name a known post, "../<slug>/" must name a sibling post and relative
// file links must exist in the post directory.
type linksRule struct {
	fs     fs.FS
	prefix string
}

func (linksRule) Name() string { return RuleLinks }

func (r linksRule) Check(ctx context.Context, c *content.Corpus) []content.Issue {
	dirs := make(map[string]bool, c.Len())
	for _, p := range c.Posts() {
		dirs[p.Dir] = true
	}
	var issues []content.Issue
	for _, p := range c.Posts() {
		if ctx.Err() != nil {
			return issues
		}
		var refs []string
		for _, l := range p.Links {
			refs = append(refs, l.URL)
		}
		for _, ref := range markdown.References([]byte(p.Body)) {
			if !ref.Image {
				refs = append(refs, ref.Destination)
			}
		}
		seen := map[string]bool{}
		for _, ref := range refs {
			if seen[ref] {
				continue
			}
			seen[ref] = true
			if msg := r.resolve(c, dirs, p, ref); msg != "" {
				issues = append(issues, issue(content.SeverityError, RuleLinks, p, "link %s: %s", ref, msg))
			}
		}
	}
	return issues
}

func (r linksRule) resolve(c *content.Corpus, dirs map[string]bool, p content.Post, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || isRemote(ref) || strings.Contains(ref, ":") || strings.HasPrefix(ref, "//") {
		return ""
	}
	if isSiteRelative(ref) {
		return r.resolvePostURL(c, ref)
	}

	name, ok := localPath(p.Dir, ref)
	if !ok {
		return "escapes the corpus root"
	}
	if dirs[name] || (path.Ext(name) == "" && postExists(c, path.Base(name))) {
		return ""
	}
	if r.fs == nil {
		return ""
	}
	if _, err := fs.Stat(r.fs, name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if path.Ext(name) == "" {
				return "no post or file named " + name
			}
			return "file " + name + " not found"
		}
		return err.Error()
	}
	return ""
}

func (r linksRule) resolvePostURL(c *content.Corpus, ref string) string {
	if r.prefix == "" {
		return ""
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	rest, ok := strings.CutPrefix(ref, "/"+r.prefix+"/")
	if !ok {
		return ""
	}
	slug, _, _ := strings.Cut(rest, "/")
	if slug == "" {
		return ""
	}
	if !postExists(c, slug) {
		return "no post with slug " + slug
	}
	return ""
}

func postExists(c *content.Corpus, slug string) bool {
	return c.Has(slug) || c.Has(strings.ToLower(slug))
}
