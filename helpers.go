package pubcorpus

import (
	"net/url"
	"path"
	"strings"

	"github.com/eringen/pubcorpus/content"
	"github.com/eringen/pubcorpus/markdown"
)

const excerptLength = 200

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PostURL returns the absolute URL of a post.
func (c SiteConfig) PostURL(slug string) string {
	return BuildURL(c.URL, c.PostPrefix, slug)
}

// Summary returns the post description, or an excerpt of its body when the
// description is empty.
func Summary(p content.Post) string {
	if p.Description != "" {
		return p.Description
	}
	return markdown.Excerpt([]byte(p.Body), excerptLength)
}

// FilterRelatedPosts returns up to limit posts sharing a tag or category
// with current, in the order given. A limit <= 0 means no limit.
func FilterRelatedPosts(current content.Post, posts []content.Post, limit int) []content.Post {
	terms := make(map[string]struct{})
	for _, t := range append(append([]string(nil), current.Tags...), current.Categories...) {
		if term := normalizeTerm(t); term != "" {
			terms[term] = struct{}{}
		}
	}
	var related []content.Post
	for _, p := range posts {
		if p.Slug == current.Slug {
			continue
		}
		if sharesTerm(terms, p.Tags) || sharesTerm(terms, p.Categories) {
			related = append(related, p)
			if limit > 0 && len(related) == limit {
				break
			}
		}
	}
	return related
}

func sharesTerm(set map[string]struct{}, terms []string) bool {
	for _, t := range terms {
		if _, ok := set[normalizeTerm(t)]; ok {
			return true
		}
	}
	return false
}
