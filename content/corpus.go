package content

import (
	"sort"
	"strings"
)

// Corpus is an immutable snapshot of a loaded content directory.
type Corpus struct {
	posts  []Post
	issues []Issue
	bySlug map[string]int
}

// NewCorpus orders posts newest first (ties broken by slug, then directory)
// and indexes them by slug. Posts sharing a slug are all kept; Get returns
// the first in that order.
func NewCorpus(posts []Post, issues []Issue) *Corpus {
	sorted := append([]Post(nil), posts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Slug != b.Slug {
			return a.Slug < b.Slug
		}
		return a.Dir < b.Dir
	})
	c := &Corpus{
		posts:  sorted,
		issues: append([]Issue(nil), issues...),
		bySlug: make(map[string]int, len(sorted)),
	}
	for i, p := range sorted {
		if _, ok := c.bySlug[p.Slug]; !ok {
			c.bySlug[p.Slug] = i
		}
	}
	return c
}

// Posts returns every loaded post, newest first.
func (c *Corpus) Posts() []Post {
	return c.posts
}

// Issues returns the problems raised while loading.
func (c *Corpus) Issues() []Issue {
	return c.issues
}

// Len returns the number of loaded posts.
func (c *Corpus) Len() int {
	return len(c.posts)
}

// Get returns the post with slug.
func (c *Corpus) Get(slug string) (Post, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return Post{}, false
	}
	return c.posts[i], true
}

// Has reports whether any post uses slug.
func (c *Corpus) Has(slug string) bool {
	_, ok := c.bySlug[slug]
	return ok
}

// ByTag returns the posts carrying tag.
func (c *Corpus) ByTag(tag string) []Post {
	var out []Post
	for _, p := range c.posts {
		if p.HasTag(tag) {
			out = append(out, p)
		}
	}
	return out
}

// ByCategory returns the posts filed under category.
func (c *Corpus) ByCategory(category string) []Post {
	var out []Post
	for _, p := range c.posts {
		if p.HasCategory(category) {
			out = append(out, p)
		}
	}
	return out
}

// Tags returns the sorted, lowercased set of tags used in the corpus.
func (c *Corpus) Tags() []string {
	return terms(c.posts, func(p Post) []string { return p.Tags })
}

// Categories returns the sorted, lowercased set of categories.
func (c *Corpus) Categories() []string {
	return terms(c.posts, func(p Post) []string { return p.Categories })
}

func terms(posts []Post, pick func(Post) []string) []string {
	set := make(map[string]struct{})
	for _, p := range posts {
		for _, t := range pick(p) {
			set[strings.ToLower(t)] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
