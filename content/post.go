// Package content models a corpus of Markdown posts stored one per
// directory, each with a front-matter header followed by a free-text body.
package content

import (
	"fmt"
	"strings"
	"time"
)

// Post is a single corpus entry. The slug is the corpus-wide primary key.
type Post struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	DateText    string    `json:"-"`
	Categories  []string  `json:"categories"`
	Tags        []string  `json:"tags"`
	Links       []Link    `json:"links,omitempty"`
	Image       string    `json:"image,omitempty"`
	Body        string    `json:"-"`

	Dir      string    `json:"dir"`  // post directory, slash separated, relative to the corpus root
	File     string    `json:"file"` // entry file, slash separated, relative to the corpus root
	Checksum string    `json:"checksum"`
	ModTime  time.Time `json:"-"`

	// Extra holds header keys that are not part of the post model.
	Extra map[string]any `json:"-"`
	// Raw is the full decoded header.
	Raw map[string]any `json:"-"`
}

// Link is an attribution or reference attached to a post header.
type Link struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// HasTag reports whether the post carries tag, compared case-insensitively.
func (p Post) HasTag(tag string) bool {
	return containsFold(p.Tags, tag)
}

// HasCategory reports whether the post is filed under category.
func (p Post) HasCategory(category string) bool {
	return containsFold(p.Categories, category)
}

// Severity grades an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Rule names for issues raised while loading the corpus.
const (
	RuleFrontMatter = "frontmatter"
	RuleEntry       = "entry"
	RuleDate        = "date"
	RuleTaxonomy    = "taxonomy"
	RuleLinks       = "links"
)

// Issue is a single problem found in the corpus.
type Issue struct {
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Path     string   `json:"path"`
	Slug     string   `json:"slug,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s [%s] %s", i.Path, i.Severity, i.Rule, i.Message)
}

func containsFold(vals []string, want string) bool {
	want = strings.TrimSpace(want)
	for _, v := range vals {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
