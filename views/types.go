package views

import (
	"html/template"

	"github.com/eringen/pubcorpus/content"
)

// Site holds site-wide settings every page needs so nothing is hardcoded.
type Site struct {
	Name        string
	URL         string
	Description string
	Author      string
	PostPrefix  string // URL segment posts live under, e.g. "blog"
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	JSONLD      string
}

// HomePage lists posts, optionally narrowed to one tag or category.
type HomePage struct {
	Site           Site
	Meta           PageMeta
	Posts          []content.Post
	Tags           []string
	Categories     []string
	ActiveTag      string
	ActiveCategory string
}

// PostPage is a single post with its rendered body.
type PostPage struct {
	Site    Site
	Meta    PageMeta
	Post    content.Post
	Body    template.HTML
	Related []content.Post
}

// Term is a taxonomy value with the number of posts using it.
type Term struct {
	Name  string
	Count int
}

// TaxonomyPage lists every tag or every category.
type TaxonomyPage struct {
	Site  Site
	Meta  PageMeta
	Kind  string // "tag" or "category"
	Terms []Term
}

// ErrorPage is shown for 404 and 5xx responses.
type ErrorPage struct {
	Site    Site
	Meta    PageMeta
	Status  int
	Message string
}
