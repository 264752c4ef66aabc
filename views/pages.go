// Package views holds the default page components of the preview server.
// Pages are html/template files exposed as templ components so a site can
// swap any of them for its own templ code.
package views

import (
	"context"
	"embed"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/pubcorpus/content"
	"github.com/eringen/pubcorpus/markdown"
)

//go:embed templates/*.html
var templateFS embed.FS

type cardData struct {
	Site Site
	Post content.Post
}

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"postPath":     PostPath,
	"tagPath":      TagPath,
	"categoryPath": CategoryPath,
	"formatDate":   FormatDate,
	"isoDate":      isoDate,
	"summary":      summary,
	"imageURL":     imageURL,
	"jsonLD":       func(s string) template.JS { return template.JS(s) },
	"card":         func(site Site, p content.Post) cardData { return cardData{Site: site, Post: p} },
	"termPath": func(kind, name string) string {
		if kind == "tag" {
			return TagPath(name)
		}
		return CategoryPath(name)
	},
}).ParseFS(templateFS, "templates/*.html"))

func page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pages.ExecuteTemplate(w, name, data)
	})
}

// Home renders the post index.
func Home(p HomePage) templ.Component {
	if p.Meta.Title == "" {
		p.Meta.Title = p.Site.Name
		switch {
		case p.ActiveTag != "":
			p.Meta.Title = "#" + p.ActiveTag + " · " + p.Site.Name
		case p.ActiveCategory != "":
			p.Meta.Title = p.ActiveCategory + " · " + p.Site.Name
		}
	}
	if p.Meta.Description == "" {
		p.Meta.Description = p.Site.Description
	}
	if p.Meta.URL == "" {
		p.Meta.URL = buildURL(p.Site.URL)
	}
	if p.Meta.OGType == "" {
		p.Meta.OGType = "website"
	}
	if p.Meta.JSONLD == "" {
		p.Meta.JSONLD = WebsiteJsonLD(p.Site)
	}
	return page("home", p)
}

// Post renders a single post.
func Post(p PostPage) templ.Component {
	if p.Meta.Title == "" {
		p.Meta.Title = p.Post.Title + " · " + p.Site.Name
	}
	if p.Meta.Description == "" {
		p.Meta.Description = summary(p.Post)
	}
	if p.Meta.URL == "" {
		p.Meta.URL = buildURL(p.Site.URL, p.Site.PostPrefix, p.Post.Slug)
	}
	if p.Meta.OGType == "" {
		p.Meta.OGType = "article"
	}
	if p.Meta.JSONLD == "" {
		p.Meta.JSONLD = BlogPostingJsonLD(p.Site, p.Post)
	}
	return page("post", p)
}

// Taxonomy renders the list of tags or categories.
func Taxonomy(p TaxonomyPage) templ.Component {
	if p.Meta.Title == "" {
		title := "Categories"
		if p.Kind == "tag" {
			title = "Tags"
		}
		p.Meta.Title = title + " · " + p.Site.Name
	}
	if p.Meta.OGType == "" {
		p.Meta.OGType = "website"
	}
	return page("taxonomy", p)
}

// NotFound renders the 404 page.
func NotFound(site Site) templ.Component {
	return errorPage(site, http.StatusNotFound, "The page you are looking for does not exist.")
}

// ServerError renders the 500 page.
func ServerError(site Site) templ.Component {
	return errorPage(site, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}

func errorPage(site Site, status int, msg string) templ.Component {
	return page("error", ErrorPage{
		Site:    site,
		Meta:    PageMeta{Title: http.StatusText(status) + " · " + site.Name, OGType: "website"},
		Status:  status,
		Message: msg,
	})
}

// MediaBase returns the URL prefix post-local files of slug are served under.
func MediaBase(slug string) string {
	return "/media/" + url.PathEscape(slug) + "/"
}

// imageURL resolves a post's header image: remote URLs are kept, files next
// to the entry are served through /media/.
func imageURL(_ Site, p content.Post) string {
	img := strings.TrimSpace(p.Image)
	if img == "" {
		return ""
	}
	lower := strings.ToLower(img)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(img, "/") {
		return img
	}
	file, ok := markdown.LocalFile(img)
	if !ok {
		return ""
	}
	return MediaBase(p.Slug) + url.PathEscape(file)
}
