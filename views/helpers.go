package views

import (
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/eringen/pubcorpus/content"
	"github.com/eringen/pubcorpus/markdown"
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
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

// PostPath returns the site-relative path of a post.
func PostPath(site Site, slug string) string {
	return "/" + strings.Trim(site.PostPrefix, "/") + "/" + url.PathEscape(slug) + "/"
}

// TagPath returns the home page filtered to tag.
func TagPath(tag string) string {
	return "/?tag=" + url.QueryEscape(strings.ToLower(tag))
}

// CategoryPath returns the home page filtered to category.
func CategoryPath(category string) string {
	return "/?category=" + url.QueryEscape(strings.ToLower(category))
}

// FormatDate renders a post date for display; zero dates render empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("January 2, 2006")
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func summary(p content.Post) string {
	if p.Description != "" {
		return p.Description
	}
	return markdown.Excerpt([]byte(p.Body), 200)
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block.
func WebsiteJsonLD(site Site) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     site.Name,
		"url":      buildURL(site.URL),
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	if site.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  site.Author,
		}
	}
	b, err := sonic.ConfigStd.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
func BlogPostingJsonLD(site Site, post content.Post) string {
	postURL := buildURL(site.URL, site.PostPrefix, post.Slug)
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "BlogPosting",
		"headline":    post.Title,
		"description": summary(post),
		"url":         postURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  site.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if d := isoDate(post.Date); d != "" {
		data["datePublished"] = d
	}
	if site.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  site.Author,
		}
	}
	if len(post.Tags) > 0 {
		data["keywords"] = strings.Join(post.Tags, ", ")
	}
	if len(post.Categories) > 0 {
		data["articleSection"] = post.Categories[0]
	}
	b, err := sonic.ConfigStd.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
