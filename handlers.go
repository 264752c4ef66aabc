package pubcorpus

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubcorpus/content"
	"github.com/eringen/pubcorpus/views"
)

const relatedLimit = 5

func (a *App) site() views.Site {
	return views.Site{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
		PostPrefix:  a.Config.PostPrefix,
	}
}

func filterFromQuery(c echo.Context) Filter {
	return Filter{
		Tag:      strings.TrimSpace(c.QueryParam("tag")),
		Category: strings.TrimSpace(c.QueryParam("category")),
	}
}

func (a *App) handleHome(c echo.Context) error {
	f := filterFromQuery(c)
	posts, err := a.Cache.ListPosts(f)
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags()
	if err != nil {
		return err
	}
	categories, err := a.Cache.ListCategories()
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(views.HomePage{
		Site:           a.site(),
		Posts:          posts,
		Tags:           tags,
		Categories:     categories,
		ActiveTag:      strings.ToLower(f.Tag),
		ActiveCategory: strings.ToLower(f.Category),
	}))
}

func (a *App) handlePost(c echo.Context) error {
	post, err := a.Cache.GetPost(c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site()))
		}
		return err
	}
	body, err := a.renderBody(c, post)
	if err != nil {
		return err
	}
	posts, err := a.Cache.ListPosts(Filter{})
	if err != nil {
		return err
	}
	return Render(c, a.Views.Post(views.PostPage{
		Site:    a.site(),
		Post:    post,
		Body:    template.HTML(body),
		Related: FilterRelatedPosts(post, posts, relatedLimit),
	}))
}

// renderBody returns the post body as HTML, going through the render cache.
// Cache failures are logged and fall back to rendering.
func (a *App) renderBody(c echo.Context, post content.Post) ([]byte, error) {
	ctx := c.Request().Context()
	key := RenderKey(post.Slug, post.Checksum)
	if html, ok, err := a.Renders.Get(ctx, key); err != nil {
		a.Log.WithError(err).WithField("slug", post.Slug).Warn("render cache get")
	} else if ok {
		return html, nil
	}
	html, err := a.Markdown.RenderAt([]byte(post.Body), views.MediaBase(post.Slug))
	if err != nil {
		return nil, err
	}
	if err := a.Renders.Set(ctx, key, html); err != nil {
		a.Log.WithError(err).WithField("slug", post.Slug).Warn("render cache set")
	}
	return html, nil
}

func (a *App) handleTags(c echo.Context) error {
	return a.renderTaxonomy(c, "tag")
}

func (a *App) handleCategories(c echo.Context) error {
	return a.renderTaxonomy(c, "category")
}

func (a *App) renderTaxonomy(c echo.Context, kind string) error {
	posts, err := a.Cache.ListPosts(Filter{})
	if err != nil {
		return err
	}
	var names []string
	if kind == "tag" {
		names, err = a.Cache.ListTags()
	} else {
		names, err = a.Cache.ListCategories()
	}
	if err != nil {
		return err
	}
	terms := make([]views.Term, 0, len(names))
	for _, name := range names {
		n := 0
		for _, p := range posts {
			if (kind == "tag" && p.HasTag(name)) || (kind != "tag" && p.HasCategory(name)) {
				n++
			}
		}
		terms = append(terms, views.Term{Name: name, Count: n})
	}
	return Render(c, a.Views.Taxonomy(views.TaxonomyPage{Site: a.site(), Kind: kind, Terms: terms}))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts(Filter{})
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts(Filter{})
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func handleIndexRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if code >= 500 {
		a.Log.WithError(err).WithField("uri", c.Request().RequestURI).Error("server error")
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		if code >= 500 {
			msg = http.StatusText(code)
		}
		_ = c.JSON(code, map[string]string{"error": msg})
		return
	}
	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, a.Views.NotFound(a.site()))
	case code >= 500:
		_ = RenderStatus(c, code, a.Views.ServerError(a.site()))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
