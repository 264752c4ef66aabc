package pubcorpus

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubcorpus/check"
	"github.com/eringen/pubcorpus/content"
)

type apiPost struct {
	content.Post
	URL  string `json:"url"`
	Body string `json:"body,omitempty"`
	HTML string `json:"html,omitempty"`
}

type postsResponse struct {
	Posts []apiPost `json:"posts"`
	Count int       `json:"count"`
}

type healthResponse struct {
	Status string `json:"status"`
	Posts  int    `json:"posts"`
	OK     bool   `json:"corpus_ok"`
}

func (a *App) handleAPIPosts(c echo.Context) error {
	posts, err := a.Cache.ListPosts(filterFromQuery(c))
	if err != nil {
		return err
	}
	out := make([]apiPost, 0, len(posts))
	for _, p := range posts {
		out = append(out, apiPost{Post: p, URL: a.Config.PostURL(p.Slug)})
	}
	return c.JSON(http.StatusOK, postsResponse{Posts: out, Count: len(out)})
}

func (a *App) handleAPIPost(c echo.Context) error {
	post, err := a.Cache.GetPost(c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		return err
	}
	html, err := a.renderBody(c, post)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiPost{
		Post: post,
		URL:  a.Config.PostURL(post.Slug),
		Body: post.Body,
		HTML: string(html),
	})
}

func (a *App) handleAPIReport(c echo.Context) error {
	report := a.Report()
	if report == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "corpus not checked yet")
	}
	return c.JSON(http.StatusOK, report)
}

func (a *App) handleHealthz(c echo.Context) error {
	if err := a.Store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
	}
	n, err := a.Store.Count()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Posts: n, OK: reportOK(a.Report())})
}

func reportOK(r *check.Report) bool {
	return r != nil && r.OK()
}
