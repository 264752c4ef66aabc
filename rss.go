package pubcorpus

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubcorpus/content"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category"`
}

func (a *App) buildFeed(posts []content.Post) rssXML {
	items := make([]rssItem, 0, len(posts))
	var latest time.Time
	for _, p := range posts {
		pubDate := ""
		if !p.Date.IsZero() {
			pubDate = p.Date.UTC().Format(time.RFC1123Z)
			if p.Date.After(latest) {
				latest = p.Date
			}
		}
		postURL := a.Config.PostURL(p.Slug)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: Summary(p),
			PubDate:     pubDate,
			GUID:        postURL,
			Categories:  append(append([]string(nil), p.Categories...), p.Tags...),
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        BuildURL(a.Config.URL),
			Description: a.Config.Description,
			Items:       items,
		},
	}
	if !latest.IsZero() {
		feed.Channel.LastBuildDate = latest.UTC().Format(time.RFC1123Z)
	}
	return feed
}

func (a *App) renderRSS(c echo.Context, posts []content.Post) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(a.buildFeed(posts))
}
