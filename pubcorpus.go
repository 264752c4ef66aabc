// Package pubcorpus indexes and previews a corpus of Markdown posts: one
// directory per post, each holding an entry file with a front-matter header.
// It loads the corpus, checks its invariants, mirrors it into a SQLite index
// and serves it with Echo.
//
// Sites provide their own page components through ViewFuncs or use the
// defaults from the views package.
package pubcorpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/eringen/pubcorpus/check"
	"github.com/eringen/pubcorpus/markdown"
	"github.com/eringen/pubcorpus/views"
)

const shutdownTimeout = 10 * time.Second

// ViewFuncs holds the page components the server renders. Any nil field
// falls back to the default from the views package.
type ViewFuncs struct {
	Home        func(views.HomePage) templ.Component
	Post        func(views.PostPage) templ.Component
	Taxonomy    func(views.TaxonomyPage) templ.Component
	NotFound    func(views.Site) templ.Component
	ServerError func(views.Site) templ.Component
}

// DefaultViews returns the built-in page components.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		Post:        views.Post,
		Taxonomy:    views.Taxonomy,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

func (v *ViewFuncs) fill() {
	d := DefaultViews()
	if v.Home == nil {
		v.Home = d.Home
	}
	if v.Post == nil {
		v.Post = d.Post
	}
	if v.Taxonomy == nil {
		v.Taxonomy = d.Taxonomy
	}
	if v.NotFound == nil {
		v.NotFound = d.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = d.ServerError
	}
}

// App wires together the corpus loader, checker, index store, caches,
// handlers and middleware.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Cache    *PostCache
	Renders  RenderCache
	Markdown *markdown.Renderer
	Views    ViewFuncs
	Log      *logrus.Logger

	contentFS     fs.FS
	checker       *check.Checker
	reportLimiter *RateLimiter
	customRoutes  []func(*App)
	staticDir     string
	closers       []io.Closer

	mu     sync.RWMutex
	report *check.Report
}

// New creates an App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Markdown:  markdown.New(markdown.Options{}),
		staticDir: "public",
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	a.Views.fill()
	return a
}

// Init opens the index, builds caches and the checker, registers middleware
// and routes, and performs the first corpus load. Start calls it.
func (a *App) Init(ctx context.Context) error {
	if a.Log == nil {
		log, err := NewLogger(a.Config.LogLevel, a.Config.LogFormat)
		if err != nil {
			return fmt.Errorf("pubcorpus: %w", err)
		}
		a.Log = log
	}
	if a.contentFS == nil {
		fsys, err := a.Config.ContentFS()
		if err != nil {
			return fmt.Errorf("pubcorpus: %w", err)
		}
		a.contentFS = fsys
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("pubcorpus: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)

	if a.Renders == nil {
		if a.Config.RedisURL != "" {
			rc, err := DialRedisRenderCache(ctx, a.Config.RedisURL, a.Config.RenderCacheTTL)
			if err != nil {
				return fmt.Errorf("pubcorpus: render cache: %w", err)
			}
			a.Renders = rc
			a.closers = append(a.closers, rc)
		} else {
			a.Renders = NewMemoryRenderCache()
		}
	}

	checker, err := a.Config.NewChecker(a.contentFS)
	if err != nil {
		return fmt.Errorf("pubcorpus: %w", err)
	}
	a.checker = checker
	a.reportLimiter = NewRateLimiter(a.Config.ReportRateLimit, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	if _, err := a.Reload(ctx); err != nil {
		return err
	}
	return nil
}

// Start initializes the app and serves until ctx is canceled, then shuts
// the server down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}
	if a.Config.ReloadInterval > 0 {
		go a.reloadLoop(ctx, a.Config.ReloadInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.WithField("addr", a.Config.Addr).Info("preview server listening")
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.Log.Info("shutting down")
	return a.Echo.Shutdown(shutdownCtx)
}

// Reload loads and checks the corpus, syncs it into the index and drops
// cached posts. Check issues do not fail a reload; they are logged and
// exposed through Report.
func (a *App) Reload(ctx context.Context) (*check.Report, error) {
	corpus, report, err := LoadAndCheck(ctx, a.Config, a.contentFS, a.checker)
	if err != nil {
		return nil, fmt.Errorf("pubcorpus: reload: %w", err)
	}
	res, err := a.Store.Sync(ctx, corpus.Posts())
	if err != nil {
		return nil, fmt.Errorf("pubcorpus: reload: %w", err)
	}
	a.Cache.Invalidate()

	a.mu.Lock()
	a.report = report
	a.mu.Unlock()

	entry := a.Log.WithFields(logrus.Fields{
		"run_id":   report.RunID,
		"posts":    report.Posts,
		"errors":   len(report.Errors()),
		"warnings": len(report.Warnings()),
		"sync":     res.String(),
	})
	if report.OK() {
		entry.Info("corpus reloaded")
	} else {
		entry.Warn("corpus reloaded with errors")
		for _, issue := range report.Errors() {
			a.Log.Warn(issue.String())
		}
	}
	return report, nil
}

// Report returns the most recent check report, or nil before the first load.
func (a *App) Report() *check.Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.report
}

func (a *App) reloadLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Reload(ctx); err != nil && ctx.Err() == nil {
				a.Log.WithError(err).Error("periodic reload failed")
			}
		}
	}
}

func (a *App) setupRoutes() {
	e := a.Echo
	prefix := "/" + a.Config.PostPrefix

	assets, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.GET("/assets/*", echo.WrapHandler(http.StripPrefix("/assets/", http.FileServer(http.FS(assets)))))
	e.Static("/public", a.staticDir)

	e.GET("/", a.handleHome)
	e.GET(prefix, handleIndexRedirect)
	e.GET(prefix+"/", handleIndexRedirect)
	e.GET(prefix+"/:slug/", a.handlePost)
	e.GET("/tags/", a.handleTags)
	e.GET("/categories/", a.handleCategories)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/media/:slug/:file", a.handleMedia)

	e.GET("/healthz", a.handleHealthz)
	api := e.Group("/api")
	api.GET("/posts", a.handleAPIPosts)
	api.GET("/posts/:slug", a.handleAPIPost)
	api.GET("/report", a.handleAPIReport, RateLimit(a.reportLimiter))
}

// Close releases the index, the render cache and background workers.
func (a *App) Close() error {
	var errs []error
	if a.reportLimiter != nil {
		a.reportLimiter.Stop()
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or panics if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("pubcorpus: required environment variable %s is not set", key))
	}
	return v
}
