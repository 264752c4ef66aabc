package pubcorpus

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eringen/pubcorpus/content"
)

// SiteConfig holds all configuration for a corpus site.
type SiteConfig struct {
	Name        string // Site name (default "Blog")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD

	Addr         string // Listen address (default ":3000")
	ContentDir   string // Corpus root (default "content")
	DatabasePath string // SQLite index path (default "data/index.db")
	PostPrefix   string // URL segment posts live under (default "blog")

	EntryName  string   // Preferred entry file in a post directory (default "index.md")
	Extensions []string // Entry file extensions (default .md, .markdown)
	Ignore     []string // Glob patterns skipped while loading
	SchemaPath string   // Optional JSON Schema for post headers
	Strict     bool     // Treat warnings as errors

	PostCacheTTL    time.Duration // Post cache TTL (default 5min)
	RedisURL        string        // Render cache backend; in-process when empty
	RenderCacheTTL  time.Duration // Rendered HTML TTL (default 24h)
	ReloadInterval  time.Duration // Periodic corpus reload; disabled when zero
	MaxImageWidth   int           // /media downscale width (default 800)
	ReportRateLimit int           // /api/report requests per minute per IP (default 30)

	LogLevel  string // logrus level (default "info")
	LogFormat string // "text" or "json" (default "text")
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ContentDir == "" {
		c.ContentDir = "content"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/index.db"
	}
	c.PostPrefix = strings.Trim(c.PostPrefix, "/")
	if c.PostPrefix == "" {
		c.PostPrefix = "blog"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.RenderCacheTTL == 0 {
		c.RenderCacheTTL = 24 * time.Hour
	}
	if c.MaxImageWidth == 0 {
		c.MaxImageWidth = 800
	}
	if c.ReportRateLimit == 0 {
		c.ReportRateLimit = 30
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

// WithDefaults returns a copy of c with every unset field defaulted.
func (c SiteConfig) WithDefaults() SiteConfig {
	c.setDefaults()
	return c
}

// LoaderConfig returns the corpus loader settings.
func (c SiteConfig) LoaderConfig() content.LoaderConfig {
	return content.LoaderConfig{
		Extensions: c.Extensions,
		EntryName:  c.EntryName,
		Ignore:     c.Ignore,
	}
}

// ConfigFromEnv reads PUBCORPUS_* variables. Unset variables keep their
// defaults; values that fail to parse are returned as errors.
func ConfigFromEnv() (SiteConfig, error) {
	cfg := SiteConfig{
		Name:         EnvOr("PUBCORPUS_SITE_NAME", ""),
		URL:          EnvOr("PUBCORPUS_SITE_URL", ""),
		Description:  EnvOr("PUBCORPUS_SITE_DESCRIPTION", ""),
		Author:       EnvOr("PUBCORPUS_SITE_AUTHOR", ""),
		Addr:         EnvOr("PUBCORPUS_ADDR", ""),
		ContentDir:   EnvOr("PUBCORPUS_CONTENT_DIR", ""),
		DatabasePath: EnvOr("PUBCORPUS_DATABASE_PATH", ""),
		PostPrefix:   EnvOr("PUBCORPUS_POST_PREFIX", ""),
		EntryName:    EnvOr("PUBCORPUS_ENTRY_NAME", ""),
		Extensions:   splitList(os.Getenv("PUBCORPUS_EXTENSIONS")),
		Ignore:       splitList(os.Getenv("PUBCORPUS_IGNORE")),
		SchemaPath:   EnvOr("PUBCORPUS_SCHEMA", ""),
		RedisURL:     EnvOr("PUBCORPUS_REDIS_URL", ""),
		LogLevel:     EnvOr("PUBCORPUS_LOG_LEVEL", ""),
		LogFormat:    EnvOr("PUBCORPUS_LOG_FORMAT", ""),
	}

	var err error
	if cfg.Strict, err = envBool("PUBCORPUS_STRICT"); err != nil {
		return SiteConfig{}, err
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"PUBCORPUS_POST_CACHE_TTL", &cfg.PostCacheTTL},
		{"PUBCORPUS_RENDER_CACHE_TTL", &cfg.RenderCacheTTL},
		{"PUBCORPUS_RELOAD_INTERVAL", &cfg.ReloadInterval},
	}
	for _, d := range durations {
		if *d.dst, err = envDuration(d.key); err != nil {
			return SiteConfig{}, err
		}
	}
	if cfg.MaxImageWidth, err = envInt("PUBCORPUS_MAX_IMAGE_WIDTH"); err != nil {
		return SiteConfig{}, err
	}
	if cfg.ReportRateLimit, err = envInt("PUBCORPUS_REPORT_RATE_LIMIT"); err != nil {
		return SiteConfig{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func envBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func envInt(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for site-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger replaces the logger built from LogLevel and LogFormat.
func WithLogger(log *logrus.Logger) Option {
	return func(a *App) {
		a.Log = log
	}
}

// WithContentFS serves the corpus from fsys instead of Config.ContentDir.
func WithContentFS(fsys fs.FS) Option {
	return func(a *App) {
		a.contentFS = fsys
	}
}

// WithRenderCache replaces the render cache chosen from RedisURL.
func WithRenderCache(rc RenderCache) Option {
	return func(a *App) {
		a.Renders = rc
	}
}

// WithViews overrides the default page components.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}
