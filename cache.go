package pubcorpus

import (
	"database/sql"
	"sync"
	"time"

	"github.com/eringen/pubcorpus/content"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = sql.ErrNoRows

// PostCache is an in-memory TTL cache over the index store.
type PostCache struct {
	mu         sync.RWMutex
	posts      []content.Post
	tags       []string
	categories []string
	fetched    time.Time
	ttl        time.Duration
	store      *Store
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *Store, ttl time.Duration) *PostCache {
	return &PostCache{store: s, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.tags = nil
	c.categories = nil
	c.mu.Unlock()
}

func (c *PostCache) load() error {
	if c.valid() {
		return nil
	}
	posts, err := c.store.ListPosts(Filter{})
	if err != nil {
		return err
	}
	tags, err := c.store.ListTags()
	if err != nil {
		return err
	}
	categories, err := c.store.ListCategories()
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []content.Post{}
	}
	c.posts = posts
	c.tags = tags
	c.categories = categories
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns the cached snapshot after making sure it is fresh.
// It tries a read lock first and only takes the write lock to reload.
func (c *PostCache) ensureLoaded() ([]content.Post, []string, []string, error) {
	c.mu.RLock()
	if c.valid() {
		posts, tags, cats := c.posts, c.tags, c.categories
		c.mu.RUnlock()
		return posts, tags, cats, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, nil, nil, err
	}
	return c.posts, c.tags, c.categories, nil
}

// ListPosts returns posts matching f, newest first.
func (c *PostCache) ListPosts(f Filter) ([]content.Post, error) {
	posts, _, _, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	if f.Tag == "" && f.Category == "" {
		return posts, nil
	}
	var filtered []content.Post
	for _, p := range posts {
		if f.Tag != "" && !p.HasTag(f.Tag) {
			continue
		}
		if f.Category != "" && !p.HasCategory(f.Category) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

// ListTags returns all unique tags, lowercased and sorted.
func (c *PostCache) ListTags() ([]string, error) {
	_, tags, _, err := c.ensureLoaded()
	return tags, err
}

// ListCategories returns all unique categories, lowercased and sorted.
func (c *PostCache) ListCategories() ([]string, error) {
	_, _, cats, err := c.ensureLoaded()
	return cats, err
}

// GetPost returns a single post by slug from the cache.
func (c *PostCache) GetPost(slug string) (content.Post, error) {
	posts, _, _, err := c.ensureLoaded()
	if err != nil {
		return content.Post{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return content.Post{}, ErrNotFound
}
