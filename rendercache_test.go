package pubcorpus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryRenderCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryRenderCache()

	if _, ok, err := c.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}
	if err := c.Set(ctx, RenderKey("a", "1"), []byte("<p>a</p>")); err != nil {
		t.Fatal(err)
	}
	html, ok, err := c.Get(ctx, "a:1")
	if err != nil || !ok || string(html) != "<p>a</p>" {
		t.Fatalf("Get = %q, %v, %v", html, ok, err)
	}
	if _, ok, _ := c.Get(ctx, RenderKey("a", "2")); ok {
		t.Error("new checksum hit the old entry")
	}
}

func TestMemoryRenderCacheResetsWhenFull(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryRenderCache()
	c.max = 3
	for i := 0; i < 3; i++ {
		_ = c.Set(ctx, fmt.Sprint(i), []byte("x"))
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	_ = c.Set(ctx, "overflow", []byte("x"))
	if c.Len() != 1 {
		t.Errorf("Len after overflow = %d, want 1", c.Len())
	}
}

func setupRedisCache(t *testing.T, ttl time.Duration) (*RedisRenderCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisRenderCache(client, ttl)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisRenderCache(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t, time.Hour)

	if _, ok, err := c.Get(ctx, "a:1"); ok || err != nil {
		t.Fatalf("Get on empty cache = %v, %v", ok, err)
	}
	if err := c.Set(ctx, "a:1", []byte("<h1>A</h1>")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	html, ok, err := c.Get(ctx, "a:1")
	if err != nil || !ok || string(html) != "<h1>A</h1>" {
		t.Fatalf("Get = %q, %v, %v", html, ok, err)
	}

	if !mr.Exists("pubcorpus:render:a:1") {
		t.Error("key not stored under prefix")
	}
	if ttl := mr.TTL("pubcorpus:render:a:1"); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, ok, _ := c.Get(ctx, "a:1"); ok {
		t.Error("entry survived its TTL")
	}
}

func TestRedisRenderCacheError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	c := NewRedisRenderCache(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), 0)
	defer c.Close()
	mr.Close()
	if _, _, err := c.Get(context.Background(), "a:1"); err == nil {
		t.Error("Get against a closed server returned no error")
	}
}

func TestDialRedisRenderCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	c, err := DialRedisRenderCache(context.Background(), "redis://"+mr.Addr()+"/0", time.Minute)
	if err != nil {
		t.Fatalf("DialRedisRenderCache: %v", err)
	}
	defer c.Close()

	if _, err := DialRedisRenderCache(context.Background(), "not a url", time.Minute); err == nil {
		t.Error("bad URL accepted")
	}
}
