package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := DefaultConfig()
	cfg.RedisAddr = mr.Addr()
	return mr, NewWithClient(client, cfg, zerolog.Nop())
}

func TestCachePlaylistsRoundTrip(t *testing.T) {
	mr, c := setupMiniRedis(t)
	defer mr.Close()
	defer c.Close()
	ctx := context.Background()

	if _, found := c.GetPlaylists(ctx, "acct"); found {
		t.Fatal("expected empty cache miss")
	}
	want := []CachedPlaylist{{ID: "PL1", Title: "Cartoons", ItemCount: 3}}
	if err := c.SetPlaylists(ctx, "acct", want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, found := c.GetPlaylists(ctx, "acct")
	if !found || len(got) != 1 || got[0].Title != "Cartoons" {
		t.Fatalf("unexpected playlists: %+v (%v)", got, found)
	}

	mr.FastForward(DefaultPlaylistsTTL + time.Second)
	if _, found := c.GetPlaylists(ctx, "acct"); found {
		t.Fatal("expected playlists to expire")
	}
}

func TestCacheInvalidateAccount(t *testing.T) {
	mr, c := setupMiniRedis(t)
	defer mr.Close()
	ctx := context.Background()

	page := &CachedVideoPage{Videos: []CachedVideo{{ID: "v1"}}, NextPageToken: "p2"}
	if err := c.SetVideoPage(ctx, "acct", "PL1", "", page); err != nil {
		t.Fatalf("set page: %v", err)
	}
	if err := c.SetVideoPage(ctx, "other", "PL1", "", page); err != nil {
		t.Fatalf("set page: %v", err)
	}
	if err := c.SetPlaylists(ctx, "acct", []CachedPlaylist{{ID: "PL1"}}); err != nil {
		t.Fatalf("set playlists: %v", err)
	}

	if err := c.InvalidateAccount(ctx, "acct"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, found := c.GetVideoPage(ctx, "acct", "PL1", ""); found {
		t.Fatal("expected account page to be invalidated")
	}
	if _, found := c.GetPlaylists(ctx, "acct"); found {
		t.Fatal("expected account playlists to be invalidated")
	}
	if got, found := c.GetVideoPage(ctx, "other", "PL1", ""); !found || got.NextPageToken != "p2" {
		t.Fatal("expected other account to be kept")
	}
}

func TestCacheDisablesOnRedisError(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()
	mr.Close()

	if err := c.SetPlaylists(ctx, "acct", nil); err == nil {
		t.Fatal("expected set to fail against a stopped server")
	}
	if c.IsAvailable() {
		t.Fatal("expected circuit breaker to disable the cache")
	}
	if err := c.SetPlaylists(ctx, "acct", nil); err != nil {
		t.Fatalf("expected disabled cache to be a no-op, got %v", err)
	}
}

func TestNewWithUnreachableRedisIsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisAddr = "127.0.0.1:1"
	c, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.IsAvailable() {
		t.Fatal("expected cache to be disabled")
	}
}
