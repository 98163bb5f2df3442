/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for playlist pages.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default TTL values for different cache types
const (
	DefaultPlaylistsTTL = 5 * time.Minute
	DefaultVideoPageTTL = 10 * time.Minute
)

// Key prefixes for Redis cache
const (
	KeyPlaylists = "kidscast:cache:playlists:"  // + account key
	KeyVideoPage = "kidscast:cache:video_page:" // + account key + ":" + playlist_id + ":" + page_token
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	PlaylistsTTL time.Duration
	VideoPageTTL time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		PlaylistsTTL:   DefaultPlaylistsTTL,
		VideoPageTTL:   DefaultVideoPageTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance. An unreachable Redis yields a disabled cache, not an error.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		_ = client.Close()
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")
	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, cfg Config, logger zerolog.Logger) *Cache {
	if cfg.PlaylistsTTL <= 0 {
		cfg.PlaylistsTTL = DefaultPlaylistsTTL
	}
	if cfg.VideoPageTTL <= 0 {
		cfg.VideoPageTTL = DefaultVideoPageTTL
	}
	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// deletePattern deletes all keys matching a pattern.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	// Use SCAN to find keys (safer than KEYS for production)
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

// Playlist caching methods

// CachedPlaylist represents a cached playlist summary.
type CachedPlaylist struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	ItemCount   int64  `json:"item_count"`
}

// CachedVideo represents one cached playlist item.
type CachedVideo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Channel   string `json:"channel"`
	Thumbnail string `json:"thumbnail"`
	Position  int64  `json:"position"`
}

// CachedVideoPage is one page of playlist items.
type CachedVideoPage struct {
	Videos        []CachedVideo `json:"videos"`
	NextPageToken string        `json:"next_page_token"`
}

// GetPlaylists retrieves the cached playlists of an account.
func (c *Cache) GetPlaylists(ctx context.Context, account string) ([]CachedPlaylist, bool) {
	var playlists []CachedPlaylist
	found, err := c.get(ctx, KeyPlaylists+account, &playlists)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Int("count", len(playlists)).Msg("playlists cache hit")
	return playlists, true
}

// SetPlaylists caches the playlists of an account.
func (c *Cache) SetPlaylists(ctx context.Context, account string, playlists []CachedPlaylist) error {
	c.logger.Debug().Int("count", len(playlists)).Msg("caching playlists")
	return c.set(ctx, KeyPlaylists+account, playlists, c.config.PlaylistsTTL)
}

// GetVideoPage retrieves a cached page of playlist items.
func (c *Cache) GetVideoPage(ctx context.Context, account, playlistID, pageToken string) (*CachedVideoPage, bool) {
	var page CachedVideoPage
	found, err := c.get(ctx, videoPageKey(account, playlistID, pageToken), &page)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("playlist_id", playlistID).Int("count", len(page.Videos)).Msg("video page cache hit")
	return &page, true
}

// SetVideoPage caches a page of playlist items.
func (c *Cache) SetVideoPage(ctx context.Context, account, playlistID, pageToken string, page *CachedVideoPage) error {
	c.logger.Debug().Str("playlist_id", playlistID).Int("count", len(page.Videos)).Msg("caching video page")
	return c.set(ctx, videoPageKey(account, playlistID, pageToken), page, c.config.VideoPageTTL)
}

// InvalidateAccount removes every cached entry of an account.
func (c *Cache) InvalidateAccount(ctx context.Context, account string) error {
	c.logger.Debug().Msg("invalidating account playlist caches")
	if err := c.deletePattern(ctx, KeyPlaylists+account); err != nil {
		return err
	}
	return c.deletePattern(ctx, KeyVideoPage+account+":*")
}

func videoPageKey(account, playlistID, pageToken string) string {
	return KeyVideoPage + account + ":" + playlistID + ":" + pageToken
}
