/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlists

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/friendsincode/kidscast/internal/cache"
	"github.com/friendsincode/kidscast/internal/telemetry"
)

// Cached serves repeated playlist lookups from Redis.
type Cached struct {
	next  Source
	cache *cache.Cache
}

// NewCached wraps next with c. A nil or disabled cache passes through.
func NewCached(next Source, c *cache.Cache) *Cached {
	return &Cached{next: next, cache: c}
}

func (s *Cached) enabled() bool {
	return s.cache != nil && s.cache.IsAvailable()
}

func (s *Cached) FetchPlaylists(ctx context.Context, accessToken string) ([]Playlist, error) {
	if !s.enabled() || accessToken == "" {
		return s.next.FetchPlaylists(ctx, accessToken)
	}
	account := accountKey(accessToken)
	if cached, ok := s.cache.GetPlaylists(ctx, account); ok {
		telemetry.PlaylistCacheTotal.WithLabelValues("hit").Inc()
		out := make([]Playlist, len(cached))
		for i, p := range cached {
			out[i] = Playlist(p)
		}
		return out, nil
	}
	telemetry.PlaylistCacheTotal.WithLabelValues("miss").Inc()

	playlists, err := s.next.FetchPlaylists(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	entries := make([]cache.CachedPlaylist, len(playlists))
	for i, p := range playlists {
		entries[i] = cache.CachedPlaylist(p)
	}
	_ = s.cache.SetPlaylists(ctx, account, entries)
	return playlists, nil
}

func (s *Cached) FetchPlaylistVideos(ctx context.Context, accessToken, playlistID, pageToken string) (VideoPage, error) {
	if !s.enabled() || accessToken == "" {
		return s.next.FetchPlaylistVideos(ctx, accessToken, playlistID, pageToken)
	}
	account := accountKey(accessToken)
	if cached, ok := s.cache.GetVideoPage(ctx, account, playlistID, pageToken); ok {
		telemetry.PlaylistCacheTotal.WithLabelValues("hit").Inc()
		page := VideoPage{Videos: make([]Video, len(cached.Videos)), NextPageToken: cached.NextPageToken}
		for i, v := range cached.Videos {
			page.Videos[i] = Video(v)
		}
		return page, nil
	}
	telemetry.PlaylistCacheTotal.WithLabelValues("miss").Inc()

	page, err := s.next.FetchPlaylistVideos(ctx, accessToken, playlistID, pageToken)
	if err != nil {
		return VideoPage{}, err
	}
	entry := &cache.CachedVideoPage{Videos: make([]cache.CachedVideo, len(page.Videos)), NextPageToken: page.NextPageToken}
	for i, v := range page.Videos {
		entry.Videos[i] = cache.CachedVideo(v)
	}
	_ = s.cache.SetVideoPage(ctx, account, playlistID, pageToken, entry)
	return page, nil
}

// Forget drops cached entries for an access token.
func (s *Cached) Forget(ctx context.Context, accessToken string) {
	if s.enabled() && accessToken != "" {
		_ = s.cache.InvalidateAccount(ctx, accountKey(accessToken))
	}
}

// accountKey partitions the cache per token without storing the token itself.
func accountKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:12])
}
