/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlists imports video ids from the signed-in account's YouTube playlists.
package playlists

import "context"

// Playlist is a playlist summary.
type Playlist struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	ItemCount   int64  `json:"itemCount"`
}

// Video is one playlist item.
type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Channel   string `json:"channel,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Position  int64  `json:"position"`
}

// VideoPage is a page of playlist items. An empty NextPageToken marks the last page.
type VideoPage struct {
	Videos        []Video `json:"videos"`
	NextPageToken string  `json:"nextPageToken"`
}

// Source fetches playlists with a user's OAuth access token.
type Source interface {
	FetchPlaylists(ctx context.Context, accessToken string) ([]Playlist, error)
	FetchPlaylistVideos(ctx context.Context, accessToken, playlistID, pageToken string) (VideoPage, error)
}
