/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlists

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/friendsincode/kidscast/internal/auth"
)

const (
	playlistPageSize = 50
	videoPageSize    = 25
	maxPlaylistPages = 10
)

// YouTube reads playlists through the YouTube Data API.
type YouTube struct {
	options []option.ClientOption
}

// NewYouTube creates a source. Extra options apply to every request, e.g. a test endpoint.
func NewYouTube(opts ...option.ClientOption) *YouTube {
	return &YouTube{options: opts}
}

func (y *YouTube) service(ctx context.Context, accessToken string) (*youtube.Service, error) {
	if accessToken == "" {
		return nil, auth.ErrMissingAccessToken
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, y.options...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube client: %w", err)
	}
	return svc, nil
}

// FetchPlaylists lists the account's own playlists.
func (y *YouTube) FetchPlaylists(ctx context.Context, accessToken string) ([]Playlist, error) {
	svc, err := y.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var out []Playlist
	pageToken := ""
	for page := 0; page < maxPlaylistPages; page++ {
		call := svc.Playlists.List([]string{"snippet", "contentDetails"}).
			Mine(true).
			MaxResults(playlistPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("playlist request failed: %w", err)
		}
		for _, item := range resp.Items {
			p := Playlist{ID: item.Id}
			if item.Snippet != nil {
				p.Title = item.Snippet.Title
				p.Description = item.Snippet.Description
				p.Thumbnail = thumbnailURL(item.Snippet.Thumbnails)
			}
			if item.ContentDetails != nil {
				p.ItemCount = item.ContentDetails.ItemCount
			}
			out = append(out, p)
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return out, nil
}

// FetchPlaylistVideos returns one page of a playlist's videos.
func (y *YouTube) FetchPlaylistVideos(ctx context.Context, accessToken, playlistID, pageToken string) (VideoPage, error) {
	if playlistID == "" {
		return VideoPage{}, fmt.Errorf("playlist id required")
	}
	svc, err := y.service(ctx, accessToken)
	if err != nil {
		return VideoPage{}, err
	}

	call := svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(videoPageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return VideoPage{}, fmt.Errorf("video request failed: %w", err)
	}

	page := VideoPage{Videos: make([]Video, 0, len(resp.Items)), NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		v := Video{}
		if item.ContentDetails != nil {
			v.ID = item.ContentDetails.VideoId
		}
		if item.Snippet != nil {
			if v.ID == "" && item.Snippet.ResourceId != nil {
				v.ID = item.Snippet.ResourceId.VideoId
			}
			v.Title = item.Snippet.Title
			v.Channel = item.Snippet.VideoOwnerChannelTitle
			v.Thumbnail = thumbnailURL(item.Snippet.Thumbnails)
			v.Position = item.Snippet.Position
		}
		if v.ID == "" {
			continue
		}
		page.Videos = append(page.Videos, v)
	}
	return page, nil
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Medium, t.Default, t.High} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
