package playlists

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/friendsincode/kidscast/internal/auth"
	"github.com/friendsincode/kidscast/internal/cache"
)

func youtubeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/playlists", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" || r.URL.Query().Get("mine") != "true" {
			http.Error(w, `{"error":{"code":401,"message":"bad credentials"}}`, http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{
			"items": []map[string]any{{
				"id":             "PL1",
				"snippet":        map[string]any{"title": "Cartoons", "thumbnails": map[string]any{"medium": map[string]any{"url": "m.jpg"}}},
				"contentDetails": map[string]any{"itemCount": 3},
			}},
		})
	})
	mux.HandleFunc("/youtube/v3/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("playlistId") != "PL1" {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		if q.Get("pageToken") == "p2" {
			writeJSON(w, map[string]any{
				"items": []map[string]any{item("v3", 2)},
			})
			return
		}
		writeJSON(w, map[string]any{
			"items":         []map[string]any{item("v1", 0), item("v2", 1), {"snippet": map[string]any{"title": "Deleted video"}}},
			"nextPageToken": "p2",
		})
	})
	return httptest.NewServer(mux)
}

func item(id string, pos int) map[string]any {
	return map[string]any{
		"snippet":        map[string]any{"title": "Episode " + id, "position": pos, "resourceId": map[string]any{"videoId": id}},
		"contentDetails": map[string]any{"videoId": id},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestYouTubeFetch(t *testing.T) {
	srv := youtubeServer(t)
	defer srv.Close()
	yt := NewYouTube(option.WithEndpoint(srv.URL + "/"))
	ctx := context.Background()

	lists, err := yt.FetchPlaylists(ctx, "tok")
	if err != nil {
		t.Fatalf("FetchPlaylists: %v", err)
	}
	if len(lists) != 1 || lists[0].Title != "Cartoons" || lists[0].ItemCount != 3 || lists[0].Thumbnail != "m.jpg" {
		t.Fatalf("unexpected playlists: %+v", lists)
	}

	page, err := yt.FetchPlaylistVideos(ctx, "tok", "PL1", "")
	if err != nil {
		t.Fatalf("FetchPlaylistVideos: %v", err)
	}
	if len(page.Videos) != 2 || page.Videos[1].ID != "v2" || page.NextPageToken != "p2" {
		t.Fatalf("unexpected page: %+v", page)
	}

	if _, err := yt.FetchPlaylists(ctx, ""); !errors.Is(err, auth.ErrMissingAccessToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
	if _, err := yt.FetchPlaylists(ctx, "wrong"); err == nil {
		t.Fatal("expected api error to surface")
	}
}

type countingSource struct {
	mu     sync.Mutex
	calls  int
	err    error
	videos map[string]VideoPage
}

func (s *countingSource) FetchPlaylists(context.Context, string) ([]Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []Playlist{{ID: "PL1", Title: "Cartoons"}}, nil
}

func (s *countingSource) FetchPlaylistVideos(_ context.Context, _, _, pageToken string) (VideoPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return VideoPage{}, s.err
	}
	return s.videos[pageToken], nil
}

func TestBrowserPaging(t *testing.T) {
	src := &countingSource{videos: map[string]VideoPage{
		"":   {Videos: []Video{{ID: "v1"}, {ID: "v2"}}, NextPageToken: "p2"},
		"p2": {Videos: []Video{{ID: "v3"}}},
	}}
	b := NewBrowser(src, zerolog.Nop())
	ctx := context.Background()

	if _, err := b.FetchPlaylists(ctx, ""); !errors.Is(err, auth.ErrMissingAccessToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if b.State().Error != "Missing Google access token. Please sign in again." {
		t.Fatalf("unexpected error text %q", b.State().Error)
	}

	s, err := b.FetchPlaylists(ctx, "tok")
	if err != nil || len(s.Playlists) != 1 || s.Error != "" || s.LoadingPlaylists {
		t.Fatalf("unexpected state %+v (%v)", s, err)
	}

	s, _ = b.FetchPlaylistVideos(ctx, "tok", "PL1", "")
	if len(s.Videos) != 2 || s.NextPageToken != "p2" || s.ActivePlaylistID != "PL1" {
		t.Fatalf("unexpected first page: %+v", s)
	}
	s, _ = b.FetchPlaylistVideos(ctx, "tok", "PL1", "p2")
	if len(s.Videos) != 3 || s.NextPageToken != "" {
		t.Fatalf("expected appended page, got %+v", s)
	}
	s, _ = b.FetchPlaylistVideos(ctx, "tok", "PL1", "")
	if len(s.Videos) != 2 {
		t.Fatalf("expected reload without token to replace, got %+v", s)
	}

	calls := src.calls
	if _, err := b.FetchPlaylistVideos(ctx, "tok", "", ""); err != nil || src.calls != calls {
		t.Fatal("expected missing playlist id to be a no-op")
	}

	src.err = errors.New("video request failed: quota")
	s, err = b.FetchPlaylistVideos(ctx, "tok", "PL1", "")
	if err == nil || s.Error == "" || s.LoadingVideos || len(s.Videos) != 2 {
		t.Fatalf("expected error state to keep videos, got %+v", s)
	}
}

func TestRegistryClearsOnSignOut(t *testing.T) {
	src := &countingSource{}
	reg := NewRegistry(src, zerolog.Nop())
	m := auth.NewManager([]byte("k"), 0)
	m.OnAuthStateChanged(reg.HandleAuthState)

	_, sess, err := m.SignIn(auth.SignInResult{AccessToken: "tok"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if _, err := reg.For(sess.ID).FetchPlaylists(context.Background(), "tok"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one browser, got %d", reg.Len())
	}

	m.SignOut(sess.ID)
	if reg.Len() != 0 {
		t.Fatal("expected browser to be cleared on sign-out")
	}
	if s := reg.For(sess.ID).State(); len(s.Playlists) != 0 {
		t.Fatalf("expected fresh state, got %+v", s)
	}
}

func TestCachedSource(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cache.DefaultConfig(), zerolog.Nop())
	src := &countingSource{videos: map[string]VideoPage{"": {Videos: []Video{{ID: "v1"}}, NextPageToken: "p2"}}}
	cached := NewCached(src, c)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		lists, err := cached.FetchPlaylists(ctx, "tok")
		if err != nil || len(lists) != 1 || lists[0].Title != "Cartoons" {
			t.Fatalf("unexpected playlists: %+v (%v)", lists, err)
		}
		page, err := cached.FetchPlaylistVideos(ctx, "tok", "PL1", "")
		if err != nil || len(page.Videos) != 1 || page.NextPageToken != "p2" {
			t.Fatalf("unexpected page: %+v (%v)", page, err)
		}
	}
	if src.calls != 2 {
		t.Fatalf("expected second round from cache, got %d upstream calls", src.calls)
	}

	if _, err := cached.FetchPlaylists(ctx, "other"); err != nil {
		t.Fatalf("fetch other: %v", err)
	}
	if src.calls != 3 {
		t.Fatalf("expected cache to be partitioned per token, got %d calls", src.calls)
	}

	cached.Forget(ctx, "tok")
	if _, err := cached.FetchPlaylists(ctx, "tok"); err != nil {
		t.Fatalf("fetch after forget: %v", err)
	}
	if src.calls != 4 {
		t.Fatalf("expected forget to drop cached entries, got %d calls", src.calls)
	}

	bypass := NewCached(src, nil)
	if _, err := bypass.FetchPlaylists(ctx, "tok"); err != nil || src.calls != 5 {
		t.Fatalf("expected nil cache to pass through, calls=%d err=%v", src.calls, err)
	}
}
