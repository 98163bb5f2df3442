package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"0.1.0", "0.1.0", 0},
		{"0.1.0", "v0.2.0", -1},
		{"1.10.0", "1.9.3", 1},
		{"1.2.3-rc1", "1.2.3", 0},
	}
	for _, tt := range tests {
		if got := compareVersions(tt.a, tt.b); got != tt.want {
			t.Fatalf("compareVersions(%q, %q)=%d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCheckReportsNewerRelease(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "kidscast/"+Version {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`{"tag_name":"v99.0.0","html_url":"https://example.test/r"}`))
	}))
	defer srv.Close()

	old := ReleasesURL
	ReleasesURL = srv.URL
	defer func() { ReleasesURL = old }()

	info, err := Check(context.Background(), srv.Client())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !info.UpdateAvailable || info.LatestVersion != "99.0.0" || info.ReleaseURL != "https://example.test/r" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestCheckRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	old := ReleasesURL
	ReleasesURL = srv.URL
	defer func() { ReleasesURL = old }()

	if _, err := Check(context.Background(), nil); err == nil {
		t.Fatal("expected error for 403")
	}
}
