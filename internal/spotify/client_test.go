package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test"})
	return NewClient(context.Background(), tokens, zap.NewNop())
}

func TestResolveShortLink_FollowsRedirects(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("resolver used %s, expected HEAD", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL+"/track/5hvIZF56tE8sAwMA9cKmQQ", http.StatusFound)
	}))
	defer short.Close()

	c := testClient(t)
	// The test server is not open.spotify.com, so the redirect is followed
	// but the destination is rejected by hostname.
	_, err := c.ResolveShortLink(context.Background(), short.URL)
	if err == nil {
		t.Fatal("non-spotify destination must be rejected")
	}
	if !strings.Contains(err.Error(), "did not resolve to a track") {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "/track/5hvIZF56tE8sAwMA9cKmQQ") {
		t.Errorf("error should carry the final URL, got: %v", err)
	}
}

func TestResolveShortLink_RejectsNonTrackDestination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(t)
	if _, err := c.ResolveShortLink(context.Background(), srv.URL+"/playlist/xyz"); err == nil {
		t.Fatal("non-track destination must be rejected")
	}
}

func TestResolveShortLink_BoundsRedirectChain(t *testing.T) {
	hops := 0
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, srv.URL, http.StatusFound)
	}))
	defer srv.Close()

	c := testClient(t)
	if _, err := c.ResolveShortLink(context.Background(), srv.URL); err == nil {
		t.Fatal("redirect loop must not resolve")
	}
	if hops > maxRedirects+1 {
		t.Errorf("resolver followed %d hops, limit is %d", hops, maxRedirects)
	}
}

func TestApiStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"spotify 404", spotify.Error{Message: "Not found", Status: http.StatusNotFound}, http.StatusNotFound},
		{"wrapped spotify 401", errorWrap(spotify.Error{Status: http.StatusUnauthorized}), http.StatusUnauthorized},
		{"plain error", errors.New("boom"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apiStatus(tt.err); got != tt.want {
				t.Errorf("apiStatus = %d, expected %d", got, tt.want)
			}
		})
	}
}

func errorWrap(err error) error {
	return &wrappedError{err}
}

type wrappedError struct{ inner error }

func (w *wrappedError) Error() string { return "wrapped: " + w.inner.Error() }
func (w *wrappedError) Unwrap() error { return w.inner }

func TestConvertTrack(t *testing.T) {
	full := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:   "5hvIZF56tE8sAwMA9cKmQQ",
			Name: "Bohemian Rhapsody",
			Artists: []spotify.SimpleArtist{
				{Name: "Queen"},
				{Name: "Someone Else"},
			},
			Duration:     354000,
			ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/track/5hvIZF56tE8sAwMA9cKmQQ"},
		},
		Album: spotify.SimpleAlbum{Name: "A Night at the Opera"},
	}

	track := convertTrack(full)

	if track.ID != "5hvIZF56tE8sAwMA9cKmQQ" {
		t.Errorf("ID = %q", track.ID)
	}
	if track.Artists != "Queen, Someone Else" {
		t.Errorf("Artists = %q, expected comma-joined list", track.Artists)
	}
	if track.Album != "A Night at the Opera" {
		t.Errorf("Album = %q", track.Album)
	}
	if track.Duration.Seconds() != 354 {
		t.Errorf("Duration = %v", track.Duration)
	}
	if !strings.Contains(track.URL, "open.spotify.com/track/") {
		t.Errorf("URL = %q", track.URL)
	}
}
