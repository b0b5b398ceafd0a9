// Package spotify wraps the Spotify Web API for track lookup and playback
// queueing.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/daslui/telegram-music-bot/internal/core"
)

const (
	urlResolveTimeout = 10 * time.Second
	maxRedirects      = 5
)

// resolveUserAgent: spotify.link refuses to redirect bot-looking clients.
const resolveUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client implements core.MusicService on top of the Spotify Web API. Tokens
// flow through the auth manager's TokenSource, so a mid-event token expiry is
// invisible to callers.
type Client struct {
	api      *spotify.Client
	resolver *http.Client
	logger   *zap.Logger
}

// NewClient builds a Client whose every request authenticates through tokens.
func NewClient(ctx context.Context, tokens oauth2.TokenSource, logger *zap.Logger) *Client {
	httpClient := oauth2.NewClient(ctx, tokens)

	return &Client{
		api: spotify.New(httpClient),
		resolver: &http.Client{
			Timeout: urlResolveTimeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		logger: logger,
	}
}

// GetTrack fetches track metadata by id.
func (c *Client) GetTrack(ctx context.Context, trackID string) (*core.Track, error) {
	track, err := c.api.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		if apiStatus(err) == http.StatusNotFound || apiStatus(err) == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", core.ErrTrackNotFound, trackID)
		}
		return nil, fmt.Errorf("get track %s: %w", trackID, err)
	}

	coreTrack := convertTrack(track)
	return &coreTrack, nil
}

// AddToQueue appends the track to the account's playback queue.
func (c *Client) AddToQueue(ctx context.Context, trackID string) error {
	err := c.api.QueueSong(ctx, spotify.ID(trackID))
	if err != nil {
		switch apiStatus(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: queue append rejected", core.ErrUnauthorized)
		}
		return fmt.Errorf("%w: track %s: %v", core.ErrQueueAppend, trackID, err)
	}

	c.logger.Info("Track added to queue", zap.String("trackID", trackID))
	return nil
}

// apiStatus extracts the HTTP status from a Spotify API error, or 0.
func apiStatus(err error) int {
	var serr spotify.Error
	if errors.As(err, &serr) {
		return serr.Status
	}
	return 0
}

func convertTrack(track *spotify.FullTrack) core.Track {
	var artists []string
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	return core.Track{
		ID:       string(track.ID),
		Title:    track.Name,
		Artists:  strings.Join(artists, ", "),
		Album:    track.Album.Name,
		Duration: time.Duration(track.Duration) * time.Millisecond,
		URL:      track.ExternalURLs["spotify"],
	}
}

// ResolveShortLink follows a spotify.link short URL to its open.spotify.com
// destination. Only the headers are fetched.
func (c *Client) ResolveShortLink(ctx context.Context, shortURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, urlResolveTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, shortURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", resolveUserAgent)

	resp, err := c.resolver.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolve short link: %w", err)
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL.String()

	u, err := url.Parse(finalURL)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(u.Hostname(), "open.spotify.com") && strings.Contains(u.Path, "/track/") {
		c.logger.Debug("Resolved short link",
			zap.String("short", shortURL),
			zap.String("resolved", finalURL))
		return finalURL, nil
	}

	return "", fmt.Errorf("short link did not resolve to a track: %s", finalURL)
}
