// Package auth manages the shared Spotify OAuth credential: the initial
// authorization-code exchange, durable persistence, and access-token refresh.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/daslui/telegram-music-bot/internal/core"
)

// tokenKey is where the credential lives in the key-value store.
const tokenKey = "spotify_token"

const authState = "musicbot-auth-state"

// refreshTimeout bounds the token endpoint round trip when the refresh is
// triggered through the ctx-less oauth2.TokenSource path.
const refreshTimeout = 10 * time.Second

// Manager holds the single Spotify credential the whole bot shares. It
// implements oauth2.TokenSource, so the API client pulls every request's
// token through it; expired tokens are refreshed exactly once no matter how
// many requests hit the expiry at the same time.
type Manager struct {
	cfg    *oauth2.Config
	kv     core.KeyValueStore
	logger *zap.Logger

	mu    sync.Mutex
	token *oauth2.Token

	group singleflight.Group

	// exchange and refresh hit the Spotify token endpoint; swappable in tests.
	exchange func(ctx context.Context, code string) (*oauth2.Token, error)
	refresh  func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// NewManager builds a Manager for the given app credentials and loads a
// previously persisted token if one exists.
func NewManager(cfg core.SpotifyConfig, kv core.KeyValueStore, logger *zap.Logger) (*Manager, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
		Scopes: []string{
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopeUserReadEmail,
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
		},
	}

	m := &Manager{
		cfg:    oauthCfg,
		kv:     kv,
		logger: logger,
	}
	m.exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
		return oauthCfg.Exchange(ctx, code)
	}
	m.refresh = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		return oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	}

	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	data, found, err := m.kv.Get(tokenKey)
	if err != nil {
		return fmt.Errorf("load persisted token: %w", err)
	}
	if !found {
		return nil
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		m.logger.Warn("Persisted token is unreadable, starting unauthorized", zap.Error(err))
		return nil
	}
	if token.RefreshToken == "" {
		return nil
	}

	m.token = &token
	m.logger.Info("Loaded persisted Spotify token",
		zap.Time("expiry", token.Expiry))
	return nil
}

// Ready reports whether a usable credential is loaded.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != nil && m.token.RefreshToken != ""
}

// AuthorizationURL returns the consent URL shown to the admin.
func (m *Manager) AuthorizationURL() string {
	return m.cfg.AuthCodeURL(authState)
}

// CompleteAuthorization exchanges the pasted authorization code, or the full
// redirect URL the browser landed on, for a token pair and persists it.
func (m *Manager) CompleteAuthorization(ctx context.Context, input string) error {
	code, err := parseAuthorizationCode(input)
	if err != nil {
		return err
	}

	token, err := m.exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("authorization code exchange: %w", err)
	}
	if token.RefreshToken == "" {
		return errors.New("token response carries no refresh token")
	}

	if err := m.persist(token); err != nil {
		return err
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	m.logger.Info("Spotify credential stored", zap.Time("expiry", token.Expiry))
	return nil
}

// parseAuthorizationCode accepts either a bare code or the full redirect URL
// with a ?code= parameter.
func parseAuthorizationCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}

	if strings.Contains(input, "://") {
		u, err := url.Parse(input)
		if err != nil {
			return "", fmt.Errorf("parse redirect URL: %w", err)
		}
		code := u.Query().Get("code")
		if code == "" {
			return "", errors.New("redirect URL carries no code parameter")
		}
		return code, nil
	}
	return input, nil
}

// Token implements oauth2.TokenSource.
func (m *Manager) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	return m.AccessToken(ctx)
}

// AccessToken returns a valid token, refreshing it first when expired.
// Concurrent callers hitting an expired token share a single refresh.
func (m *Manager) AccessToken(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	current := m.token
	m.mu.Unlock()

	if current == nil || current.RefreshToken == "" {
		return nil, core.ErrUnauthorized
	}
	if current.Valid() {
		return current, nil
	}

	v, err, _ := m.group.Do("refresh", func() (any, error) {
		// The refresh is shared by every caller queued behind it, so it must
		// not die with the winning caller's deadline.
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return m.doRefresh(refreshCtx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

func (m *Manager) doRefresh(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	current := m.token
	m.mu.Unlock()

	if current == nil || current.RefreshToken == "" {
		return nil, core.ErrUnauthorized
	}
	// A caller that queued behind the winning refresh sees a fresh token here.
	if current.Valid() {
		return current, nil
	}

	fresh, err := m.refresh(ctx, current.RefreshToken)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil &&
			(re.Response.StatusCode == 400 || re.Response.StatusCode == 401) {
			m.logger.Warn("Refresh token rejected, re-authorization required", zap.Error(err))
			return nil, fmt.Errorf("%w: refresh token rejected", core.ErrUnauthorized)
		}
		return nil, fmt.Errorf("token refresh: %w", err)
	}

	// Spotify usually omits the refresh token on refresh responses; keep the
	// one we have.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = current.RefreshToken
	}

	// Persist before handing the token out so a crash cannot lose it.
	if err := m.persist(fresh); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.token = fresh
	m.mu.Unlock()

	m.logger.Debug("Refreshed Spotify token", zap.Time("expiry", fresh.Expiry))
	return fresh, nil
}

func (m *Manager) persist(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := m.kv.Set(tokenKey, data); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

// Invalidate drops the credential, forcing a fresh /login.
func (m *Manager) Invalidate() error {
	m.mu.Lock()
	m.token = nil
	m.mu.Unlock()
	return m.kv.Set(tokenKey, []byte("{}"))
}
