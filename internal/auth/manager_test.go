package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/daslui/telegram-music-bot/internal/core"
)

type memoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string][]byte)}
}

func (kv *memoryKV) Get(key string) ([]byte, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[key]
	return v, ok, nil
}

func (kv *memoryKV) Set(key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = value
	kv.sets++
	return nil
}

func (kv *memoryKV) storedToken(t *testing.T) *oauth2.Token {
	t.Helper()
	kv.mu.Lock()
	defer kv.mu.Unlock()
	data, ok := kv.data[tokenKey]
	if !ok {
		t.Fatal("no token persisted")
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		t.Fatalf("persisted token unreadable: %v", err)
	}
	return &token
}

func testSpotifyConfig() core.SpotifyConfig {
	return core.SpotifyConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8888/callback",
	}
}

func newTestManager(t *testing.T, kv *memoryKV) *Manager {
	t.Helper()
	m, err := NewManager(testSpotifyConfig(), kv, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func validToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(time.Hour),
	}
}

func expiredToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "access-stale",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Minute),
	}
}

func TestManagerStartsUnauthorized(t *testing.T) {
	m := newTestManager(t, newMemoryKV())

	if m.Ready() {
		t.Error("fresh manager must not be ready")
	}
	if _, err := m.AccessToken(context.Background()); !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("AccessToken error = %v, expected ErrUnauthorized", err)
	}
}

func TestManagerLoadsPersistedToken(t *testing.T) {
	kv := newMemoryKV()
	data, _ := json.Marshal(validToken())
	kv.data[tokenKey] = data

	m := newTestManager(t, kv)

	if !m.Ready() {
		t.Fatal("manager should be ready with a persisted token")
	}
	tok, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken failed: %v", err)
	}
	if tok.AccessToken != "access-1" {
		t.Errorf("AccessToken = %q", tok.AccessToken)
	}
}

func TestManagerIgnoresCorruptPersistedToken(t *testing.T) {
	kv := newMemoryKV()
	kv.data[tokenKey] = []byte("not json")

	m := newTestManager(t, kv)
	if m.Ready() {
		t.Error("corrupt token must not make the manager ready")
	}
}

func TestCompleteAuthorizationPersistsToken(t *testing.T) {
	kv := newMemoryKV()
	m := newTestManager(t, kv)
	m.exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
		if code != "the-code" {
			t.Errorf("exchange got code %q", code)
		}
		return validToken(), nil
	}

	if err := m.CompleteAuthorization(context.Background(), "the-code"); err != nil {
		t.Fatalf("CompleteAuthorization failed: %v", err)
	}

	if !m.Ready() {
		t.Error("manager should be ready after authorization")
	}
	if got := kv.storedToken(t); got.RefreshToken != "refresh-1" {
		t.Errorf("persisted refresh token = %q", got.RefreshToken)
	}
}

func TestCompleteAuthorizationAcceptsRedirectURL(t *testing.T) {
	m := newTestManager(t, newMemoryKV())
	var gotCode string
	m.exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
		gotCode = code
		return validToken(), nil
	}

	err := m.CompleteAuthorization(context.Background(),
		"http://localhost:8888/callback?code=abc123&state=musicbot-auth-state")
	if err != nil {
		t.Fatalf("CompleteAuthorization failed: %v", err)
	}
	if gotCode != "abc123" {
		t.Errorf("extracted code = %q, expected %q", gotCode, "abc123")
	}
}

func TestParseAuthorizationCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare code", "AQDtoken", "AQDtoken", false},
		{"padded code", "  AQDtoken  ", "AQDtoken", false},
		{"redirect url", "http://localhost:8888/callback?code=xyz&state=s", "xyz", false},
		{"url without code", "http://localhost:8888/callback?error=access_denied", "", true},
		{"empty", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAuthorizationCode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("code = %q, expected %q", got, tt.want)
			}
		})
	}
}

func TestAccessTokenSkipsRefreshWhileValid(t *testing.T) {
	kv := newMemoryKV()
	data, _ := json.Marshal(validToken())
	kv.data[tokenKey] = data

	m := newTestManager(t, kv)
	m.refresh = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		t.Fatal("refresh must not run for a valid token")
		return nil, nil
	}

	if _, err := m.AccessToken(context.Background()); err != nil {
		t.Fatalf("AccessToken failed: %v", err)
	}
}

func TestAccessTokenRefreshesExpiredToken(t *testing.T) {
	kv := newMemoryKV()
	data, _ := json.Marshal(expiredToken())
	kv.data[tokenKey] = data

	m := newTestManager(t, kv)
	m.refresh = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		if refreshToken != "refresh-1" {
			t.Errorf("refresh got token %q", refreshToken)
		}
		return &oauth2.Token{
			AccessToken: "access-2",
			Expiry:      time.Now().Add(time.Hour),
		}, nil
	}

	tok, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken failed: %v", err)
	}
	if tok.AccessToken != "access-2" {
		t.Errorf("AccessToken = %q after refresh", tok.AccessToken)
	}
	if tok.RefreshToken != "refresh-1" {
		t.Error("refresh token must be carried over when the response omits it")
	}
	if got := kv.storedToken(t); got.AccessToken != "access-2" {
		t.Error("refreshed token must be persisted")
	}
}

func TestAccessTokenRefreshSurvivesCallerCancellation(t *testing.T) {
	kv := newMemoryKV()
	data, _ := json.Marshal(expiredToken())
	kv.data[tokenKey] = data

	m := newTestManager(t, kv)
	m.refresh = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		if err := ctx.Err(); err != nil {
			t.Errorf("shared refresh must not inherit the caller's cancellation: %v", err)
		}
		return &oauth2.Token{
			AccessToken: "access-2",
			Expiry:      time.Now().Add(time.Hour),
		}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tok, err := m.AccessToken(ctx)
	if err != nil {
		t.Fatalf("AccessToken failed: %v", err)
	}
	if tok.AccessToken != "access-2" {
		t.Errorf("AccessToken = %q after refresh", tok.AccessToken)
	}
}

func TestAccessTokenConcurrentRefreshRunsOnce(t *testing.T) {
	kv := newMemoryKV()
	data, _ := json.Marshal(expiredToken())
	kv.data[tokenKey] = data

	m := newTestManager(t, kv)
	var refreshes atomic.Int32
	m.refresh = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		refreshes.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &oauth2.Token{
			AccessToken: "access-2",
			Expiry:      time.Now().Add(time.Hour),
		}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.AccessToken(context.Background()); err != nil {
				t.Errorf("AccessToken failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := refreshes.Load(); got != 1 {
		t.Errorf("refresh ran %d times, expected 1", got)
	}
}

func TestAccessTokenRefreshFailureSurfaces(t *testing.T) {
	kv := newMemoryKV()
	data, _ := json.Marshal(expiredToken())
	kv.data[tokenKey] = data

	m := newTestManager(t, kv)
	m.refresh = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		return nil, errors.New("token endpoint unreachable")
	}

	if _, err := m.AccessToken(context.Background()); err == nil {
		t.Fatal("expected refresh failure to surface")
	}
}

func TestInvalidateDropsCredential(t *testing.T) {
	kv := newMemoryKV()
	data, _ := json.Marshal(validToken())
	kv.data[tokenKey] = data

	m := newTestManager(t, kv)
	if err := m.Invalidate(); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if m.Ready() {
		t.Error("manager must not be ready after Invalidate")
	}

	// A restart must not resurrect the credential.
	m2 := newTestManager(t, kv)
	if m2.Ready() {
		t.Error("invalidated credential came back after reload")
	}
}

func TestAuthorizationURLCarriesClientAndScopes(t *testing.T) {
	m := newTestManager(t, newMemoryKV())
	u := m.AuthorizationURL()

	for _, want := range []string{"accounts.spotify.com", "client-id", "user-modify-playback-state"} {
		if !strings.Contains(u, want) {
			t.Errorf("authorization URL %q missing %q", u, want)
		}
	}
}
