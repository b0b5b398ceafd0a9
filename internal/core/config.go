package core

import (
	"fmt"
	"strconv"
	"time"
)

type Config struct {
	Telegram  TelegramConfig
	Spotify   SpotifyConfig
	RateLimit RateLimitConfig
	Server    ServerConfig
	Log       LogConfig
	App       AppConfig
}

type TelegramConfig struct {
	BotToken     string
	VotingChatID string
	// VotingThreadID targets a topic thread inside the voting chat; empty
	// means the chat's main timeline.
	VotingThreadID string
	// AdminIDs are the users allowed to run the authorization flow.
	AdminIDs []string
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type RateLimitConfig struct {
	Window time.Duration
	Limit  int
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level string
}

type AppConfig struct {
	Language string
	// StatePath is the sqlite file holding the cached OAuth credential.
	StatePath string
	// RequestTimeout bounds every external call made by a single handler.
	RequestTimeout time.Duration
	// DedupCapacity bounds the recently-queued track set.
	DedupCapacity int
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURL: "http://localhost:8888/callback",
		},
		RateLimit: RateLimitConfig{
			Window: 5 * time.Minute,
			Limit:  3,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		App: AppConfig{
			Language:       "en",
			StatePath:      "./musicbot_state.db",
			RequestTimeout: 15 * time.Second,
			DedupCapacity:  1000,
		},
	}
}

// Validate reports the first missing required value. Absence of any of these
// is startup-fatal.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required")
	}
	if c.Telegram.VotingChatID == "" {
		return fmt.Errorf("voting chat ID is required")
	}
	// The frontend converts these to int64 on every send; catch a bad value
	// here instead of on the first vote post.
	if _, err := strconv.ParseInt(c.Telegram.VotingChatID, 10, 64); err != nil {
		return fmt.Errorf("voting chat ID must be numeric: %q", c.Telegram.VotingChatID)
	}
	if c.Telegram.VotingThreadID != "" {
		if _, err := strconv.Atoi(c.Telegram.VotingThreadID); err != nil {
			return fmt.Errorf("voting thread ID must be numeric: %q", c.Telegram.VotingThreadID)
		}
	}
	if c.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}
	if c.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required")
	}
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("rate limit count must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	return nil
}

// IsAdmin reports whether the user may run admin commands.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
