// Package main provides the music request bot CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/daslui/telegram-music-bot/internal/auth"
	"github.com/daslui/telegram-music-bot/internal/chat"
	"github.com/daslui/telegram-music-bot/internal/chat/telegram"
	"github.com/daslui/telegram-music-bot/internal/core"
	"github.com/daslui/telegram-music-bot/internal/flood"
	httpserver "github.com/daslui/telegram-music-bot/internal/http"
	"github.com/daslui/telegram-music-bot/internal/spotify"
	"github.com/daslui/telegram-music-bot/internal/store"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "musicbot",
	Short: "Telegram music request bot for shared Spotify queues",
	Long: `musicbot lets party guests request Spotify tracks via Telegram. Each request
is posted to a moderator chat for an approve/decline vote; approved tracks are
appended to the host's Spotify playback queue.`,
	RunE: runBot,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("telegram-bot-token", "", "Telegram bot token")
	rootCmd.PersistentFlags().String("telegram-voting-chat-id", "", "chat ID for moderator votes")
	rootCmd.PersistentFlags().String("telegram-voting-thread-id", "", "optional topic thread inside the voting chat")
	rootCmd.PersistentFlags().StringSlice("telegram-admin-ids", nil, "user IDs allowed to run /login")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("spotify-redirect-url", "", "OAuth redirect URL registered with Spotify")
	rootCmd.PersistentFlags().Int("rate-limit", 0, "max requests per user per window")
	rootCmd.PersistentFlags().Duration("rate-window", 0, "rate limit window")
	rootCmd.PersistentFlags().String("server-host", "", "HTTP server bind host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().String("language", "", "bot language (en, de)")
	rootCmd.PersistentFlags().String("state-path", "", "sqlite file for persisted state")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("MUSICBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Telegram.BotToken = viper.GetString("telegram-bot-token")
	cfg.Telegram.VotingChatID = viper.GetString("telegram-voting-chat-id")
	cfg.Telegram.VotingThreadID = viper.GetString("telegram-voting-thread-id")
	cfg.Telegram.AdminIDs = viper.GetStringSlice("telegram-admin-ids")

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	if u := viper.GetString("spotify-redirect-url"); u != "" {
		cfg.Spotify.RedirectURL = u
	}

	if limit := viper.GetInt("rate-limit"); limit > 0 {
		cfg.RateLimit.Limit = limit
	}
	if window := viper.GetDuration("rate-window"); window > 0 {
		cfg.RateLimit.Window = window
	}

	if host := viper.GetString("server-host"); host != "" {
		cfg.Server.Host = host
	}
	cfg.Server.Port = viper.GetInt("server-port")

	cfg.Log.Level = viper.GetString("log-level")

	if lang := viper.GetString("language"); lang != "" {
		cfg.App.Language = lang
	}
	if path := viper.GetString("state-path"); path != "" {
		cfg.App.StatePath = path
	}

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runBot(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting music request bot",
		zap.String("voting_chat", config.Telegram.VotingChatID),
		zap.Int("admins", len(config.Telegram.AdminIDs)))

	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	kv, err := store.OpenKV(config.App.StatePath)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer kv.Close()

	authManager, err := auth.NewManager(config.Spotify, kv, logger.Named("auth"))
	if err != nil {
		return fmt.Errorf("failed to initialize auth manager: %w", err)
	}
	if !authManager.Ready() {
		logger.Warn("No Spotify credential stored yet, an admin must run /login")
	}

	musicClient := spotify.NewClient(ctx, authManager, logger.Named("spotify"))

	limiter := flood.New(config.RateLimit.Limit, config.RateLimit.Window)
	defer limiter.Stop()

	dedup := store.NewRecentTracks(config.App.DedupCapacity)

	frontend, err := telegram.NewFrontend(config.Telegram.BotToken, logger.Named("telegram"))
	if err != nil {
		return fmt.Errorf("failed to create telegram frontend: %w", err)
	}

	httpServer := httpserver.NewServer(&config.Server, authManager.Ready, logger.Named("http"))

	workflow := core.NewWorkflow(
		config,
		frontend,
		musicClient,
		authManager,
		limiter,
		dedup,
		httpServer.Metrics(),
		logger.Named("workflow"),
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return frontend.Listen(gCtx, chatHandlers(workflow))
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				httpServer.Metrics().SetPendingRequests(workflow.Ledger().Pending())
			}
		}
	})

	logger.Info("Music request bot started",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("Music request bot stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Music request bot stopped gracefully")
	return nil
}

func chatHandlers(workflow *core.Workflow) chat.Handlers {
	return chat.Handlers{
		OnMessage: workflow.HandleMessage,
		OnVote:    workflow.HandleVote,
	}
}
