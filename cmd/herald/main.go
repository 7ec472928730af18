package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lysyi3m/rss-herald/internal/api"
	"github.com/lysyi3m/rss-herald/internal/cfg"
	"github.com/lysyi3m/rss-herald/internal/content"
	"github.com/lysyi3m/rss-herald/internal/feed"
	"github.com/lysyi3m/rss-herald/internal/linkstore"
	"github.com/lysyi3m/rss-herald/internal/pipeline"
	"github.com/lysyi3m/rss-herald/internal/publisher"
	"github.com/lysyi3m/rss-herald/internal/summarizer"
)

func main() {
	if err := cfg.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg)

	if err := appCfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(appCfg); err != nil {
		slog.Error("Herald stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(appCfg *cfg.Cfg) {
	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if appCfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting RSS Herald", "version", appCfg.Version)

	sources, err := cfg.LoadSources(appCfg.FeedsFile)
	if err != nil {
		return fmt.Errorf("failed to load feed sources from %s: %w", appCfg.FeedsFile, err)
	}
	slog.Info("Feed sources loaded", "count", len(sources))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, appCfg)
	if err != nil {
		return err
	}
	defer store.Close()

	bot, err := tgbotapi.NewBotAPIWithClient(appCfg.TelegramToken, tgbotapi.APIEndpoint, &http.Client{Timeout: 60 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	slog.Info("Telegram bot authorized", "username", bot.Self.UserName, "channel", appCfg.TelegramChannel)

	gemini, err := summarizer.NewGemini(ctx, summarizer.GeminiConfig{
		APIKey: appCfg.GeminiKey,
		Model:  appCfg.GeminiModel,
	})
	if err != nil {
		return err
	}
	openAI := summarizer.NewOpenAI(summarizer.OpenAIConfig{
		APIKey: appCfg.OpenAIKey,
		Model:  appCfg.OpenAIModel,
	})

	fetcher := feed.NewFetcher(sources, feed.NewFilterer(), appCfg.UserAgent, appCfg.FeedTimeout)
	enricher := content.NewEnricher(
		content.NewExtractor(appCfg.Extractor),
		content.NewImageProber(appCfg.MinImageWidth, appCfg.MinImageHeight, appCfg.UserAgent, appCfg.ImageTimeout),
		appCfg.UserAgent,
		appCfg.PageTimeout,
		appCfg.MaxTextLength,
	)
	summ := summarizer.New(gemini, openAI, appCfg.AIMaxAttempts, appCfg.AIBackoff, appCfg.SummaryLanguage)
	pub := publisher.New(publisher.NewTelegram(bot, appCfg.TelegramChannel), appCfg.PublishInterval, appCfg.LinkButtonText)

	p := pipeline.New(fetcher, enricher, summ, pub, store, pipeline.Config{
		PostDelay: appCfg.PostDelay,
		IdleDelay: appCfg.IdleDelay,
		SkipDelay: appCfg.SkipDelay,
	})

	var httpServer *http.Server
	if appCfg.StatusAddr != "" {
		httpServer = &http.Server{
			Addr:         appCfg.StatusAddr,
			Handler:      api.NewServer(api.NewHandler(p, appCfg.Version)),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("Starting status server", "addr", appCfg.StatusAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Status server error", "error", err)
			}
		}()
	}

	runErr := p.Run(ctx)

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Status server shutdown error", "error", err)
		}
	}

	slog.Info("RSS Herald shutdown complete")
	return runErr
}

func openStore(ctx context.Context, appCfg *cfg.Cfg) (linkstore.Store, error) {
	switch appCfg.StoreBackend {
	case "redis":
		return linkstore.OpenRedis(ctx, appCfg.RedisAddr, appCfg.RedisKey)
	default:
		return linkstore.OpenSQLite(appCfg.DBPath)
	}
}
