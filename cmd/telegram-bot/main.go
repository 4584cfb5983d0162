package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal-prep-planner/internal/app"
	"meal-prep-planner/internal/config"
	"meal-prep-planner/internal/logger"
	"meal-prep-planner/internal/telegram"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramWebhookURL == "" {
		log.Fatalf("TELEGRAM_BOT_TOKEN and TELEGRAM_WEBHOOK_URL must be set")
	}

	zl := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer zl.Sync()

	ctx := context.Background()
	application, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	if _, err := application.Seed(ctx); err != nil {
		zl.Fatal("failed to seed recipes", zap.Error(err))
	}

	bot, err := telegram.NewBot(cfg.TelegramBotToken, cfg.TelegramWebhookURL, telegram.Options{
		AllowedUserIDs: cfg.TelegramAllowedUserIDs,
		AdminID:        cfg.AdminTelegramID,
		Chat:           application.Chat(),
		Clipper:        application.Clipper(),
		Planner:        application.Planner(),
		Usage:          application,
		Logger:         zl.Named("telegram"),
	})
	if err != nil {
		zl.Fatal("failed to initialize telegram bot", zap.Error(err))
	}

	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("telegram bot server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	zl.Info("server exiting")
}
