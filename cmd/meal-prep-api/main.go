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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.GinMode != gin.ReleaseMode,
	})
	defer zl.Sync()

	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	application, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	// The API serves the bundled samples until recipes are added.
	if _, err := application.Seed(ctx); err != nil {
		zl.Fatal("failed to seed recipes", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           application.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("server listening", zap.String("addr", srv.Addr), zap.String("mode", gin.Mode()))
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
