package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/grocerycart/api/routes"
	"github.com/angelmondragon/grocerycart/internal/sandbox"
	"github.com/angelmondragon/grocerycart/pkg/config"
	"github.com/angelmondragon/grocerycart/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sandbox-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sandbox-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	loc, err := cfg.Checkout.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid timezone", err)
		os.Exit(1)
	}

	backend, err := sandbox.NewService(cfg.Sandbox, sandbox.Options{
		Location: loc,
		Logger:   logg,
		SeedDemo: true,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sandbox backend", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Sandbox.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"demo_email": cfg.Sandbox.DemoEmail,
	})
	logg.Info(ctx, "starting sandbox api")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, backend),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "sandbox api shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "sandbox api stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "sandbox api stopped")
}
