package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/angelmondragon/grocerycart/pkg/cartapi"
	"github.com/angelmondragon/grocerycart/pkg/config"
	"github.com/angelmondragon/grocerycart/pkg/credentials"
	"github.com/angelmondragon/grocerycart/pkg/env"
	"github.com/angelmondragon/grocerycart/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: "cartctl"})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		return 1
	}

	logg = logger.New(logger.Options{
		ServiceName: "cartctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	creds, err := credentials.Open(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open credential store", err)
		return 1
	}
	defer func() {
		if err := creds.Close(); err != nil {
			logg.Error(ctx, "error closing credential store", err)
		}
	}()

	client, err := cartapi.NewFromConfig(cfg.API)
	if err != nil {
		logg.Error(ctx, "failed to create api client", err)
		return 1
	}

	registry := prometheus.NewRegistry()
	svc, err := NewService(ServiceParams{
		Config:      cfg,
		Logger:      logg,
		Remote:      client,
		Credentials: creds,
		Registry:    registry,
		Out:         os.Stdout,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cartctl service", err)
		return 1
	}

	runErr := svc.Run(ctx, os.Args[1:])
	if env.Get("CARTSYNC_PRINT_METRICS", "") == "true" {
		_ = svc.WriteMetrics(os.Stderr)
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, describeError(runErr))
		return 1
	}
	return 0
}
