package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pelyams/simpler_recommendation_service/cmd/api/app"
	"github.com/pelyams/simpler_recommendation_service/internal/config"
	"github.com/pelyams/simpler_recommendation_service/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	app, err := app.New(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize service")
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logging.Error().Err(err).Msg("service stopped with error")
		app.Close()
		os.Exit(1)
	}
}
