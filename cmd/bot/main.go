package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"whitelist-bot/internal/app"
	"whitelist-bot/internal/common/config"
	"whitelist-bot/internal/common/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("whitelist-bot", false)
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.Init("whitelist-bot", cfg.Debug)
	log.Info().
		Str("storage_driver", cfg.Storage.Driver).
		Int("admins", len(cfg.Admins)).
		Bool("debug", cfg.Debug).
		Msg("Starting whitelist bot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, log); err != nil {
		stop()
		log.Error().Err(err).Msg("Whitelist bot stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Whitelist bot exited")
}
