package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"whitelist-bot/internal/bot"
	"whitelist-bot/internal/common/config"
	"whitelist-bot/internal/common/logger"
	apphttp "whitelist-bot/internal/http"
	"whitelist-bot/internal/platform/metrics"
	"whitelist-bot/internal/service/export"
	"whitelist-bot/internal/service/registration"
	"whitelist-bot/internal/service/telegram"
	"whitelist-bot/internal/service/wallet"
)

const shutdownTimeout = 30 * time.Second

// Run wires every component and blocks until ctx is cancelled or a
// component fails.
func Run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	storage, err := OpenStorage(ctx, cfg, logger.Component("storage"))
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	walletOpts := []wallet.Option{
		wallet.WithMetrics(m),
		wallet.WithLogger(logger.Component("wallet")),
	}
	if storage.Cache != nil {
		walletOpts = append(walletOpts, wallet.WithCache(storage.Cache))
	}
	wallets, err := wallet.NewService(storage.Repository, walletOpts...)
	if err != nil {
		return err
	}

	controller, err := registration.NewController(wallets, registration.NewSessions(cfg.Session.TTL),
		registration.WithMetrics(m),
		registration.WithLogger(logger.Component("registration")),
	)
	if err != nil {
		return err
	}

	exporter, err := export.NewService(wallets, cfg.Admins,
		export.WithDirectory(cfg.Export.Dir),
		export.WithMetrics(m),
		export.WithLogger(logger.Component("export")),
	)
	if err != nil {
		return err
	}

	tg := telegram.NewClient(cfg.Telegram.BotToken,
		telegram.WithBaseURL(cfg.Telegram.APIBaseURL),
		telegram.WithLogger(logger.Component("telegram")),
	)
	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verify bot token: %w", err)
	}
	log.Info().Int64("bot_id", me.ID).Str("bot_username", me.Username).Msg("Telegram bot authenticated")
	if err := tg.SetMyCommands(ctx, bot.Commands); err != nil {
		log.Warn().Err(err).Msg("Failed to publish bot commands")
	}

	handler, err := bot.NewHandler(controller, exporter, tg, m, logger.Component("bot"))
	if err != nil {
		return err
	}
	dispatcher := bot.NewDispatcher(handler.Handle, cfg.Telegram.Workers)
	poller := bot.NewPoller(tg, dispatcher, me.Username, cfg.Telegram.PollTimeout, logger.Component("poller"))

	router := apphttp.NewRouter(wallets, exporter, apphttp.Options{
		BotToken:           cfg.Telegram.BotToken,
		InitDataTTL:        cfg.Telegram.InitDataTTL,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Gatherer:           reg,
		Debug:              cfg.Debug,
		Log:                logger.Component("http"),
	})
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return poller.Run(gctx)
	})

	return g.Wait()
}
