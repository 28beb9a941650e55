package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"amazon_rank_sync/internal/app"
	"amazon_rank_sync/internal/lark"
	"amazon_rank_sync/internal/webhook"

	"github.com/rs/zerolog/log"
)

func main() {
	app.SetupEnvironment()

	cfg, err := app.LoadWebhookConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	tokens := lark.NewTokenCache(cfg.LarkHost, cfg.AppID, cfg.AppSecret, 10*time.Second)
	client := lark.NewClient(cfg.LarkHost, "", tokens, 10*time.Second)
	handler := webhook.NewHandler(cfg.VerificationToken, client)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Webhook shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.Addr).Str("path", webhook.Path).Msg("Lark echo webhook listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Webhook server failed")
	}
}
