package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceClient/internal/config"
	"github.com/dkeye/VoiceClient/internal/devserver"
	"github.com/dkeye/VoiceClient/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}

	users := devserver.NewUserStore()
	// Seeded development account.
	users.Add("test@example.com", "password123")

	tokens := devserver.NewTokenIssuer(cfg.DevServer.Secret, cfg.DevServer.AccessTTL, cfg.DevServer.MediaTTL)
	srv := devserver.NewServer(users, tokens, devserver.Options{
		Mode:     cfg.Mode,
		Room:     domain.RoomName(cfg.Room),
		MediaURL: cfg.MediaURL,
	})

	addr := fmt.Sprintf(":%d", cfg.DevServer.Port)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.Router(),
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Dev backend started")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
