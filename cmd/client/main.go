package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/asaskevich/EventBus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceClient/internal/auth"
	"github.com/dkeye/VoiceClient/internal/backend"
	"github.com/dkeye/VoiceClient/internal/config"
	"github.com/dkeye/VoiceClient/internal/core"
	"github.com/dkeye/VoiceClient/internal/creds"
	"github.com/dkeye/VoiceClient/internal/domain"
	"github.com/dkeye/VoiceClient/internal/mic"
	"github.com/dkeye/VoiceClient/internal/presence"
	"github.com/dkeye/VoiceClient/internal/render"
	"github.com/dkeye/VoiceClient/internal/room"
	"github.com/dkeye/VoiceClient/internal/rtc"
	"github.com/dkeye/VoiceClient/internal/session"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	email := flag.String("email", "", "login email (omit to reuse a persisted session)")
	password := flag.String("password", "", "login password")
	roomFlag := flag.String("room", "", "room to join (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if *roomFlag != "" {
		cfg.Room = *roomFlag
	}

	name := cfg.Identity
	if name == "" {
		name = *email
	}
	identity, err := domain.NewIdentity(name)
	if err != nil {
		log.Error().Err(err).Msg("invalid identity; set identity in config or pass -email")
		os.Exit(1)
	}

	store := creds.Open(cfg.CredentialsPath, cfg.KeyringDisabled)
	api := backend.New(cfg.BackendURL)
	authCtl := auth.NewController(store, api)

	bus := EventBus.New()
	roomCtl := room.NewController(bus, room.Options{
		SignalURL: cfg.MediaURL,
		Room:      domain.RoomName(cfg.Room),
		Identity:  identity,
		RTC:       rtc.DefaultConfig(),
	})
	renderer := render.NewRenderer(render.NewSinkFactory(render.DiscardOutput{}))
	reporter := presence.NewReporter()
	publisher := mic.NewPublisher(roomCtl, mic.Options{
		SourceID: cfg.CaptureSource,
		OggPath:  cfg.CaptureOggPath,
	})

	_ = bus.Subscribe(room.TopicConnected, func(info room.Info) {
		log.Info().Str("room", string(info.Room)).Msg("connected, start speaking")
		go publisher.Run(ctx)
	})
	_ = bus.Subscribe(room.TopicTracks, func(tracks []core.RemoteTrack) {
		renderer.Reconcile(tracks)
	})
	_ = bus.Subscribe(room.TopicDisconnected, func() {
		renderer.Close()
		publisher.Reset()
		reporter.Reset()
	})
	_ = bus.Subscribe(room.TopicPresence, reporter.Handle)
	_ = bus.Subscribe(room.TopicError, func(err error) {
		log.Error().Err(err).Msg("room connection error")
	})

	orch := session.New(authCtl, api, roomCtl)
	orch.OnNotify(func(msg string) {
		log.Warn().Msg(msg)
	})

	if *email != "" {
		if err := orch.Login(ctx, *email, *password); err != nil {
			log.Error().Err(err).Msg("login failed")
			os.Exit(1)
		}
	} else {
		orch.Start(ctx)
		if authCtl.State().Phase != auth.PhaseAuthenticated {
			log.Error().Msg("no persisted session; pass -email and -password")
			os.Exit(1)
		}
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	orch.Logout()
	log.Info().Msg("Client exited gracefully")
}
