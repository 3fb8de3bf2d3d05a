// Package session sequences the causal chain: authenticated credential ->
// media token -> room connect, and unwinds all of it on logout. Async
// completions carry the epoch they started under; anything from an older
// epoch is discarded, so a token that resolves after logout can never
// connect a room.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceClient/internal/auth"
	"github.com/dkeye/VoiceClient/internal/backend"
)

// TokenAPI is the slice of the backend client the orchestrator needs.
type TokenAPI interface {
	MediaToken(ctx context.Context, accessToken string) (*backend.MediaToken, error)
}

// Room is the slice of the room controller the orchestrator needs.
type Room interface {
	Connect(ctx context.Context, tok *backend.MediaToken) error
	Close()
}

type Orchestrator struct {
	mu    sync.Mutex
	epoch uint64
	token *backend.MediaToken

	auth   *auth.Controller
	api    TokenAPI
	room   Room
	notify func(msg string)
	logger zerolog.Logger
}

func New(authCtl *auth.Controller, api TokenAPI, room Room) *Orchestrator {
	return &Orchestrator{
		auth:   authCtl,
		api:    api,
		room:   room,
		logger: log.With().Str("module", "session").Logger(),
	}
}

// OnNotify registers the user-visible prompt channel (e.g. the re-login
// banner after a session-fatal token failure).
func (o *Orchestrator) OnNotify(fn func(msg string)) {
	o.mu.Lock()
	o.notify = fn
	o.mu.Unlock()
}

// Start restores a persisted credential and, if present, kicks off the token
// fetch. Restoration is optimistic; a rejected fetch demotes to anonymous.
func (o *Orchestrator) Start(ctx context.Context) {
	if o.auth.Restore() {
		o.startFetch(ctx)
	}
}

// Login authenticates and, on success, continues down the chain.
func (o *Orchestrator) Login(ctx context.Context, email, password string) error {
	if _, err := o.auth.Login(ctx, email, password); err != nil {
		return err
	}
	o.startFetch(ctx)
	return nil
}

// Logout is the single cancellation point: it invalidates in-flight token
// fetches (epoch bump), closes the room, and clears the credential. The room
// close publishes the disconnect that empties sinks and resets the mic.
func (o *Orchestrator) Logout() {
	o.mu.Lock()
	o.epoch++
	o.token = nil
	o.mu.Unlock()

	o.room.Close()
	o.auth.Logout()
	o.logger.Info().Msg("session ended")
}

// MediaToken returns the token of the current session, nil when none.
func (o *Orchestrator) MediaToken() *backend.MediaToken {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.token
}

func (o *Orchestrator) startFetch(ctx context.Context) {
	st := o.auth.State()
	if st.Phase != auth.PhaseAuthenticated || st.Credential.Empty() {
		o.logger.Warn().Str("phase", st.Phase.String()).Msg("token fetch skipped, not authenticated")
		return
	}
	o.mu.Lock()
	epoch := o.epoch
	o.mu.Unlock()

	go o.fetchAndConnect(ctx, epoch, st.Credential.AccessToken)
}

func (o *Orchestrator) fetchAndConnect(ctx context.Context, epoch uint64, bearer string) {
	tok, err := o.api.MediaToken(ctx, bearer)

	o.mu.Lock()
	if epoch != o.epoch {
		o.mu.Unlock()
		o.logger.Info().Msg("discarding stale media token response")
		return
	}
	if err != nil {
		fn := o.notify
		o.mu.Unlock()
		// Session-fatal: the credential cannot buy a media token. Force the
		// logout instead of retrying so a stale credential cannot loop.
		o.logger.Error().Err(err).Msg("media token fetch failed, forcing logout")
		if fn != nil {
			fn("session expired, please log in again")
		}
		o.Logout()
		return
	}
	o.token = tok
	o.mu.Unlock()

	o.connect(ctx, epoch, tok)
}

// connect re-checks the epoch right before dialing, so a logout landing
// between the token store and the connect cannot start a room session. The
// room controller aborts attempts that lose the race past this point.
func (o *Orchestrator) connect(ctx context.Context, epoch uint64, tok *backend.MediaToken) {
	o.mu.Lock()
	current := epoch == o.epoch
	o.mu.Unlock()
	if !current {
		o.logger.Info().Msg("discarding stale media token response")
		return
	}
	if err := o.room.Connect(ctx, tok); err != nil {
		o.logger.Error().Err(err).Msg("room connect failed")
	}
}
