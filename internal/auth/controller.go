package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceClient/internal/creds"
)

// LoginAPI is the slice of the backend client the controller needs.
type LoginAPI interface {
	Login(ctx context.Context, email, password string) (*creds.Credential, error)
}

// Controller owns the auth state machine and the persisted credential.
// Invariant: the state is PhaseAuthenticated iff a non-empty credential is
// persisted in the store. Save happens before the transition in, Clear
// before the transition out.
type Controller struct {
	mu       sync.Mutex
	state    State
	store    creds.Store
	api      LoginAPI
	onChange func(State)
	logger   zerolog.Logger
}

func NewController(store creds.Store, api LoginAPI) *Controller {
	return &Controller{
		state:  State{Phase: PhaseAnonymous},
		store:  store,
		api:    api,
		logger: log.With().Str("module", "auth").Logger(),
	}
}

// OnChange registers a single observer for state transitions. It is called
// outside the controller lock.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) apply(ev Event) State {
	c.mu.Lock()
	c.state = Reduce(c.state, ev)
	next := c.state
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(next)
	}
	return next
}

// Restore loads a persisted credential and, if present, optimistically moves
// to authenticated without re-validating. Downstream fetch failure is the
// validation path.
func (c *Controller) Restore() bool {
	cred, err := c.store.Load()
	if err != nil {
		if !errors.Is(err, creds.ErrNotFound) {
			c.logger.Warn().Err(err).Msg("credential restore failed")
		}
		return false
	}
	c.logger.Info().Msg("restored persisted credential")
	c.apply(Restored{Credential: cred})
	return true
}

// Login submits email/password to the backend. On success the credential is
// persisted first, then the state moves to authenticated.
func (c *Controller) Login(ctx context.Context, email, password string) (*creds.Credential, error) {
	c.apply(LoginStarted{})
	c.logger.Info().Str("email", email).Msg("logging in")

	cred, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.logger.Warn().Err(err).Msg("login failed")
		c.apply(LoginFailed{Message: err.Error()})
		return nil, err
	}
	if err := c.store.Save(cred); err != nil {
		err = fmt.Errorf("persist credential: %w", err)
		c.apply(LoginFailed{Message: err.Error()})
		return nil, err
	}
	c.apply(LoginSucceeded{Credential: cred})
	return cred, nil
}

// Logout clears the persisted credential and returns to anonymous. Callers
// that own downstream resources (token fetch, room) cancel those first; the
// session orchestrator is the single place that sequences it.
func (c *Controller) Logout() {
	if err := c.store.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("credential clear failed")
	}
	c.logger.Info().Msg("logged out")
	c.apply(LoggedOut{})
}
