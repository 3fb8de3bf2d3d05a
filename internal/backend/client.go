// Package backend is the HTTP client for the auth/token backend. The backend
// is an opaque JSON-over-HTTP contract; this package only moves bytes and
// maps failure statuses onto the client's error taxonomy.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceClient/internal/creds"
)

var (
	// ErrInvalidCredentials means the backend rejected the email/password
	// pair. The wrapping message carries the backend's error detail.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized means the bearer credential no longer buys a media
	// token. Session-fatal: the caller must force a logout, never retry.
	ErrUnauthorized = errors.New("unauthorized")
)

const requestTimeout = 10 * time.Second

// MediaToken is the short-lived token that admits this client into one room.
// URL and Room are optional hints from the backend.
type MediaToken struct {
	Token string `json:"token"`
	URL   string `json:"url,omitempty"`
	Room  string `json:"room,omitempty"`
}

type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout),
		logger: log.With().Str("module", "backend").Logger(),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	User         json.RawMessage `json:"user"`
}

type apiError struct {
	Detail string `json:"detail"`
}

// Login exchanges email/password for a bearer credential. A non-2xx response
// surfaces the backend's detail message wrapped in ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, email, password string) (*creds.Credential, error) {
	var (
		out    loginResponse
		outErr apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(loginRequest{Email: email, Password: password}).
		SetResult(&out).
		SetError(&outErr).
		Post("/api/login")
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	if resp.IsError() {
		detail := outErr.Detail
		if detail == "" {
			detail = "login failed, check email and password"
		}
		c.logger.Warn().Int("status", resp.StatusCode()).Str("detail", detail).Msg("login rejected")
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, detail)
	}

	cred := &creds.Credential{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		// Profile shape is the backend's business; keep it opaque.
		User: out.User,
	}
	if cred.Empty() {
		return nil, fmt.Errorf("login response missing access_token")
	}
	c.logger.Info().Str("email", email).Msg("login ok")
	return cred, nil
}

// MediaToken requests a room access token for the given bearer credential.
// Any non-2xx is ErrUnauthorized; the caller treats it as session-fatal.
func (c *Client) MediaToken(ctx context.Context, accessToken string) (*MediaToken, error) {
	var out MediaToken
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+accessToken).
		SetResult(&out).
		Get("/api/token")
	if err != nil {
		return nil, fmt.Errorf("media token request: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn().Int("status", resp.StatusCode()).Msg("media token rejected")
		return nil, fmt.Errorf("%w: media token fetch returned %d", ErrUnauthorized, resp.StatusCode())
	}
	if out.Token == "" {
		return nil, fmt.Errorf("media token response missing token")
	}
	c.logger.Info().Str("room", out.Room).Msg("media token issued")
	return &out, nil
}
