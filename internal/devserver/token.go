package devserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkeye/VoiceClient/internal/domain"
)

// TokenIssuer mints the two JWT kinds the backend hands out: session access
// tokens for the HTTP API and media tokens with room grants for the voice
// server.
type TokenIssuer struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	mediaTTL  time.Duration
}

func NewTokenIssuer(secret string, accessTTL, mediaTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:    []byte(secret),
		issuer:    "voiceclient-devserver",
		accessTTL: accessTTL,
		mediaTTL:  mediaTTL,
	}
}

type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// VideoGrant mirrors the grant block a media server expects inside the
// room token.
type VideoGrant struct {
	RoomJoin     bool   `json:"roomJoin"`
	Room         string `json:"room"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
}

type MediaClaims struct {
	Video VideoGrant `json:"video"`
	Name  string     `json:"name"`
	jwt.RegisteredClaims
}

func (t *TokenIssuer) IssueAccess(user domain.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) ParseAccess(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("access token missing subject")
	}
	return &claims, nil
}

// IssueMedia builds the room token: identity as subject, one room grant,
// publish and subscribe allowed.
func (t *TokenIssuer) IssueMedia(identity domain.Identity, room domain.RoomName) (string, error) {
	now := time.Now()
	claims := MediaClaims{
		Video: VideoGrant{
			RoomJoin:     true,
			Room:         string(room),
			CanPublish:   true,
			CanSubscribe: true,
		},
		Name: string(identity),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(identity),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.mediaTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign media token: %w", err)
	}
	return signed, nil
}

// ParseMedia validates a media token, used by tests and by the voice server
// side of a local setup.
func (t *TokenIssuer) ParseMedia(raw string) (*MediaClaims, error) {
	var claims MediaClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse media token: %w", err)
	}
	return &claims, nil
}
