// Package devserver is a local stand-in for the production backend: the two
// HTTP endpoints the client talks to, with seeded users and HS256 tokens.
package devserver

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceClient/internal/domain"
)

type Options struct {
	Mode     string
	Room     domain.RoomName
	MediaURL string
}

type userRecord struct {
	user     domain.User
	password string
}

// UserStore is an in-memory account table keyed by email.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]userRecord
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]userRecord)}
}

func (s *UserStore) Add(email, password string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{ID: domain.UserID(uuid.NewString()), Email: email}
	s.users[email] = userRecord{user: u, password: password}
	return u
}

// Authenticate checks the pair in constant time per field.
func (s *UserStore) Authenticate(email, password string) (domain.User, bool) {
	s.mu.RLock()
	rec, ok := s.users[email]
	s.mu.RUnlock()
	if !ok {
		return domain.User{}, false
	}
	if subtle.ConstantTimeCompare([]byte(rec.password), []byte(password)) != 1 {
		return domain.User{}, false
	}
	return rec.user, true
}

func (s *UserStore) ByID(id domain.UserID) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.users {
		if rec.user.ID == id {
			return rec.user, true
		}
	}
	return domain.User{}, false
}

type Server struct {
	users  *UserStore
	tokens *TokenIssuer
	opts   Options
	logger zerolog.Logger
}

func NewServer(users *UserStore, tokens *TokenIssuer, opts Options) *Server {
	return &Server{
		users:  users,
		tokens: tokens,
		opts:   opts,
		logger: log.With().Str("module", "devserver").Logger(),
	}
}

// Router builds the gin engine. Both login paths land on the same handler;
// the duplicated flows of older clients are one contract here.
func (s *Server) Router() *gin.Engine {
	if s.opts.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if s.opts.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.POST("/api/login", s.handleLogin)
	r.POST("/login", s.handleLogin)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authorized := r.Group("/api", s.requireBearer)
	authorized.GET("/token", s.handleToken)
	authorized.GET("/me", s.handleMe)

	return r
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "email and password are required"})
		return
	}

	user, ok := s.users.Authenticate(req.Email, req.Password)
	if !ok {
		s.logger.Warn().Str("email", req.Email).Msg("login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid email or password"})
		return
	}

	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		s.logger.Error().Err(err).Msg("access token issue failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "login failed, try again later"})
		return
	}

	s.logger.Info().Str("email", user.Email).Msg("login ok")
	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": uuid.NewString(),
		"user":          user,
	})
}

func (s *Server) requireBearer(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid authentication credentials"})
		return
	}
	claims, err := s.tokens.ParseAccess(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("bearer rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid authentication credentials"})
		return
	}
	user, ok := s.users.ByID(domain.UserID(claims.Subject))
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid authentication credentials"})
		return
	}
	c.Set("user", user)
	c.Next()
}

func currentUser(c *gin.Context) domain.User {
	u, _ := c.Get("user")
	user, _ := u.(domain.User)
	return user
}

func (s *Server) handleToken(c *gin.Context) {
	user := currentUser(c)
	identity := domain.Identity(user.Email)

	token, err := s.tokens.IssueMedia(identity, s.opts.Room)
	if err != nil {
		s.logger.Error().Err(err).Msg("media token issue failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "token generation failed"})
		return
	}

	s.logger.Info().Str("identity", string(identity)).Str("room", string(s.opts.Room)).Msg("media token issued")
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"url":   s.opts.MediaURL,
		"room":  string(s.opts.Room),
	})
}

func (s *Server) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}
