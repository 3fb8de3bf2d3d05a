package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/VoiceClient/internal/domain"
)

func newTestServer(t *testing.T) (*gin.Engine, *TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := NewUserStore()
	users.Add("test@example.com", "password123")
	tokens := NewTokenIssuer("test-secret", time.Hour, time.Hour)
	srv := NewServer(users, tokens, Options{
		Mode:     "release",
		Room:     "main",
		MediaURL: "ws://localhost:8080/api/ws/signal",
	})
	return srv.Router(), tokens
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoginSuccess(t *testing.T) {
	router, tokens := newTestServer(t)

	w := postJSON(t, router, "/api/login", gin.H{
		"email":    "test@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		AccessToken  string      `json:"access_token"`
		RefreshToken string      `json:"refresh_token"`
		User         domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "test@example.com", resp.User.Email)

	claims, err := tokens.ParseAccess(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "test@example.com", claims.Email)
	require.Equal(t, string(resp.User.ID), claims.Subject)
}

func TestLoginAliasPath(t *testing.T) {
	router, _ := newTestServer(t)

	w := postJSON(t, router, "/login", gin.H{
		"email":    "test@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := newTestServer(t)

	w := postJSON(t, router, "/api/login", gin.H{
		"email":    "test@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "invalid email or password", resp.Detail)
}

func TestLoginMissingFields(t *testing.T) {
	router, _ := newTestServer(t)

	w := postJSON(t, router, "/api/login", gin.H{"email": "test@example.com"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func loginAndGetAccess(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := postJSON(t, router, "/api/login", gin.H{
		"email":    "test@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func TestMediaTokenRequiresBearer(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/token", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/token", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMediaTokenCarriesRoomGrant(t *testing.T) {
	router, tokens := newTestServer(t)
	access := loginAndGetAccess(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/token", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
		URL   string `json:"url"`
		Room  string `json:"room"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "main", resp.Room)
	require.NotEmpty(t, resp.URL)

	claims, err := tokens.ParseMedia(resp.Token)
	require.NoError(t, err)
	require.Equal(t, "test@example.com", claims.Subject)
	require.Equal(t, "main", claims.Video.Room)
	require.True(t, claims.Video.RoomJoin)
	require.True(t, claims.Video.CanPublish)
	require.True(t, claims.Video.CanSubscribe)
}

func TestMeReturnsCurrentUser(t *testing.T) {
	router, _ := newTestServer(t)
	access := loginAndGetAccess(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var user domain.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	require.Equal(t, "test@example.com", user.Email)
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	users := NewUserStore()
	user := users.Add("test@example.com", "password123")
	tokens := NewTokenIssuer("test-secret", -time.Minute, time.Hour)
	srv := NewServer(users, tokens, Options{Room: "main"})
	router := srv.Router()

	expired, err := tokens.IssueAccess(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/token", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
