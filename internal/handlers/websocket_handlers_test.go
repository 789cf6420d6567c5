package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"michat/internal/auth"
	"michat/internal/config"
	"michat/internal/session"

	"github.com/stretchr/testify/require"
)

func newHandlers(t *testing.T) *WebSocketHandlers {
	t.Helper()
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: []byte("test-secret"), ExpiresIn: time.Hour},
	}
	authService := auth.NewService(nil, cfg)
	router := session.NewRouter(nil, 50)
	return NewWebSocketHandlers(authService, router)
}

func TestHandleWebSocket_MissingTokenIsRejected(t *testing.T) {
	req := require.New(t)
	h := newHandlers(t)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()

	h.HandleWebSocket(w, r)

	// No events are processed on an unauthenticated connection: the request
	// is rejected before the upgrade
	req.Equal(http.StatusUnauthorized, w.Code)
}

func TestHandleWebSocket_InvalidTokenIsRejected(t *testing.T) {
	req := require.New(t)
	h := newHandlers(t)

	r := httptest.NewRequest(http.MethodGet, "/ws?token=not-a-valid-token", nil)
	w := httptest.NewRecorder()

	h.HandleWebSocket(w, r)

	req.Equal(http.StatusUnauthorized, w.Code)
}
