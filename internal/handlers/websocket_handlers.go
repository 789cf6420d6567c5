package handlers

import (
	"net/http"

	"michat/internal/auth"
	"michat/internal/session"
	"michat/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	authService *auth.Service
	router      *session.Router
	upgrader    websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, router *session.Router) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService: authService,
		router:      router,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket gates every new connection on the token carried in the
// query string. A connection that fails authentication never reaches the
// router: no events are processed and no upgrade happens.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authService.ValidateToken(tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := session.NewClient(conn, claims.UserID, claims.Username)
	h.router.Connect(client)

	go client.WritePump()
	go client.ReadPump(h.router)
}
