package handlers

import (
	"context"
	"net/http"

	"accpartner-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub            *services.WSHub
	userService    *services.UserService
	pairingService *services.PairingService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, userService *services.UserService, pairingService *services.PairingService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		userService:    userService,
		pairingService: pairingService,
	}
}

// HandleWebSocket handles GET /ws?token=. The connection is a push channel
// for notifications; clients don't send anything besides pings.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "token required"})
		return
	}
	userID, err := h.userService.ValidateJWT(token)
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.hub.Register(userID, conn)
	defer func() {
		h.hub.Unregister(userID, conn)
		// A reconnect may already have replaced this connection; only
		// announce offline when the user really has none left.
		if !h.hub.IsOnline(userID) {
			h.notifyPartners(userID, false)
		}
	}()

	h.notifyPartners(userID, true)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	// Drain the connection until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			return
		}
	}
}

// notifyPartners runs off the request context: the deferred offline
// notification fires after the request is already done.
func (h *WebSocketHandler) notifyPartners(userID string, online bool) {
	pairings, err := h.pairingService.ListPairings(context.Background(), userID)
	if err != nil {
		return
	}
	for _, pairing := range pairings {
		h.hub.NotifyPartnerStatus(pairing.PartnerID, online)
	}
}
