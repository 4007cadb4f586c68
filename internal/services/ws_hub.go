package services

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Notification message types pushed to clients.
const (
	MsgRequestReceived  = "request_received"
	MsgRequestResponded = "request_responded"
	MsgPairingCreated   = "pairing_created"
	MsgPartnerPlanned   = "partner_planned"
	MsgPartnerSubmitted = "partner_submitted"
	MsgTaskVerified     = "task_verified"
	MsgRatingSettled    = "rating_settled"
	MsgPartnerStatus    = "partner_status"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Online  *bool       `json:"online,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections. It is the push channel for all
// user-visible notifications; clients never poll.
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{connections: make(map[string]*websocket.Conn)}
}

// Register registers a new WebSocket connection for a user
func (h *WSHub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Close existing connection if any
	if existing, exists := h.connections[userID]; exists {
		existing.Close()
	}
	h.connections[userID] = conn

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes the user's connection, but only while it is still the
// given one. A handler cleaning up after a reconnect replaced its connection
// must not tear down the replacement.
func (h *WSHub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, exists := h.connections[userID]
	if !exists || current != conn {
		return
	}
	current.Close()
	delete(h.connections, userID)
	log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// Notify sends a message to a user if connected, dropping it otherwise.
func (h *WSHub) Notify(userID string, msg WSMessage) {
	h.mu.RLock()
	conn, exists := h.connections[userID]
	h.mu.RUnlock()
	if !exists {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal ws message")
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to send ws message")
		h.Unregister(userID, conn)
	}
}

// NotifyPartnerStatus tells a user their partner went online or offline.
func (h *WSHub) NotifyPartnerStatus(partnerID string, online bool) {
	if partnerID == "" {
		return
	}
	h.Notify(partnerID, WSMessage{Type: MsgPartnerStatus, Online: &online})
}
