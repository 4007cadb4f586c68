package handlers

import (
	"encoding/json"
	"net/http"

	"accpartner-backend/internal/apperr"
	"accpartner-backend/internal/middleware"
	"accpartner-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PairingHandler handles pairing negotiation HTTP requests
type PairingHandler struct {
	pairingService *services.PairingService
}

// NewPairingHandler creates a new pairing handler
func NewPairingHandler(pairingService *services.PairingService) *PairingHandler {
	return &PairingHandler{pairingService: pairingService}
}

type sendRequestBody struct {
	ToUser string `json:"to_user"`
}

// SendRequest handles POST /api/v1/pairing-requests
func (h *PairingHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var body sendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, apperr.Validation("invalid request body"))
		return
	}
	if body.ToUser == "" {
		respondError(w, apperr.Validation("to_user is required"))
		return
	}

	req, err := h.pairingService.SendRequest(r.Context(), userID, body.ToUser)
	if err != nil {
		respondError(w, err)
		return
	}

	log.Info().Str("request_id", req.ID).Str("from", userID).Str("to", body.ToUser).
		Msg("Pairing request sent")
	respondJSON(w, http.StatusCreated, req)
}

// ListRequests handles GET /api/v1/pairing-requests
func (h *PairingHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	requests, err := h.pairingService.ListRequests(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	incoming := make([]*services.RequestView, 0)
	outgoing := make([]*services.RequestView, 0)
	for _, req := range requests {
		if req.ToUser == userID {
			incoming = append(incoming, req)
		} else {
			outgoing = append(outgoing, req)
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"incoming": incoming,
		"outgoing": outgoing,
	})
}

type respondRequestBody struct {
	Accept bool `json:"accept"`
}

// RespondRequest handles POST /api/v1/pairing-requests/{request_id}/respond
func (h *PairingHandler) RespondRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID := chi.URLParam(r, "request_id")

	var body respondRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, apperr.Validation("invalid request body"))
		return
	}

	pairing, err := h.pairingService.RespondRequest(r.Context(), userID, requestID, body.Accept)
	if err != nil {
		respondError(w, err)
		return
	}

	if pairing == nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
		return
	}
	log.Info().Str("pairing_id", pairing.ID).Str("request_id", requestID).Msg("Pairing created")
	respondJSON(w, http.StatusCreated, pairing)
}

// ListPairings handles GET /api/v1/pairings
func (h *PairingHandler) ListPairings(w http.ResponseWriter, r *http.Request) {
	pairings, err := h.pairingService.ListPairings(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"pairings": pairings, "total": len(pairings)})
}
