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

// VerificationHandler handles verification HTTP requests
type VerificationHandler struct {
	settlementService *services.SettlementService
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(settlementService *services.SettlementService) *VerificationHandler {
	return &VerificationHandler{settlementService: settlementService}
}

type verifyRequest struct {
	IsCompleted bool `json:"is_completed"`
}

// Verify handles POST /api/v1/pairings/{pairing_id}/verify
func (h *VerificationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	pairingID := chi.URLParam(r, "pairing_id")

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Validation("invalid request body"))
		return
	}

	verification, err := h.settlementService.Verify(r.Context(), pairingID, userID, req.IsCompleted)
	if err != nil {
		respondError(w, err)
		return
	}

	log.Info().Str("pairing_id", pairingID).Str("verifier_id", userID).
		Bool("is_completed", req.IsCompleted).Msg("Task verified")
	respondJSON(w, http.StatusCreated, verification)
}
