package handlers

import (
	"encoding/json"
	"net/http"

	"accpartner-backend/internal/apperr"
	"accpartner-backend/internal/middleware"
	"accpartner-backend/internal/models"
	"accpartner-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService    *services.UserService
	pairingService *services.PairingService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, pairingService *services.PairingService) *UserHandler {
	return &UserHandler{userService: userService, pairingService: pairingService}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Timezone string `json:"timezone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register handles POST /api/v1/auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Validation("invalid request body"))
		return
	}

	user, token, err := h.userService.Register(r.Context(), req.Email, req.Password, req.Username, req.Timezone)
	if err != nil {
		respondError(w, err)
		return
	}

	log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	respondJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

// Login handles POST /api/v1/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Validation("invalid request body"))
		return
	}

	user, token, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type deadlineRequest struct {
	Deadline string `json:"deadline"`
}

// UpdateDeadline handles PUT /api/v1/users/me/deadline
func (h *UserHandler) UpdateDeadline(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req deadlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Validation("invalid request body"))
		return
	}

	user, err := h.userService.UpdateDeadline(r.Context(), userID, req.Deadline)
	if err != nil {
		respondError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("deadline", req.Deadline).Msg("Deadline updated")
	respondJSON(w, http.StatusOK, user)
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

// UpdateAvailability handles PUT /api/v1/users/me/availability
func (h *UserHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Validation("invalid request body"))
		return
	}

	if err := h.userService.SetAvailability(r.Context(), userID, req.Available); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"available": req.Available})
}

// AvailableUsers handles GET /api/v1/users/available
func (h *UserHandler) AvailableUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.pairingService.ListAvailableCandidates(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"users": users, "total": len(users)})
}
