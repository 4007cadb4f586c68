package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"accpartner-backend/internal/apperr"
	"accpartner-backend/internal/middleware"
	"accpartner-backend/internal/services"
	"accpartner-backend/internal/validate"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// multipartMemoryLimit bounds in-memory parsing of completion uploads; the
// attachment limit itself is validate.MaxFileSize.
const multipartMemoryLimit = 2 << 20

// TaskHandler handles task planning and completion HTTP requests
type TaskHandler struct {
	taskService       *services.TaskService
	verificationStore services.VerificationStore
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, verificationStore services.VerificationStore) *TaskHandler {
	return &TaskHandler{taskService: taskService, verificationStore: verificationStore}
}

type planRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PlanTask handles POST /api/v1/pairings/{pairing_id}/plan
func (h *TaskHandler) PlanTask(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	pairingID := chi.URLParam(r, "pairing_id")

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Validation("invalid request body"))
		return
	}

	task, err := h.taskService.PlanTask(r.Context(), pairingID, userID, req.Title, req.Description)
	if err != nil {
		respondError(w, err)
		return
	}

	log.Info().Str("task_id", task.ID).Str("pairing_id", pairingID).Str("user_id", userID).
		Msg("Task planned")
	respondJSON(w, http.StatusCreated, task)
}

// UploadCompletion handles POST /api/v1/pairings/{pairing_id}/completion.
// Expects multipart form fields title, description and an optional file part.
func (h *TaskHandler) UploadCompletion(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	pairingID := chi.URLParam(r, "pairing_id")

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		respondError(w, apperr.Validation("invalid multipart form"))
		return
	}
	title := r.FormValue("title")
	description := r.FormValue("description")

	var upload *services.Upload
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		if header.Size > validate.MaxFileSize {
			respondError(w, apperr.ErrFileTooLarge)
			return
		}
		upload = &services.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	case errors.Is(err, http.ErrMissingFile):
		// Attachment is optional.
	default:
		respondError(w, apperr.Validation("invalid file upload"))
		return
	}

	task, err := h.taskService.UploadCompletion(r.Context(), pairingID, userID, title, description, upload)
	if err != nil {
		respondError(w, err)
		return
	}

	log.Info().Str("task_id", task.ID).Str("pairing_id", pairingID).Str("user_id", userID).
		Bool("has_file", upload != nil).Msg("Completion uploaded")
	respondJSON(w, http.StatusCreated, task)
}

// Status handles GET /api/v1/pairings/{pairing_id}/status
func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	pairingID := chi.URLParam(r, "pairing_id")

	status, err := h.taskService.Status(r.Context(), pairingID, userID, h.verificationStore)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}
