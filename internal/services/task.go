package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"accpartner-backend/internal/apperr"
	"accpartner-backend/internal/models"
	"accpartner-backend/internal/repository"
	"accpartner-backend/internal/validate"

	"github.com/google/uuid"
)

// TaskService handles task planning and completion uploads.
type TaskService struct {
	users    *UserService
	pairings *PairingService
	tasks    TaskStore
	blobs    BlobStore
	notifier Notifier
	now      Clock
}

// NewTaskService creates a new task service
func NewTaskService(users *UserService, pairings *PairingService, tasks TaskStore, blobs BlobStore, notifier Notifier, now Clock) *TaskService {
	if now == nil {
		now = time.Now
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &TaskService{
		users:    users,
		pairings: pairings,
		tasks:    tasks,
		blobs:    blobs,
		notifier: notifier,
		now:      now,
	}
}

// Upload describes an optional completion attachment.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PlanTask declares the caller's task for the day. Only legal before the
// caller's own deadline, once per pairing per day.
func (s *TaskService) PlanTask(ctx context.Context, pairingID, userID, title, description string) (*models.PlannedTask, error) {
	pairing, err := s.pairings.GetPairingFor(ctx, pairingID, userID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	title = validate.Sanitize(title)
	description = validate.Sanitize(description)
	if err := validate.TaskTitle(title); err != nil {
		return nil, err
	}
	if err := validate.TaskDescription(description); err != nil {
		return nil, err
	}

	phase, err := s.users.PhaseFor(user)
	if err != nil {
		return nil, err
	}
	if phase != PhasePlanning {
		return nil, apperr.ErrOutsidePlanningWindow
	}

	day := s.users.DayFor(user)
	if _, err := s.tasks.GetPlannedForDay(ctx, pairingID, userID, day); err == nil {
		return nil, apperr.ErrAlreadyPlannedToday
	} else if !errors.Is(err, repository.ErrNoRows) {
		return nil, apperr.Upstream("failed to check planned task", err)
	}

	task := &models.PlannedTask{
		ID:          uuid.New().String(),
		PairingID:   pairingID,
		UserID:      userID,
		Title:       title,
		Description: description,
		CreatedAt:   s.now(),
	}
	if err := s.tasks.CreatePlanned(ctx, task, day); err != nil {
		return nil, apperr.Upstream("failed to create planned task", err)
	}

	s.notifier.Notify(pairing.PartnerOf(userID), WSMessage{
		Type: MsgPartnerPlanned,
		Data: map[string]interface{}{"pairing_id": pairingID, "title": title},
	})
	return task, nil
}

// UploadCompletion records the caller's proof of completion, with an optional
// attachment pushed to the blob store. Requires a same-day plan, must happen
// before the caller's deadline, and is rejected on a second attempt rather
// than silently duplicated.
func (s *TaskService) UploadCompletion(ctx context.Context, pairingID, userID, title, description string, file *Upload) (*models.CompletedTask, error) {
	pairing, err := s.pairings.GetPairingFor(ctx, pairingID, userID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	title = validate.Sanitize(title)
	description = validate.Sanitize(description)
	if err := validate.TaskTitle(title); err != nil {
		return nil, err
	}
	if err := validate.TaskDescription(description); err != nil {
		return nil, err
	}

	day := s.users.DayFor(user)
	if _, err := s.tasks.GetPlannedForDay(ctx, pairingID, userID, day); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, apperr.ErrNoPlanExists
		}
		return nil, apperr.Upstream("failed to check planned task", err)
	}

	phase, err := s.users.PhaseFor(user)
	if err != nil {
		return nil, err
	}
	if phase != PhasePlanning {
		return nil, apperr.ErrOutsidePlanningWindow
	}

	if _, err := s.tasks.GetCompletedForDay(ctx, pairingID, userID, day); err == nil {
		return nil, apperr.ErrAlreadyUploadedToday
	} else if !errors.Is(err, repository.ErrNoRows) {
		return nil, apperr.Upstream("failed to check completed task", err)
	}

	taskID := uuid.New().String()
	var fileURL *string
	if file != nil {
		if err := validate.File(file.Size, file.ContentType); err != nil {
			return nil, err
		}
		key := fmt.Sprintf("%s/%s%s", pairingID, taskID, filepath.Ext(file.Filename))
		url, err := s.blobs.Upload(ctx, key, file.ContentType, io.LimitReader(file.Body, validate.MaxFileSize))
		if err != nil {
			return nil, apperr.Upstream("failed to upload attachment", err)
		}
		fileURL = &url
	}

	task := &models.CompletedTask{
		ID:          taskID,
		PairingID:   pairingID,
		UserID:      userID,
		Title:       title,
		Description: description,
		FileURL:     fileURL,
		CreatedAt:   s.now(),
	}
	if err := s.tasks.CreateCompleted(ctx, task, day); err != nil {
		return nil, apperr.Upstream("failed to create completed task", err)
	}

	s.notifier.Notify(pairing.PartnerOf(userID), WSMessage{
		Type: MsgPartnerSubmitted,
		Data: map[string]interface{}{"pairing_id": pairingID, "title": title},
	})
	return task, nil
}

// PairingStatus is the day's state of a pairing from one member's viewpoint.
type PairingStatus struct {
	PairingID         string                `json:"pairing_id"`
	Phase             string                `json:"phase"`
	Settled           bool                  `json:"settled"`
	OwnPlan           *models.PlannedTask   `json:"own_plan"`
	OwnSubmission     *models.CompletedTask `json:"own_submission"`
	PartnerPlan       *models.PlannedTask   `json:"partner_plan"`
	PartnerSubmission *models.CompletedTask `json:"partner_submission"`
}

// Status assembles the current day's plans and submissions for both sides of
// a pairing, evaluated against the caller's own deadline.
func (s *TaskService) Status(ctx context.Context, pairingID, userID string, verifications VerificationStore) (*PairingStatus, error) {
	pairing, err := s.pairings.GetPairingFor(ctx, pairingID, userID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := &PairingStatus{PairingID: pairingID, Phase: PhaseClosed.String()}
	if phase, err := s.users.PhaseFor(user); err == nil {
		status.Phase = phase.String()
	}

	day := s.users.DayFor(user)
	partnerID := pairing.PartnerOf(userID)
	if task, err := s.tasks.GetPlannedForDay(ctx, pairingID, userID, day); err == nil {
		status.OwnPlan = task
	}
	if task, err := s.tasks.GetCompletedForDay(ctx, pairingID, userID, day); err == nil {
		status.OwnSubmission = task
	}
	if task, err := s.tasks.GetPlannedForDay(ctx, pairingID, partnerID, day); err == nil {
		status.PartnerPlan = task
	}
	if task, err := s.tasks.GetCompletedForDay(ctx, pairingID, partnerID, day); err == nil {
		status.PartnerSubmission = task
	}
	if settled, err := verifications.IsSettled(ctx, pairingID, day); err == nil {
		status.Settled = settled
	}
	return status, nil
}
