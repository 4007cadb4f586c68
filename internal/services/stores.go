package services

import (
	"context"
	"io"
	"time"

	"accpartner-backend/internal/models"
)

// Store interfaces consumed by the services. The pgx repositories in
// internal/repository are the production implementations; tests substitute
// in-memory fakes.

// UserStore persists users and their profile fields.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateDeadline(ctx context.Context, userID, deadline string, updatedAt time.Time) error
	UpdateAvailability(ctx context.Context, userID string, available bool) error
	AddRating(ctx context.Context, userID string, delta int) error
	IncrementTotalPairs(ctx context.Context, userIDs ...string) error
	ListAvailableByTimezone(ctx context.Context, timezone, excludeUserID string) ([]*models.User, error)
}

// RequestStore persists pairing requests.
type RequestStore interface {
	Create(ctx context.Context, req *models.PairingRequest, day string) error
	GetByID(ctx context.Context, id string) (*models.PairingRequest, error)
	HasOpenBetween(ctx context.Context, userA, userB string) (bool, error)
	PendingCounterparts(ctx context.Context, userID string) ([]string, error)
	ListPendingInvolving(ctx context.Context, userID string) ([]*models.PairingRequest, error)
	Resolve(ctx context.Context, id, status string) (bool, error)
}

// PairingStore persists pairings.
type PairingStore interface {
	Create(ctx context.Context, pairing *models.Pairing, day string) error
	GetByID(ctx context.Context, id string) (*models.Pairing, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.Pairing, error)
	ListAll(ctx context.Context) ([]*models.Pairing, error)
	PartnerIDs(ctx context.Context, userID string) ([]string, error)
	ExistsBetween(ctx context.Context, userA, userB string) (bool, error)
}

// TaskStore persists planned tasks and completion submissions.
type TaskStore interface {
	CreatePlanned(ctx context.Context, task *models.PlannedTask, day string) error
	GetPlannedForDay(ctx context.Context, pairingID, userID, day string) (*models.PlannedTask, error)
	CreateCompleted(ctx context.Context, task *models.CompletedTask, day string) error
	GetCompletedForDay(ctx context.Context, pairingID, userID, day string) (*models.CompletedTask, error)
	MarkVerified(ctx context.Context, taskID, result string, verifiedAt time.Time) (bool, error)
	ClearVerified(ctx context.Context, taskID string) error
}

// VerificationStore persists verdicts and settlement markers.
type VerificationStore interface {
	Create(ctx context.Context, v *models.Verification, day string) error
	ExistsForDay(ctx context.Context, pairingID, verifierID, day string) (bool, error)
	CountForDay(ctx context.Context, pairingID, day string) (int, error)
	TrySettle(ctx context.Context, s *models.Settlement) (bool, error)
	IsSettled(ctx context.Context, pairingID, day string) (bool, error)
}

// BlobStore uploads completion attachments and returns a retrievable URL.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Notifier pushes user-visible notifications. Delivery is best-effort: an
// offline user simply misses the push.
type Notifier interface {
	Notify(userID string, msg WSMessage)
}

// noopNotifier is used when no hub is wired, mainly in tests.
type noopNotifier struct{}

func (noopNotifier) Notify(string, WSMessage) {}
