package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"accpartner-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepository handles database operations for planned and completed tasks
type TaskRepository struct {
	db *pgxpool.Pool
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreatePlanned creates a planned task for the given day
func (r *TaskRepository) CreatePlanned(ctx context.Context, task *models.PlannedTask, day string) error {
	query := `
		INSERT INTO planned_tasks (id, pairing_id, user_id, title, description, day, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		task.ID, task.PairingID, task.UserID, task.Title, task.Description, day, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create planned task: %w", err)
	}
	return nil
}

// GetPlannedForDay retrieves a user's planned task in a pairing for a day
func (r *TaskRepository) GetPlannedForDay(ctx context.Context, pairingID, userID, day string) (*models.PlannedTask, error) {
	query := `
		SELECT id, pairing_id, user_id, title, description, created_at
		FROM planned_tasks
		WHERE pairing_id = $1 AND user_id = $2 AND day = $3
	`
	var task models.PlannedTask
	err := r.db.QueryRow(ctx, query, pairingID, userID, day).Scan(
		&task.ID, &task.PairingID, &task.UserID, &task.Title, &task.Description, &task.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to get planned task: %w", err)
	}
	return &task, nil
}

// CreateCompleted creates a completed-task submission for the given day
func (r *TaskRepository) CreateCompleted(ctx context.Context, task *models.CompletedTask, day string) error {
	query := `
		INSERT INTO completed_tasks (id, pairing_id, user_id, title, description, file_url, verified, day, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		task.ID, task.PairingID, task.UserID, task.Title, task.Description,
		task.FileURL, task.Verified, day, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create completed task: %w", err)
	}
	return nil
}

// GetCompletedForDay retrieves a user's submission in a pairing for a day
func (r *TaskRepository) GetCompletedForDay(ctx context.Context, pairingID, userID, day string) (*models.CompletedTask, error) {
	query := `
		SELECT id, pairing_id, user_id, title, description, file_url,
		       verified, verification_result, verified_at, created_at
		FROM completed_tasks
		WHERE pairing_id = $1 AND user_id = $2 AND day = $3
	`
	var task models.CompletedTask
	err := r.db.QueryRow(ctx, query, pairingID, userID, day).Scan(
		&task.ID, &task.PairingID, &task.UserID, &task.Title, &task.Description,
		&task.FileURL, &task.Verified, &task.VerificationResult, &task.VerifiedAt, &task.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to get completed task: %w", err)
	}
	return &task, nil
}

// MarkVerified records a verdict on a submission. The status = FALSE guard
// keeps verified tasks immutable; callers get false back when the task was
// already verified.
func (r *TaskRepository) MarkVerified(ctx context.Context, taskID, result string, verifiedAt time.Time) (bool, error) {
	query := `
		UPDATE completed_tasks
		SET verified = TRUE, verification_result = $1, verified_at = $2
		WHERE id = $3 AND verified = FALSE
	`
	res, err := r.db.Exec(ctx, query, result, verifiedAt, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to mark task verified: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

// ClearVerified rolls a verdict back, used when the verification ledger write
// fails after the task was already marked.
func (r *TaskRepository) ClearVerified(ctx context.Context, taskID string) error {
	query := `
		UPDATE completed_tasks
		SET verified = FALSE, verification_result = NULL, verified_at = NULL
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, taskID); err != nil {
		return fmt.Errorf("failed to clear task verification: %w", err)
	}
	return nil
}

// DeleteBefore removes tasks from completed days, part of the daily sweep
func (r *TaskRepository) DeleteBefore(ctx context.Context, day string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM completed_tasks WHERE day < $1`, day); err != nil {
		return fmt.Errorf("failed to sweep completed tasks: %w", err)
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM planned_tasks WHERE day < $1`, day); err != nil {
		return fmt.Errorf("failed to sweep planned tasks: %w", err)
	}
	return nil
}
