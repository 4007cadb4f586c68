package repository

import (
	"context"
	"fmt"

	"accpartner-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// VerificationRepository handles database operations for verification verdicts
// and settlement markers
type VerificationRepository struct {
	db *pgxpool.Pool
}

// NewVerificationRepository creates a new verification repository
func NewVerificationRepository(db *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Create records a verifier's verdict for the given day
func (r *VerificationRepository) Create(ctx context.Context, v *models.Verification, day string) error {
	query := `
		INSERT INTO verifications (id, pairing_id, task_id, verifier_id, verified_user_id, is_completed, day, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		v.ID, v.PairingID, v.TaskID, v.VerifierID, v.VerifiedUserID, v.IsCompleted, day, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create verification: %w", err)
	}
	return nil
}

// ExistsForDay checks whether the verifier already verified this pairing today
func (r *VerificationRepository) ExistsForDay(ctx context.Context, pairingID, verifierID, day string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM verifications
			WHERE pairing_id = $1 AND verifier_id = $2 AND day = $3
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, pairingID, verifierID, day).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check verification existence: %w", err)
	}
	return exists, nil
}

// CountForDay returns how many verdicts exist for a pairing on a day
func (r *VerificationRepository) CountForDay(ctx context.Context, pairingID, day string) (int, error) {
	query := `SELECT COUNT(*) FROM verifications WHERE pairing_id = $1 AND day = $2`
	var count int
	if err := r.db.QueryRow(ctx, query, pairingID, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count verifications: %w", err)
	}
	return count, nil
}

// TrySettle inserts the settlement marker for (pairing, day). The unique
// constraint makes this the single point of idempotency for rating deltas:
// only the caller that wins the insert applies them.
func (r *VerificationRepository) TrySettle(ctx context.Context, s *models.Settlement) (bool, error) {
	query := `
		INSERT INTO settlements (id, pairing_id, day, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (pairing_id, day) DO NOTHING
	`
	res, err := r.db.Exec(ctx, query, s.ID, s.PairingID, s.Day, s.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert settlement: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

// IsSettled checks whether a pairing's day has already been settled
func (r *VerificationRepository) IsSettled(ctx context.Context, pairingID, day string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM settlements WHERE pairing_id = $1 AND day = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, pairingID, day).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check settlement: %w", err)
	}
	return exists, nil
}

// DeleteBefore removes verdicts and settlement markers from completed days
func (r *VerificationRepository) DeleteBefore(ctx context.Context, day string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM verifications WHERE day < $1`, day); err != nil {
		return fmt.Errorf("failed to sweep verifications: %w", err)
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM settlements WHERE day < $1`, day); err != nil {
		return fmt.Errorf("failed to sweep settlements: %w", err)
	}
	return nil
}
