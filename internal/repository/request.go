package repository

import (
	"context"
	"errors"
	"fmt"

	"accpartner-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RequestRepository handles database operations for pairing requests
type RequestRepository struct {
	db *pgxpool.Pool
}

// NewRequestRepository creates a new pairing request repository
func NewRequestRepository(db *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create creates a new pairing request
func (r *RequestRepository) Create(ctx context.Context, req *models.PairingRequest, day string) error {
	query := `
		INSERT INTO pairing_requests (id, from_user, to_user, status, day, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, req.ID, req.FromUser, req.ToUser, req.Status, day, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pairing request: %w", err)
	}
	return nil
}

// GetByID retrieves a pairing request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.PairingRequest, error) {
	query := `
		SELECT id, from_user, to_user, status, created_at
		FROM pairing_requests
		WHERE id = $1
	`
	var req models.PairingRequest
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.FromUser, &req.ToUser, &req.Status, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to get pairing request: %w", err)
	}
	return &req, nil
}

// HasOpenBetween checks whether a pending request exists between two users in
// either direction
func (r *RequestRepository) HasOpenBetween(ctx context.Context, userA, userB string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM pairing_requests
			WHERE status = 'pending'
			  AND ((from_user = $1 AND to_user = $2) OR (from_user = $2 AND to_user = $1))
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userA, userB).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check open request: %w", err)
	}
	return exists, nil
}

// PendingCounterparts returns the IDs of all users with a pending request to
// or from the given user
func (r *RequestRepository) PendingCounterparts(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT CASE WHEN from_user = $1 THEN to_user ELSE from_user END
		FROM pairing_requests
		WHERE status = 'pending' AND (from_user = $1 OR to_user = $1)
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending counterparts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan counterpart id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counterparts: %w", err)
	}
	return ids, nil
}

// ListPendingInvolving returns pending requests where the user is sender or
// recipient, newest first
func (r *RequestRepository) ListPendingInvolving(ctx context.Context, userID string) ([]*models.PairingRequest, error) {
	query := `
		SELECT id, from_user, to_user, status, created_at
		FROM pairing_requests
		WHERE status = 'pending' AND (from_user = $1 OR to_user = $1)
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	defer rows.Close()

	var reqs []*models.PairingRequest
	for rows.Next() {
		var req models.PairingRequest
		err := rows.Scan(&req.ID, &req.FromUser, &req.ToUser, &req.Status, &req.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pairing request: %w", err)
		}
		reqs = append(reqs, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pairing requests: %w", err)
	}
	return reqs, nil
}

// Resolve transitions a pending request to accepted or rejected. Returns
// false when the request was already resolved, which callers treat as a
// second respond call.
func (r *RequestRepository) Resolve(ctx context.Context, id, status string) (bool, error) {
	query := `UPDATE pairing_requests SET status = $1 WHERE id = $2 AND status = 'pending'`
	result, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return false, fmt.Errorf("failed to resolve pairing request: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// DeleteBefore removes requests from completed days, part of the daily sweep
func (r *RequestRepository) DeleteBefore(ctx context.Context, day string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM pairing_requests WHERE day < $1`, day); err != nil {
		return fmt.Errorf("failed to sweep pairing requests: %w", err)
	}
	return nil
}
