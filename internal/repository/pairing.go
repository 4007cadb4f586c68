package repository

import (
	"context"
	"errors"
	"fmt"

	"accpartner-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PairingRepository handles database operations for pairings
type PairingRepository struct {
	db *pgxpool.Pool
}

// NewPairingRepository creates a new pairing repository
func NewPairingRepository(db *pgxpool.Pool) *PairingRepository {
	return &PairingRepository{db: db}
}

// Create creates a new pairing
func (r *PairingRepository) Create(ctx context.Context, pairing *models.Pairing, day string) error {
	query := `
		INSERT INTO pairings (id, user_a_id, user_b_id, day, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		pairing.ID, pairing.UserAID, pairing.UserBID, day, pairing.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pairing: %w", err)
	}
	return nil
}

// GetByID retrieves a pairing by ID
func (r *PairingRepository) GetByID(ctx context.Context, id string) (*models.Pairing, error) {
	query := `
		SELECT id, user_a_id, user_b_id, day, created_at
		FROM pairings
		WHERE id = $1
	`
	var pairing models.Pairing
	err := r.db.QueryRow(ctx, query, id).Scan(
		&pairing.ID, &pairing.UserAID, &pairing.UserBID, &pairing.Day, &pairing.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to get pairing: %w", err)
	}
	return &pairing, nil
}

// ListByUserID retrieves all pairings involving a user. Lookups are
// symmetric: either participant position matches.
func (r *PairingRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Pairing, error) {
	query := `
		SELECT id, user_a_id, user_b_id, day, created_at
		FROM pairings
		WHERE user_a_id = $1 OR user_b_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID)
}

// ListAll retrieves every pairing, used by the settlement sweep
func (r *PairingRepository) ListAll(ctx context.Context) ([]*models.Pairing, error) {
	query := `
		SELECT id, user_a_id, user_b_id, day, created_at
		FROM pairings
		ORDER BY created_at
	`
	return r.list(ctx, query)
}

func (r *PairingRepository) list(ctx context.Context, query string, args ...any) ([]*models.Pairing, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pairings: %w", err)
	}
	defer rows.Close()

	var pairings []*models.Pairing
	for rows.Next() {
		var pairing models.Pairing
		err := rows.Scan(&pairing.ID, &pairing.UserAID, &pairing.UserBID, &pairing.Day, &pairing.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pairing: %w", err)
		}
		pairings = append(pairings, &pairing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pairings: %w", err)
	}
	return pairings, nil
}

// PartnerIDs returns the IDs of everyone currently paired with the user
func (r *PairingRepository) PartnerIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT CASE WHEN user_a_id = $1 THEN user_b_id ELSE user_a_id END
		FROM pairings
		WHERE user_a_id = $1 OR user_b_id = $1
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list partner ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan partner id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partner ids: %w", err)
	}
	return ids, nil
}

// ExistsBetween checks whether two users are already paired with each other
func (r *PairingRepository) ExistsBetween(ctx context.Context, userA, userB string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM pairings
			WHERE (user_a_id = $1 AND user_b_id = $2) OR (user_a_id = $2 AND user_b_id = $1)
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userA, userB).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check pairing existence: %w", err)
	}
	return exists, nil
}

// DeleteBefore removes pairings from completed days, part of the daily sweep
func (r *PairingRepository) DeleteBefore(ctx context.Context, day string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM pairings WHERE day < $1`, day); err != nil {
		return fmt.Errorf("failed to sweep pairings: %w", err)
	}
	return nil
}
