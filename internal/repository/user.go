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

// ErrNoRows is returned by Get methods when the record does not exist.
// Services translate it into their own not-found errors.
var ErrNoRows = pgx.ErrNoRows

const userColumns = `id, username, email, password_hash, timezone, deadline,
	last_deadline_update, available, rating, total_pairs, created_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Timezone, &user.Deadline, &user.LastDeadlineUpdate,
		&user.Available, &user.Rating, &user.TotalPairs, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, timezone, available, rating, total_pairs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.Timezone, user.Available, user.Rating, user.TotalPairs, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// EmailExists checks if an email is already registered
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// UsernameExists checks if a username is already taken
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}
	return exists, nil
}

// UpdateDeadline sets a new deadline and stamps last_deadline_update
func (r *UserRepository) UpdateDeadline(ctx context.Context, userID, deadline string, updatedAt time.Time) error {
	query := `UPDATE users SET deadline = $1, last_deadline_update = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, deadline, updatedAt, userID)
	if err != nil {
		return fmt.Errorf("failed to update deadline: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// UpdateAvailability flips the availability flag for a user
func (r *UserRepository) UpdateAvailability(ctx context.Context, userID string, available bool) error {
	query := `UPDATE users SET available = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, available, userID)
	if err != nil {
		return fmt.Errorf("failed to update availability: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// AddRating applies a signed rating delta to a user
func (r *UserRepository) AddRating(ctx context.Context, userID string, delta int) error {
	query := `UPDATE users SET rating = rating + $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// IncrementTotalPairs bumps the lifetime pairing counter for both users
func (r *UserRepository) IncrementTotalPairs(ctx context.Context, userIDs ...string) error {
	query := `UPDATE users SET total_pairs = total_pairs + 1 WHERE id = ANY($1)`
	if _, err := r.db.Exec(ctx, query, userIDs); err != nil {
		return fmt.Errorf("failed to increment total pairs: %w", err)
	}
	return nil
}

// ListAvailableByTimezone retrieves available users in a timezone, excluding
// the given user, ordered by username for stable results
func (r *UserRepository) ListAvailableByTimezone(ctx context.Context, timezone, excludeUserID string) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE available = TRUE AND timezone = $1 AND id <> $2
		ORDER BY username
	`
	rows, err := r.db.Query(ctx, query, timezone, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list available users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}
