package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"accpartner-backend/internal/apperr"
	"accpartner-backend/internal/models"
	"accpartner-backend/internal/repository"
	"accpartner-backend/internal/validate"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const jwtExpDays = 30

// UserService handles registration, sessions and profile mutations.
type UserService struct {
	users     UserStore
	jwtSecret string
	now       Clock
}

// NewUserService creates a new user service
func NewUserService(users UserStore, jwtSecret string, now Clock) *UserService {
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, jwtSecret: jwtSecret, now: now}
}

// Register creates a user with a bcrypt password hash and returns the user
// with a session token. New users start available for pairing.
func (s *UserService) Register(ctx context.Context, email, password, username, timezone string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, "", apperr.Validation("invalid email address")
	}
	if len(password) < 8 {
		return nil, "", apperr.Validation("password must be at least 8 characters")
	}
	if err := validate.Username(username); err != nil {
		return nil, "", err
	}
	if err := validate.Timezone(timezone); err != nil {
		return nil, "", err
	}

	if taken, err := s.users.EmailExists(ctx, email); err != nil {
		return nil, "", apperr.Upstream("failed to check email", err)
	} else if taken {
		return nil, "", apperr.ErrEmailTaken
	}
	if taken, err := s.users.UsernameExists(ctx, username); err != nil {
		return nil, "", apperr.Upstream("failed to check username", err)
	} else if taken {
		return nil, "", apperr.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Timezone:     timezone,
		Available:    true,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", apperr.Upstream("failed to create user", err)
	}

	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks credentials and returns the user with a fresh session token.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, "", apperr.ErrInvalidCredentials
		}
		return nil, "", apperr.Upstream("failed to get user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", apperr.ErrInvalidCredentials
	}
	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     s.now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":     s.now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	// Claims are validated against the service clock, the same one that
	// minted the token.
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", fmt.Errorf("user_id not found in token")
	}
	return userID, nil
}

// Get retrieves a user profile
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Upstream("failed to get user", err)
	}
	return user, nil
}

// UpdateDeadline changes the user's daily deadline. Allowed at most once per
// calendar day in the user's timezone.
func (s *UserService) UpdateDeadline(ctx context.Context, userID, newDeadline string) (*models.User, error) {
	if err := validate.Deadline(newDeadline); err != nil {
		return nil, err
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return nil, apperr.Validation("unknown timezone on profile")
	}
	now := s.now()
	if user.LastDeadlineUpdate != nil && SameCalendarDay(*user.LastDeadlineUpdate, now, loc) {
		return nil, apperr.ErrAlreadyUpdatedToday
	}
	if err := s.users.UpdateDeadline(ctx, userID, newDeadline, now); err != nil {
		return nil, apperr.Upstream("failed to update deadline", err)
	}
	user.Deadline = &newDeadline
	user.LastDeadlineUpdate = &now
	return user, nil
}

// SetAvailability flips the user's pairing availability flag.
func (s *UserService) SetAvailability(ctx context.Context, userID string, available bool) error {
	if err := s.users.UpdateAvailability(ctx, userID, available); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return apperr.ErrUserNotFound
		}
		return apperr.Upstream("failed to update availability", err)
	}
	return nil
}

// PhaseFor evaluates the deadline phase for a user at the current instant.
// Users without a deadline cannot enter any window.
func (s *UserService) PhaseFor(user *models.User) (Phase, error) {
	if user.Deadline == nil {
		return PhaseClosed, apperr.ErrNoDeadlineSet
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return PhaseClosed, apperr.Validation("unknown timezone on profile")
	}
	phase, err := EvaluatePhase(*user.Deadline, loc, s.now())
	if err != nil {
		return PhaseClosed, apperr.Validation("malformed deadline on profile")
	}
	return phase, nil
}

// DayFor returns the current day key in the user's timezone.
func (s *UserService) DayFor(user *models.User) string {
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return DayKey(s.now(), loc)
}
