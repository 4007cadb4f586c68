package models

import "time"

// Request status values.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// Verification result values stored on a completed task.
const (
	ResultCompleted    = "completed"
	ResultNotCompleted = "not_completed"
)

// User represents a registered user. Rating is a running signed score that
// survives the daily reset; everything pairing-scoped does not.
type User struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	Timezone           string     `json:"timezone"`
	Deadline           *string    `json:"deadline"` // "HH:MM", nil until the user sets one
	LastDeadlineUpdate *time.Time `json:"last_deadline_update,omitempty"`
	Available          bool       `json:"available"`
	Rating             int        `json:"rating"`
	TotalPairs         int        `json:"total_pairs"`
	CreatedAt          time.Time  `json:"created_at"`
}

// PairingRequest is a pending invitation from one user to another.
type PairingRequest struct {
	ID        string    `json:"id"`
	FromUser  string    `json:"from_user"`
	ToUser    string    `json:"to_user"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Pairing joins two users for one day of mutual accountability. Day is the
// calendar day ("2006-01-02") the pairing was formed for; settlement is
// evaluated against that day, not the current one.
type Pairing struct {
	ID        string    `json:"id"`
	UserAID   string    `json:"user_a_id"`
	UserBID   string    `json:"user_b_id"`
	Day       string    `json:"day"`
	CreatedAt time.Time `json:"created_at"`
}

// PartnerOf returns the other participant of the pairing, or "" if userID is
// not a member.
func (p *Pairing) PartnerOf(userID string) string {
	switch userID {
	case p.UserAID:
		return p.UserBID
	case p.UserBID:
		return p.UserAID
	}
	return ""
}

// Has reports whether userID is one of the pairing's participants.
func (p *Pairing) Has(userID string) bool {
	return userID == p.UserAID || userID == p.UserBID
}

// PlannedTask is a user's declared task for the day, one per user per pairing.
type PlannedTask struct {
	ID          string    `json:"id"`
	PairingID   string    `json:"pairing_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// CompletedTask is a user's proof-of-completion submission, optionally with
// an uploaded attachment. Immutable once verified.
type CompletedTask struct {
	ID                 string     `json:"id"`
	PairingID          string     `json:"pairing_id"`
	UserID             string     `json:"user_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	FileURL            *string    `json:"file_url,omitempty"`
	Verified           bool       `json:"verified"`
	VerificationResult *string    `json:"verification_result"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Verification records one partner's verdict on the other's submission.
// Exactly one per (pairing, verifier) per day.
type Verification struct {
	ID             string    `json:"id"`
	PairingID      string    `json:"pairing_id"`
	TaskID         string    `json:"task_id"`
	VerifierID     string    `json:"verifier_id"`
	VerifiedUserID string    `json:"verified_user_id"`
	IsCompleted    bool      `json:"is_completed"`
	CreatedAt      time.Time `json:"created_at"`
}

// Settlement marks a pairing's day as finalized. Its unique (pairing_id, day)
// constraint is what makes rating deltas apply exactly once.
type Settlement struct {
	ID        string    `json:"id"`
	PairingID string    `json:"pairing_id"`
	Day       string    `json:"day"` // "2006-01-02"
	CreatedAt time.Time `json:"created_at"`
}
