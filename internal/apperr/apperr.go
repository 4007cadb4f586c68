// Package apperr defines the error taxonomy shared by services and mapped to
// HTTP status codes at the handler boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindValidation Kind = iota
	KindWindowViolation
	KindDuplicate
	KindNotFound
	KindPermissionDenied
	KindRateLimited
	KindUpstream
)

// Error carries a kind and a user-facing message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two apperr errors by kind and message, so sentinel errors below
// work with errors.Is across wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

func newErr(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// Sentinels for the business-rule failures named by the state machine.
var (
	ErrAlreadyUpdatedToday    = newErr(KindDuplicate, "deadline can only be changed once per day")
	ErrAlreadyPlannedToday    = newErr(KindDuplicate, "task already planned for today")
	ErrAlreadyUploadedToday   = newErr(KindDuplicate, "completion already uploaded for today")
	ErrAlreadyVerified        = newErr(KindDuplicate, "already verified this pairing today")
	ErrRequestAlreadyResolved = newErr(KindDuplicate, "pairing request already resolved")
	ErrDuplicateRequest       = newErr(KindDuplicate, "a pending request already exists between these users")

	ErrOutsidePlanningWindow   = newErr(KindWindowViolation, "outside the planning window")
	ErrNotInVerificationWindow = newErr(KindWindowViolation, "outside the verification window")
	ErrNoDeadlineSet           = newErr(KindWindowViolation, "no deadline set")

	ErrNoPlanExists    = newErr(KindNotFound, "no planned task exists for today")
	ErrNothingToVerify = newErr(KindNotFound, "partner has not submitted a completed task today")
	ErrUserNotFound    = newErr(KindNotFound, "user not found")
	ErrPairingNotFound = newErr(KindNotFound, "pairing not found")
	ErrRequestNotFound = newErr(KindNotFound, "pairing request not found")

	ErrNotAMember         = newErr(KindPermissionDenied, "not a member of this pairing")
	ErrInvalidCredentials = newErr(KindPermissionDenied, "invalid credentials")

	ErrFileTooLarge        = newErr(KindValidation, "file exceeds the 1 MiB limit")
	ErrUnsupportedFileType = newErr(KindValidation, "file type not supported")
	ErrEmailTaken          = newErr(KindDuplicate, "email already registered")
	ErrUsernameTaken       = newErr(KindDuplicate, "username already taken")

	ErrRateLimited = newErr(KindRateLimited, "too many requests")
)

// Validation builds a KindValidation error with a specific message.
func Validation(msg string) *Error { return newErr(KindValidation, msg) }

// Upstream wraps a failed store/blob call.
func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

// KindOf extracts the kind of err, defaulting to KindUpstream for errors that
// did not originate in this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}
