// Package validate holds input validation rules for user-supplied fields.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"accpartner-backend/internal/apperr"
)

// MaxFileSize is the upload size limit for completion attachments.
const MaxFileSize = 1 << 20 // 1 MiB

// MaxDeadline is the latest allowed deadline, so the 30-minute verification
// window never crosses midnight.
const MaxDeadline = "23:30"

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	timezoneRe = regexp.MustCompile(`^[A-Za-z]+/[A-Za-z_]+$`)
	deadlineRe = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
	titleRe    = regexp.MustCompile(`^[a-zA-Z0-9\s.,!?-]{3,100}$`)
)

// allowedMIMETypes for completion attachments: documents, images, archives,
// plain text and CSV.
var allowedMIMETypes = map[string]bool{
	"application/pdf":    true,
	"image/jpeg":         true,
	"image/png":          true,
	"text/plain":         true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.ms-powerpoint": true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/csv":                     true,
	"application/zip":              true,
	"application/x-rar-compressed": true,
}

// Username checks the 3-20 character alphanumeric/underscore rule.
func Username(username string) error {
	if !usernameRe.MatchString(username) {
		return apperr.Validation("username must be 3-20 characters, letters, digits or underscores")
	}
	return nil
}

// Timezone checks the Region/City shape and that the zone actually resolves.
func Timezone(tz string) error {
	if !timezoneRe.MatchString(tz) {
		return apperr.Validation("timezone must be in Region/City format")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return apperr.Validation("unknown timezone")
	}
	return nil
}

// Deadline checks the 24-hour HH:MM format and the 23:30 ceiling.
func Deadline(deadline string) error {
	if !deadlineRe.MatchString(deadline) {
		return apperr.Validation("deadline must be a valid time in 24-hour format (HH:MM)")
	}
	hhmm, err := time.Parse("15:04", normalizeHHMM(deadline))
	if err != nil {
		return apperr.Validation("deadline must be a valid time in 24-hour format (HH:MM)")
	}
	max, _ := time.Parse("15:04", MaxDeadline)
	if hhmm.After(max) {
		return apperr.Validation(fmt.Sprintf("deadline must be %s or earlier", MaxDeadline))
	}
	return nil
}

// TaskTitle checks the 3-100 character restricted charset rule.
func TaskTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apperr.Validation("title is required")
	}
	if !titleRe.MatchString(title) {
		return apperr.Validation("title must be 3-100 characters without special characters")
	}
	return nil
}

// TaskDescription requires a non-empty description of at most 500 characters.
func TaskDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return apperr.Validation("description is required")
	}
	if len(desc) > 500 {
		return apperr.Validation("description must be at most 500 characters")
	}
	return nil
}

// File checks the size limit and MIME allow-list for an attachment.
func File(size int64, contentType string) error {
	if size > MaxFileSize {
		return apperr.ErrFileTooLarge
	}
	mime := contentType
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	if !allowedMIMETypes[strings.TrimSpace(mime)] {
		return apperr.ErrUnsupportedFileType
	}
	return nil
}

// Sanitize strips angle brackets from free-text input.
func Sanitize(input string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(input)
}

// normalizeHHMM pads a single-digit hour so time.Parse accepts it.
func normalizeHHMM(s string) string {
	if len(s) == 4 {
		return "0" + s
	}
	return s
}
