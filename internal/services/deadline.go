package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Phase is the position of "now" relative to a user's daily deadline.
type Phase int

const (
	// PhasePlanning: before the deadline, planning and uploading are open.
	PhasePlanning Phase = iota
	// PhaseVerifying: inside the post-deadline verification window.
	PhaseVerifying
	// PhaseClosed: past the verification window, the day is read-only.
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhasePlanning:
		return "planning"
	case PhaseVerifying:
		return "verifying"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

// VerificationWindow is how long after the deadline a partner may verify.
const VerificationWindow = 30 * time.Minute

// Clock supplies the current instant. Injected so window logic is testable.
type Clock func() time.Time

// EvaluatePhase computes the deadline phase for a "HH:MM" deadline against
// today's date in loc. Phases are always evaluated in the user's stored
// timezone, never the server's.
func EvaluatePhase(deadline string, loc *time.Location, now time.Time) (Phase, error) {
	at, err := DeadlineToday(deadline, loc, now)
	if err != nil {
		return PhaseClosed, err
	}
	local := now.In(loc)
	switch {
	case local.Before(at):
		return PhasePlanning, nil
	case !local.After(at.Add(VerificationWindow)):
		return PhaseVerifying, nil
	default:
		return PhaseClosed, nil
	}
}

// DeadlineToday resolves a "HH:MM" deadline to today's instant in loc.
func DeadlineToday(deadline string, loc *time.Location, now time.Time) (time.Time, error) {
	hh, mm, err := parseHHMM(deadline)
	if err != nil {
		return time.Time{}, err
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), hh, mm, 0, 0, loc), nil
}

// DeadlineOn resolves a "HH:MM" deadline to its instant on the given day key.
// Settlement uses this so a cycle stays addressable after the date rolls over:
// a 23:30 deadline ends its verification window exactly at midnight, and
// evaluating against "today" would never see that cycle as closed.
func DeadlineOn(deadline, day string, loc *time.Location) (time.Time, error) {
	hh, mm, err := parseHHMM(deadline)
	if err != nil {
		return time.Time{}, err
	}
	d, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", day, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, loc), nil
}

// DayKey formats the calendar day of now in loc, used to scope all per-day
// records and uniqueness checks.
func DayKey(now time.Time, loc *time.Location) string {
	return now.In(loc).Format("2006-01-02")
}

// SameCalendarDay reports whether a and b fall on the same day/month/year
// in loc. Deadline updates are gated on this, not on elapsed 24 hours.
func SameCalendarDay(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func parseHHMM(s string) (hh, mm int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid deadline %q", s)
	}
	hh, err = strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return 0, 0, fmt.Errorf("invalid deadline hour %q", s)
	}
	mm, err = strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, 0, fmt.Errorf("invalid deadline minute %q", s)
	}
	return hh, mm, nil
}
