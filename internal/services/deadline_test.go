package services_test

import (
	"testing"
	"time"

	"accpartner-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatePhase(t *testing.T) {
	loc := mustLoc(t, "Europe/London")
	day := func(hh, mm int) time.Time {
		return time.Date(2025, 6, 16, hh, mm, 0, 0, loc)
	}

	tests := []struct {
		name string
		now  time.Time
		want services.Phase
	}{
		{"one minute before deadline", day(17, 59), services.PhasePlanning},
		{"exactly at deadline", day(18, 0), services.PhaseVerifying},
		{"mid window", day(18, 29), services.PhaseVerifying},
		{"window end inclusive", day(18, 30), services.PhaseVerifying},
		{"past window", day(18, 31), services.PhaseClosed},
		{"early morning", day(0, 1), services.PhasePlanning},
		{"late night", day(23, 59), services.PhaseClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phase, err := services.EvaluatePhase("18:00", loc, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, phase)
		})
	}
}

func TestEvaluatePhaseUsesOwnTimezone(t *testing.T) {
	london := mustLoc(t, "Europe/London")
	tokyo := mustLoc(t, "Asia/Tokyo")

	// 17:30 in London is already past midnight in Tokyo the next day.
	now := time.Date(2025, 6, 16, 17, 30, 0, 0, london)

	phase, err := services.EvaluatePhase("18:00", london, now)
	require.NoError(t, err)
	assert.Equal(t, services.PhasePlanning, phase)

	phase, err = services.EvaluatePhase("18:00", tokyo, now)
	require.NoError(t, err)
	assert.Equal(t, services.PhasePlanning, phase, "01:30 Tokyo time is before that day's 18:00")
}

func TestEvaluatePhaseRejectsMalformedDeadline(t *testing.T) {
	loc := mustLoc(t, "Europe/London")
	now := time.Date(2025, 6, 16, 12, 0, 0, 0, loc)

	for _, bad := range []string{"", "18", "25:00", "18:65", "aa:bb"} {
		_, err := services.EvaluatePhase(bad, loc, now)
		assert.Error(t, err, "deadline %q", bad)
	}
}

func TestDeadlineOn(t *testing.T) {
	loc := mustLoc(t, "Europe/London")

	at, err := services.DeadlineOn("23:30", "2025-06-16", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 16, 23, 30, 0, 0, loc), at)

	// Anchored to the given day, not the current one.
	at, err = services.DeadlineOn("18:00", "2025-06-15", loc)
	require.NoError(t, err)
	assert.Equal(t, 15, at.Day())

	_, err = services.DeadlineOn("18:00", "not-a-day", loc)
	assert.Error(t, err)
}

func TestDayKey(t *testing.T) {
	london := mustLoc(t, "Europe/London")
	tokyo := mustLoc(t, "Asia/Tokyo")

	now := time.Date(2025, 6, 16, 23, 30, 0, 0, london)
	assert.Equal(t, "2025-06-16", services.DayKey(now, london))
	assert.Equal(t, "2025-06-17", services.DayKey(now, tokyo))
}

func TestSameCalendarDay(t *testing.T) {
	loc := mustLoc(t, "Europe/London")

	morning := time.Date(2025, 6, 16, 0, 5, 0, 0, loc)
	night := time.Date(2025, 6, 16, 23, 55, 0, 0, loc)
	nextDay := time.Date(2025, 6, 17, 0, 5, 0, 0, loc)

	assert.True(t, services.SameCalendarDay(morning, night, loc),
		"same day even though more than 23 hours apart")
	assert.False(t, services.SameCalendarDay(night, nextDay, loc),
		"different days even though 10 minutes apart")
}
