package services

import (
	"context"
	"errors"
	"time"

	"accpartner-backend/internal/apperr"
	"accpartner-backend/internal/models"
	"accpartner-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Rating deltas applied per participant at settlement.
const (
	deltaNoSubmission = -2 // did not submit a completed task
	deltaUnverified   = +1 // submitted, partner never verified in time
	deltaConfirmed    = +1 // submitted, partner confirmed completion
	deltaRejected     = -1 // submitted, partner judged it not completed
)

// User-facing verdict copy pushed alongside the rating delta.
const (
	msgConfirmed    = "Congratulations! You completed your task successfully!"
	msgRejected     = "Your task was not completed as expected. Please be more careful next time!"
	msgNoSubmission = "Be sincere with your responsibilities! You did not submit your task."
	msgUnverified   = "Your task went unverified before the window closed. Benefit of the doubt granted."
)

// SettlementService is the verification and rating engine. All rating
// mutations in the system go through it.
type SettlementService struct {
	users         *UserService
	pairings      *PairingService
	tasks         TaskStore
	verifications VerificationStore
	userStore     UserStore
	notifier      Notifier
	now           Clock
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	users *UserService,
	pairings *PairingService,
	tasks TaskStore,
	verifications VerificationStore,
	userStore UserStore,
	notifier Notifier,
	now Clock,
) *SettlementService {
	if now == nil {
		now = time.Now
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &SettlementService{
		users:         users,
		pairings:      pairings,
		tasks:         tasks,
		verifications: verifications,
		userStore:     userStore,
		notifier:      notifier,
		now:           now,
	}
}

// Verify records the caller's verdict on their partner's submission. Legal
// only inside the caller's own verification window, once per day, and only
// when the partner actually submitted.
func (s *SettlementService) Verify(ctx context.Context, pairingID, verifierID string, isCompleted bool) (*models.Verification, error) {
	pairing, err := s.pairings.GetPairingFor(ctx, pairingID, verifierID)
	if err != nil {
		return nil, err
	}
	verifier, err := s.users.Get(ctx, verifierID)
	if err != nil {
		return nil, err
	}

	phase, err := s.users.PhaseFor(verifier)
	if err != nil {
		return nil, err
	}
	if phase != PhaseVerifying {
		return nil, apperr.ErrNotInVerificationWindow
	}

	// The pairing's own day, not "today": at the exact midnight boundary of a
	// 23:30 deadline the calendar date has already rolled over.
	day := pairing.Day
	if day == "" {
		day = s.users.DayFor(verifier)
	}
	if done, err := s.verifications.ExistsForDay(ctx, pairingID, verifierID, day); err != nil {
		return nil, apperr.Upstream("failed to check prior verification", err)
	} else if done {
		return nil, apperr.ErrAlreadyVerified
	}

	verifiedUserID := pairing.PartnerOf(verifierID)
	task, err := s.tasks.GetCompletedForDay(ctx, pairingID, verifiedUserID, day)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, apperr.ErrNothingToVerify
		}
		return nil, apperr.Upstream("failed to get partner submission", err)
	}

	result := models.ResultNotCompleted
	if isCompleted {
		result = models.ResultCompleted
	}
	marked, err := s.tasks.MarkVerified(ctx, task.ID, result, s.now())
	if err != nil {
		return nil, apperr.Upstream("failed to record verdict", err)
	}
	if !marked {
		return nil, apperr.ErrAlreadyVerified
	}

	verification := &models.Verification{
		ID:             uuid.New().String(),
		PairingID:      pairingID,
		TaskID:         task.ID,
		VerifierID:     verifierID,
		VerifiedUserID: verifiedUserID,
		IsCompleted:    isCompleted,
		CreatedAt:      s.now(),
	}
	if err := s.verifications.Create(ctx, verification, day); err != nil {
		// Without the ledger row a retry would bounce off the marked task, so
		// roll the verdict back and let the verifier try again.
		if cerr := s.tasks.ClearVerified(ctx, task.ID); cerr != nil {
			log.Error().Err(cerr).Str("task_id", task.ID).Msg("Failed to roll back verdict")
		}
		return nil, apperr.Upstream("failed to create verification", err)
	}

	s.notifier.Notify(verifiedUserID, WSMessage{
		Type: MsgTaskVerified,
		Data: map[string]interface{}{"pairing_id": pairingID, "result": result},
	})

	// Early settlement: both sides verified each other before the window
	// closed. Failure here is not fatal, the sweep will settle later.
	count, err := s.verifications.CountForDay(ctx, pairingID, day)
	if err == nil && count >= 2 {
		if err := s.settle(ctx, pairing, day); err != nil {
			log.Error().Err(err).Str("pairing_id", pairingID).Msg("Early settlement failed")
		}
	}
	return verification, nil
}

// SettleDuePairings settles every pairing whose day is over: both
// participants' windows are CLOSED, so neither side is settled prematurely.
// Driven by the scheduler tick; safe to run concurrently from multiple
// instances because settle is idempotent.
func (s *SettlementService) SettleDuePairings(ctx context.Context) error {
	pairings, err := s.pairings.pairings.ListAll(ctx)
	if err != nil {
		return apperr.Upstream("failed to list pairings", err)
	}
	for _, pairing := range pairings {
		due, day, err := s.isDue(ctx, pairing)
		if err != nil {
			log.Error().Err(err).Str("pairing_id", pairing.ID).Msg("Failed to evaluate settlement due")
			continue
		}
		if !due {
			continue
		}
		if err := s.settle(ctx, pairing, day); err != nil {
			log.Error().Err(err).Str("pairing_id", pairing.ID).Msg("Settlement failed")
		}
	}
	return nil
}

// isDue reports whether every participant's verification window for the
// pairing's own day is over. The window is anchored to that day, not today's
// date: a 23:30 deadline closes exactly at midnight, and a phase check against
// the current date would flip back to PLANNING and never see the cycle end.
// A participant without a deadline never opens a window and counts as closed.
// A pairing where neither side has a deadline has no day cycle and is skipped.
func (s *SettlementService) isDue(ctx context.Context, pairing *models.Pairing) (bool, string, error) {
	day := pairing.Day
	anyDeadline := false
	for _, id := range []string{pairing.UserAID, pairing.UserBID} {
		user, err := s.users.Get(ctx, id)
		if err != nil {
			return false, "", err
		}
		if day == "" {
			day = s.users.DayFor(user)
		}
		if user.Deadline == nil {
			continue
		}
		anyDeadline = true
		loc, err := time.LoadLocation(user.Timezone)
		if err != nil {
			loc = time.UTC
		}
		at, err := DeadlineOn(*user.Deadline, day, loc)
		if err != nil {
			return false, "", err
		}
		if !s.now().After(at.Add(VerificationWindow)) {
			return false, "", nil
		}
	}
	return anyDeadline, day, nil
}

// settle finalizes a pairing's day: computes both outcomes, wins the
// settlement marker, then applies the rating delta for each participant
// exactly once and notifies them. Outcomes are resolved before the marker is
// consumed, so a store failure aborts the settle and the next tick retries
// with the marker still up for grabs.
func (s *SettlementService) settle(ctx context.Context, pairing *models.Pairing, day string) error {
	type outcome struct {
		userID  string
		delta   int
		message string
	}
	outcomes := make([]outcome, 0, 2)
	for _, userID := range []string{pairing.UserAID, pairing.UserBID} {
		delta, message, err := s.outcomeFor(ctx, pairing.ID, userID, day)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, outcome{userID: userID, delta: delta, message: message})
	}

	won, err := s.verifications.TrySettle(ctx, &models.Settlement{
		ID:        uuid.New().String(),
		PairingID: pairing.ID,
		Day:       day,
		CreatedAt: s.now(),
	})
	if err != nil {
		return err
	}
	if !won {
		// Already settled for the day, repeated attempts are no-ops.
		return nil
	}

	for _, o := range outcomes {
		if err := s.userStore.AddRating(ctx, o.userID, o.delta); err != nil {
			log.Error().Err(err).Str("user_id", o.userID).Int("delta", o.delta).
				Msg("Failed to apply rating delta")
			continue
		}
		log.Info().Str("pairing_id", pairing.ID).Str("user_id", o.userID).
			Int("delta", o.delta).Str("day", day).Msg("Rating settled")
		s.notifier.Notify(o.userID, WSMessage{
			Type:    MsgRatingSettled,
			Message: o.message,
			Data:    map[string]interface{}{"pairing_id": pairing.ID, "delta": o.delta},
		})
	}
	return nil
}

// outcomeFor computes one participant's rating delta per the settlement
// table: no submission -2, unverified submission +1, confirmed +1,
// rejected -1. Only a genuine missing row counts as "did not submit"; any
// other store error propagates so the settle is retried instead of scoring
// an outage as a failure.
func (s *SettlementService) outcomeFor(ctx context.Context, pairingID, userID, day string) (int, string, error) {
	task, err := s.tasks.GetCompletedForDay(ctx, pairingID, userID, day)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return deltaNoSubmission, msgNoSubmission, nil
		}
		return 0, "", apperr.Upstream("failed to get completed task", err)
	}
	if !task.Verified || task.VerificationResult == nil {
		return deltaUnverified, msgUnverified, nil
	}
	if *task.VerificationResult == models.ResultCompleted {
		return deltaConfirmed, msgConfirmed, nil
	}
	return deltaRejected, msgRejected, nil
}
