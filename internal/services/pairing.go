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

// PairingService handles candidate discovery and request negotiation.
type PairingService struct {
	users    UserStore
	requests RequestStore
	pairings PairingStore
	notifier Notifier
	now      Clock
}

// NewPairingService creates a new pairing service
func NewPairingService(users UserStore, requests RequestStore, pairings PairingStore, notifier Notifier, now Clock) *PairingService {
	if now == nil {
		now = time.Now
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &PairingService{
		users:    users,
		requests: requests,
		pairings: pairings,
		notifier: notifier,
		now:      now,
	}
}

// RequestView is a pending request enriched with the counterpart's username.
type RequestView struct {
	ID           string    `json:"id"`
	FromUser     string    `json:"from_user"`
	FromUsername string    `json:"from_username"`
	ToUser       string    `json:"to_user"`
	ToUsername   string    `json:"to_username"`
	CreatedAt    time.Time `json:"created_at"`
}

// CandidateView is the public slice of a user shown in candidate listings.
// Email and other private profile fields stay out of it.
type CandidateView struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	Rating     int     `json:"rating"`
	TotalPairs int     `json:"total_pairs"`
	Deadline   *string `json:"deadline"`
}

// PairingView is a pairing enriched with the partner's profile summary.
type PairingView struct {
	ID              string    `json:"id"`
	PartnerID       string    `json:"partner_id"`
	PartnerUsername string    `json:"partner_username"`
	PartnerDeadline *string   `json:"partner_deadline"`
	PartnerRating   int       `json:"partner_rating"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListAvailableCandidates returns users the caller could send a request to:
// available, same timezone, excluding self, current partners and anyone with
// an open request to or from the caller. The result is duplicate-free and
// stable for identical inputs.
func (s *PairingService) ListAvailableCandidates(ctx context.Context, selfID string) ([]*CandidateView, error) {
	self, err := s.getUser(ctx, selfID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.users.ListAvailableByTimezone(ctx, self.Timezone, selfID)
	if err != nil {
		return nil, apperr.Upstream("failed to list available users", err)
	}

	excluded := map[string]bool{selfID: true}
	partnerIDs, err := s.pairings.PartnerIDs(ctx, selfID)
	if err != nil {
		return nil, apperr.Upstream("failed to list partners", err)
	}
	for _, id := range partnerIDs {
		excluded[id] = true
	}
	counterparts, err := s.requests.PendingCounterparts(ctx, selfID)
	if err != nil {
		return nil, apperr.Upstream("failed to list pending requests", err)
	}
	for _, id := range counterparts {
		excluded[id] = true
	}

	seen := make(map[string]bool, len(candidates))
	result := make([]*CandidateView, 0, len(candidates))
	for _, candidate := range candidates {
		if excluded[candidate.ID] || seen[candidate.ID] {
			continue
		}
		seen[candidate.ID] = true
		result = append(result, &CandidateView{
			ID:         candidate.ID,
			Username:   candidate.Username,
			Rating:     candidate.Rating,
			TotalPairs: candidate.TotalPairs,
			Deadline:   candidate.Deadline,
		})
	}
	return result, nil
}

// SendRequest creates a pending pairing request and commits the sender by
// flipping their availability off. If the request is later rejected the
// availability is restored.
func (s *PairingService) SendRequest(ctx context.Context, fromID, toID string) (*models.PairingRequest, error) {
	if fromID == toID {
		return nil, apperr.Validation("cannot send a pairing request to yourself")
	}
	from, err := s.getUser(ctx, fromID)
	if err != nil {
		return nil, err
	}
	if _, err := s.getUser(ctx, toID); err != nil {
		return nil, err
	}

	if paired, err := s.pairings.ExistsBetween(ctx, fromID, toID); err != nil {
		return nil, apperr.Upstream("failed to check existing pairing", err)
	} else if paired {
		return nil, apperr.Validation("already paired with this user")
	}
	if open, err := s.requests.HasOpenBetween(ctx, fromID, toID); err != nil {
		return nil, apperr.Upstream("failed to check open request", err)
	} else if open {
		return nil, apperr.ErrDuplicateRequest
	}

	req := &models.PairingRequest{
		ID:        uuid.New().String(),
		FromUser:  fromID,
		ToUser:    toID,
		Status:    models.RequestPending,
		CreatedAt: s.now(),
	}
	if err := s.requests.Create(ctx, req, s.dayFor(from)); err != nil {
		return nil, apperr.Upstream("failed to create pairing request", err)
	}

	if err := s.users.UpdateAvailability(ctx, fromID, false); err != nil {
		log.Error().Err(err).Str("user_id", fromID).Msg("Failed to flip sender availability")
	}

	s.notifier.Notify(toID, WSMessage{
		Type: MsgRequestReceived,
		Data: map[string]interface{}{
			"request_id":    req.ID,
			"from_user":     fromID,
			"from_username": from.Username,
		},
	})
	return req, nil
}

// ListRequests returns the caller's pending requests, both directions, with
// usernames attached.
func (s *PairingService) ListRequests(ctx context.Context, userID string) ([]*RequestView, error) {
	reqs, err := s.requests.ListPendingInvolving(ctx, userID)
	if err != nil {
		return nil, apperr.Upstream("failed to list requests", err)
	}
	views := make([]*RequestView, 0, len(reqs))
	for _, req := range reqs {
		view := &RequestView{
			ID:        req.ID,
			FromUser:  req.FromUser,
			ToUser:    req.ToUser,
			CreatedAt: req.CreatedAt,
		}
		if from, err := s.users.GetByID(ctx, req.FromUser); err == nil {
			view.FromUsername = from.Username
		}
		if to, err := s.users.GetByID(ctx, req.ToUser); err == nil {
			view.ToUsername = to.Username
		}
		views = append(views, view)
	}
	return views, nil
}

// RespondRequest accepts or rejects a pending request. Only the recipient may
// respond, and a second call on the same request fails with
// RequestAlreadyResolved.
func (s *PairingService) RespondRequest(ctx context.Context, userID, requestID string, accept bool) (*models.Pairing, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, apperr.ErrRequestNotFound
		}
		return nil, apperr.Upstream("failed to get request", err)
	}
	if req.ToUser != userID {
		return nil, apperr.ErrNotAMember
	}

	status := models.RequestRejected
	if accept {
		status = models.RequestAccepted
	}
	resolved, err := s.requests.Resolve(ctx, requestID, status)
	if err != nil {
		return nil, apperr.Upstream("failed to resolve request", err)
	}
	if !resolved {
		return nil, apperr.ErrRequestAlreadyResolved
	}

	if !accept {
		// Sending the request flipped the sender unavailable; undo it.
		if err := s.users.UpdateAvailability(ctx, req.FromUser, true); err != nil {
			log.Error().Err(err).Str("user_id", req.FromUser).Msg("Failed to restore sender availability")
		}
		s.notifier.Notify(req.FromUser, WSMessage{
			Type: MsgRequestResponded,
			Data: map[string]interface{}{"request_id": requestID, "accepted": false},
		})
		return nil, nil
	}

	// Existence check before creation: two clients racing the same accepted
	// request must not produce two pairings.
	if paired, err := s.pairings.ExistsBetween(ctx, req.FromUser, req.ToUser); err != nil {
		return nil, apperr.Upstream("failed to check existing pairing", err)
	} else if paired {
		return nil, apperr.ErrRequestAlreadyResolved
	}

	userAID, userBID := req.FromUser, req.ToUser
	if userAID > userBID {
		userAID, userBID = userBID, userAID
	}
	recipient, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	pairing := &models.Pairing{
		ID:        uuid.New().String(),
		UserAID:   userAID,
		UserBID:   userBID,
		Day:       s.dayFor(recipient),
		CreatedAt: s.now(),
	}
	if err := s.pairings.Create(ctx, pairing, pairing.Day); err != nil {
		return nil, apperr.Upstream("failed to create pairing", err)
	}
	if err := s.users.IncrementTotalPairs(ctx, req.FromUser, req.ToUser); err != nil {
		log.Error().Err(err).Str("pairing_id", pairing.ID).Msg("Failed to increment total pairs")
	}
	// Both participants are now committed for the day.
	for _, id := range []string{req.FromUser, req.ToUser} {
		if err := s.users.UpdateAvailability(ctx, id, false); err != nil {
			log.Error().Err(err).Str("user_id", id).Msg("Failed to flip availability")
		}
	}

	s.notifier.Notify(req.FromUser, WSMessage{
		Type: MsgPairingCreated,
		Data: map[string]interface{}{"pairing_id": pairing.ID, "partner_id": req.ToUser},
	})
	return pairing, nil
}

// ListPairings returns the caller's pairings with partner summaries.
func (s *PairingService) ListPairings(ctx context.Context, userID string) ([]*PairingView, error) {
	pairings, err := s.pairings.ListByUserID(ctx, userID)
	if err != nil {
		return nil, apperr.Upstream("failed to list pairings", err)
	}
	views := make([]*PairingView, 0, len(pairings))
	for _, pairing := range pairings {
		view := &PairingView{
			ID:        pairing.ID,
			PartnerID: pairing.PartnerOf(userID),
			CreatedAt: pairing.CreatedAt,
		}
		if partner, err := s.users.GetByID(ctx, view.PartnerID); err == nil {
			view.PartnerUsername = partner.Username
			view.PartnerDeadline = partner.Deadline
			view.PartnerRating = partner.Rating
		}
		views = append(views, view)
	}
	return views, nil
}

// GetPairingFor fetches a pairing and checks the caller is a member.
func (s *PairingService) GetPairingFor(ctx context.Context, pairingID, userID string) (*models.Pairing, error) {
	pairing, err := s.pairings.GetByID(ctx, pairingID)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, apperr.ErrPairingNotFound
		}
		return nil, apperr.Upstream("failed to get pairing", err)
	}
	if !pairing.Has(userID) {
		return nil, apperr.ErrNotAMember
	}
	return pairing, nil
}

func (s *PairingService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Upstream("failed to get user", err)
	}
	return user, nil
}

func (s *PairingService) dayFor(user *models.User) string {
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return DayKey(s.now(), loc)
}
