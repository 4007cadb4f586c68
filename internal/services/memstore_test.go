package services_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"accpartner-backend/internal/models"
	"accpartner-backend/internal/repository"
	"accpartner-backend/internal/services"
)

// memStore is an in-memory implementation of every store interface the
// services consume, so the engine can be tested without Postgres.
type memStore struct {
	mu           sync.Mutex
	users        map[string]*models.User
	requests     map[string]*models.PairingRequest
	pairings     map[string]*models.Pairing
	planned      map[string]*models.PlannedTask   // pairing|user|day
	completed    map[string]*models.CompletedTask // pairing|user|day
	verification map[string]*models.Verification  // pairing|verifier|day
	settled      map[string]bool                  // pairing|day
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[string]*models.User),
		requests:     make(map[string]*models.PairingRequest),
		pairings:     make(map[string]*models.Pairing),
		planned:      make(map[string]*models.PlannedTask),
		completed:    make(map[string]*models.CompletedTask),
		verification: make(map[string]*models.Verification),
		settled:      make(map[string]bool),
	}
}

func key3(a, b, c string) string { return a + "|" + b + "|" + c }

// UserStore

func (m *memStore) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNoRows
}

func (m *memStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *memStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateDeadline(ctx context.Context, userID, deadline string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return repository.ErrNoRows
	}
	d, at := deadline, updatedAt
	user.Deadline = &d
	user.LastDeadlineUpdate = &at
	return nil
}

func (m *memStore) UpdateAvailability(ctx context.Context, userID string, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return repository.ErrNoRows
	}
	user.Available = available
	return nil
}

func (m *memStore) AddRating(ctx context.Context, userID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return repository.ErrNoRows
	}
	user.Rating += delta
	return nil
}

func (m *memStore) IncrementTotalPairs(ctx context.Context, userIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range userIDs {
		if user, ok := m.users[id]; ok {
			user.TotalPairs++
		}
	}
	return nil
}

func (m *memStore) ListAvailableByTimezone(ctx context.Context, timezone, excludeUserID string) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.User
	for _, user := range m.users {
		if user.Available && user.Timezone == timezone && user.ID != excludeUserID {
			copied := *user
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

// RequestStore (Create is taken by UserStore above, so requests get their own
// method names via a thin wrapper type below)

type memRequestStore struct{ *memStore }

func (m memRequestStore) Create(ctx context.Context, req *models.PairingRequest, day string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *req
	m.requests[req.ID] = &copied
	return nil
}

func (m memRequestStore) GetByID(ctx context.Context, id string) (*models.PairingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrNoRows
	}
	copied := *req
	return &copied, nil
}

func (m memRequestStore) HasOpenBetween(ctx context.Context, userA, userB string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.requests {
		if req.Status != models.RequestPending {
			continue
		}
		if (req.FromUser == userA && req.ToUser == userB) || (req.FromUser == userB && req.ToUser == userA) {
			return true, nil
		}
	}
	return false, nil
}

func (m memRequestStore) PendingCounterparts(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, req := range m.requests {
		if req.Status != models.RequestPending {
			continue
		}
		switch userID {
		case req.FromUser:
			ids = append(ids, req.ToUser)
		case req.ToUser:
			ids = append(ids, req.FromUser)
		}
	}
	return ids, nil
}

func (m memRequestStore) ListPendingInvolving(ctx context.Context, userID string) ([]*models.PairingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var reqs []*models.PairingRequest
	for _, req := range m.requests {
		if req.Status == models.RequestPending && (req.FromUser == userID || req.ToUser == userID) {
			copied := *req
			reqs = append(reqs, &copied)
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
	return reqs, nil
}

func (m memRequestStore) Resolve(ctx context.Context, id, status string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.Status != models.RequestPending {
		return false, nil
	}
	req.Status = status
	return true, nil
}

// PairingStore

type memPairingStore struct{ *memStore }

func (m memPairingStore) Create(ctx context.Context, pairing *models.Pairing, day string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *pairing
	copied.Day = day
	m.pairings[pairing.ID] = &copied
	return nil
}

func (m memPairingStore) GetByID(ctx context.Context, id string) (*models.Pairing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pairing, ok := m.pairings[id]
	if !ok {
		return nil, repository.ErrNoRows
	}
	copied := *pairing
	return &copied, nil
}

func (m memPairingStore) ListByUserID(ctx context.Context, userID string) ([]*models.Pairing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Pairing
	for _, pairing := range m.pairings {
		if pairing.Has(userID) {
			copied := *pairing
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m memPairingStore) ListAll(ctx context.Context) ([]*models.Pairing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Pairing
	for _, pairing := range m.pairings {
		copied := *pairing
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m memPairingStore) PartnerIDs(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, pairing := range m.pairings {
		if partner := pairing.PartnerOf(userID); partner != "" {
			ids = append(ids, partner)
		}
	}
	return ids, nil
}

func (m memPairingStore) ExistsBetween(ctx context.Context, userA, userB string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pairing := range m.pairings {
		if pairing.Has(userA) && pairing.Has(userB) {
			return true, nil
		}
	}
	return false, nil
}

// TaskStore

type memTaskStore struct{ *memStore }

func (m memTaskStore) CreatePlanned(ctx context.Context, task *models.PlannedTask, day string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *task
	m.planned[key3(task.PairingID, task.UserID, day)] = &copied
	return nil
}

func (m memTaskStore) GetPlannedForDay(ctx context.Context, pairingID, userID, day string) (*models.PlannedTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.planned[key3(pairingID, userID, day)]
	if !ok {
		return nil, repository.ErrNoRows
	}
	copied := *task
	return &copied, nil
}

func (m memTaskStore) CreateCompleted(ctx context.Context, task *models.CompletedTask, day string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *task
	m.completed[key3(task.PairingID, task.UserID, day)] = &copied
	return nil
}

func (m memTaskStore) GetCompletedForDay(ctx context.Context, pairingID, userID, day string) (*models.CompletedTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.completed[key3(pairingID, userID, day)]
	if !ok {
		return nil, repository.ErrNoRows
	}
	copied := *task
	return &copied, nil
}

func (m memTaskStore) MarkVerified(ctx context.Context, taskID, result string, verifiedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.completed {
		if task.ID != taskID {
			continue
		}
		if task.Verified {
			return false, nil
		}
		r, at := result, verifiedAt
		task.Verified = true
		task.VerificationResult = &r
		task.VerifiedAt = &at
		return true, nil
	}
	return false, nil
}

func (m memTaskStore) ClearVerified(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.completed {
		if task.ID == taskID {
			task.Verified = false
			task.VerificationResult = nil
			task.VerifiedAt = nil
		}
	}
	return nil
}

// VerificationStore

type memVerificationStore struct{ *memStore }

func (m memVerificationStore) Create(ctx context.Context, v *models.Verification, day string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *v
	m.verification[key3(v.PairingID, v.VerifierID, day)] = &copied
	return nil
}

func (m memVerificationStore) ExistsForDay(ctx context.Context, pairingID, verifierID, day string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.verification[key3(pairingID, verifierID, day)]
	return ok, nil
}

func (m memVerificationStore) CountForDay(ctx context.Context, pairingID, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for k, v := range m.verification {
		if v.PairingID == pairingID && strings.HasSuffix(k, "|"+day) {
			count++
		}
	}
	return count, nil
}

func (m memVerificationStore) TrySettle(ctx context.Context, s *models.Settlement) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := s.PairingID + "|" + s.Day
	if m.settled[k] {
		return false, nil
	}
	m.settled[k] = true
	return true, nil
}

func (m memVerificationStore) IsSettled(ctx context.Context, pairingID, day string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settled[pairingID+"|"+day], nil
}

// memBlobStore keeps uploads in memory and hands back mem:// URLs.
type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string][]byte)}
}

func (m *memBlobStore) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return fmt.Sprintf("mem://%s", key), nil
}

// recordingNotifier captures pushed notifications per user.
type recordingNotifier struct {
	mu       sync.Mutex
	messages map[string][]services.WSMessage
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{messages: make(map[string][]services.WSMessage)}
}

func (n *recordingNotifier) Notify(userID string, msg services.WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages[userID] = append(n.messages[userID], msg)
}

func (n *recordingNotifier) sent(userID, msgType string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, msg := range n.messages[userID] {
		if msg.Type == msgType {
			return true
		}
	}
	return false
}
