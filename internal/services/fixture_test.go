package services_test

import (
	"testing"
	"time"

	"accpartner-backend/internal/models"
	"accpartner-backend/internal/services"
)

// fixture wires the full service graph over in-memory stores with a
// controllable clock.
type fixture struct {
	store      *memStore
	blobs      *memBlobStore
	notifier   *recordingNotifier
	now        time.Time
	users      *services.UserService
	pairings   *services.PairingService
	tasks      *services.TaskService
	settlement *services.SettlementService
	verifs     memVerificationStore
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	f := &fixture{
		store:    newMemStore(),
		blobs:    newMemBlobStore(),
		notifier: newRecordingNotifier(),
		now:      now,
	}
	clock := func() time.Time { return f.now }

	f.verifs = memVerificationStore{f.store}
	f.users = services.NewUserService(f.store, "test-secret", clock)
	f.pairings = services.NewPairingService(
		f.store, memRequestStore{f.store}, memPairingStore{f.store}, f.notifier, clock,
	)
	f.tasks = services.NewTaskService(f.users, f.pairings, memTaskStore{f.store}, f.blobs, f.notifier, clock)
	f.settlement = services.NewSettlementService(
		f.users, f.pairings, memTaskStore{f.store}, f.verifs, f.store, f.notifier, clock,
	)
	return f
}

// advance moves the fixture clock forward.
func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// addUser seeds a user directly into the store.
func (f *fixture) addUser(t *testing.T, id, username, timezone string, deadline string, available bool) *models.User {
	t.Helper()
	user := &models.User{
		ID:        id,
		Username:  username,
		Email:     username + "@test.com",
		Timezone:  timezone,
		Available: available,
		CreatedAt: f.now,
	}
	if deadline != "" {
		d := deadline
		user.Deadline = &d
	}
	f.store.users[id] = user
	return user
}

// addPairing seeds a pairing between two users for the fixture's current day.
func (f *fixture) addPairing(t *testing.T, id, userA, userB string) *models.Pairing {
	t.Helper()
	pairing := &models.Pairing{
		ID:        id,
		UserAID:   userA,
		UserBID:   userB,
		Day:       f.now.Format("2006-01-02"),
		CreatedAt: f.now,
	}
	f.store.pairings[id] = pairing
	return pairing
}

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("failed to load location %s: %v", name, err)
	}
	return loc
}
