package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"favorx-backend-go/internal/db"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/models"
	"favorx-backend-go/internal/notify"
	"favorx-backend-go/pkg/database"
)

type fixture struct {
	store      *database.MemoryStore
	backend    *db.Backend
	users      db.UserRepository
	requests   db.RequestRepository
	ledgerRepo db.LedgerRepository
	orphans    db.OrphanRepository
	provider   *identity.MemoryProvider
	recorder   *notify.Recorder
	dispatcher *notify.Dispatcher

	ledger    LedgerService
	reader    ReadService
	lifecycle LifecycleService
	writer    WriteService
	billing   BillingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := database.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		store:    store,
		backend:  db.NewBackend(store, logger),
		provider: identity.NewMemoryProvider(),
		recorder: &notify.Recorder{},
	}
	f.users = db.NewUserRepository(f.backend)
	f.requests = db.NewRequestRepository(f.backend)
	f.ledgerRepo = db.NewLedgerRepository(f.backend)
	f.orphans = db.NewOrphanRepository(f.backend)
	f.dispatcher = notify.NewDispatcher(f.recorder, logger)

	f.ledger = NewLedgerService(f.ledgerRepo, logger)
	f.reader = NewReader(f.backend, f.users, f.requests, f.provider, logger)
	f.lifecycle = NewLifecycleService(f.requests, f.backend, f.ledger, f.dispatcher, logger)
	f.billing = NewBillingService(f.backend, f.users, f.ledger, "1234", logger)
	f.writer = f.newWriter(f.users)
	return f
}

// newWriter builds a writer over the given user repository so tests can
// inject failures.
func (f *fixture) newWriter(users db.UserRepository) WriteService {
	return NewWriter(WriterDeps{
		Backend:   f.backend,
		Users:     users,
		Requests:  f.requests,
		Orphans:   f.orphans,
		Provider:  f.provider,
		Validator: NewValidator(users, zap.NewNop()),
		Lifecycle: f.lifecycle,
		Ledger:    f.ledger,
		Reader:    f.reader,
	}, WriterSettings{SignupBonus: 3, MaxProfileImageBytes: 64}, zap.NewNop())
}

func (f *fixture) seedUser(t *testing.T, uid, username string, coins int64) {
	t.Helper()
	require.NoError(t, f.users.Create(context.Background(), &models.User{
		UID:      uid,
		Email:    username + "@example.com",
		Username: username,
		Coins:    coins,
	}))
}

func (f *fixture) seedRequest(t *testing.T, owner string, status models.RequestStatus, takenBy string) string {
	t.Helper()
	req := &models.Request{Title: "Walk the dog", UID: owner, Status: status}
	if takenBy != "" {
		req.TakenBy = &takenBy
	}
	id, err := f.requests.Create(context.Background(), req)
	require.NoError(t, err)
	return id
}

func (f *fixture) coins(t *testing.T, uid string) int64 {
	t.Helper()
	c := f.backend.GetUserCoins(context.Background(), uid)
	require.NotNil(t, c, "user %s has no balance", uid)
	return *c
}

func asUser(uid string) context.Context {
	return identity.WithPrincipal(context.Background(), &identity.Principal{UID: uid})
}
