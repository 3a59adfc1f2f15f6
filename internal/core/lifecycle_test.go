package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"favorx-backend-go/internal/db"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/models"
	"favorx-backend-go/pkg/database"
)

func TestLifecycle_HappyPathSettlesAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "alice", 3)
	f.seedUser(t, "bob", "bob", 3)
	id := f.seedRequest(t, "alice", models.StatusPending, "")

	req, err := f.lifecycle.ChangeRequestStatus(asUser("bob"), id, models.StatusPending, models.StatusOngoing)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOngoing, req.Status)
	require.NotNil(t, req.TakenBy)
	assert.Equal(t, "bob", *req.TakenBy)

	_, err = f.lifecycle.ChangeRequestStatus(asUser("bob"), id, models.StatusOngoing, models.StatusAwaitingApproval)
	require.NoError(t, err)
	_, err = f.lifecycle.ChangeRequestStatus(asUser("alice"), id, models.StatusAwaitingApproval, models.StatusFinished)
	require.NoError(t, err)

	stored, err := f.requests.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, stored.Status)
	assert.Equal(t, int64(4), f.coins(t, "bob"))
	assert.Equal(t, int64(3), f.coins(t, "alice"))

	history, err := f.ledger.History(context.Background(), "bob")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.TxSettlement, history[0].Type)
	assert.Equal(t, id, history[0].RequestID)

	f.dispatcher.Wait()
	sent := f.recorder.Sent()
	require.Len(t, sent, 3)
	titles := make([]string, 0, len(sent))
	for _, n := range sent {
		assert.Equal(t, "alice", n.UserID)
		assert.Equal(t, id, n.RequestID)
		titles = append(titles, n.Title)
	}
	assert.ElementsMatch(t, []string{
		"Request Taken",
		"Your request has been finished!",
		"Thank you for using our app!",
	}, titles)
}

func TestLifecycle_ReleaseClearsTaker(t *testing.T) {
	f := newFixture(t)
	id := f.seedRequest(t, "alice", models.StatusOngoing, "bob")

	req, err := f.lifecycle.ChangeRequestStatus(asUser("bob"), id, models.StatusOngoing, models.StatusPending)
	require.NoError(t, err)
	assert.Nil(t, req.TakenBy)

	doc := f.backend.GetRequestByID(context.Background(), id)
	require.NotNil(t, doc)
	assert.Nil(t, doc["takenBy"])
	assert.Equal(t, "pending", doc["status"])
}

func TestLifecycle_RevertApproval(t *testing.T) {
	f := newFixture(t)
	id := f.seedRequest(t, "alice", models.StatusAwaitingApproval, "bob")

	req, err := f.lifecycle.ChangeRequestStatus(asUser("alice"), id, models.StatusAwaitingApproval, models.StatusOngoing)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOngoing, req.Status)
	require.NotNil(t, req.TakenBy)
	assert.Equal(t, "bob", *req.TakenBy)
}

func TestLifecycle_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		status   models.RequestStatus
		takenBy  string
		caller   string
		expected models.RequestStatus
		next     models.RequestStatus
	}{
		{"requester cannot accept own request", models.StatusPending, "", "alice", models.StatusPending, models.StatusOngoing},
		{"stale expected state", models.StatusOngoing, "bob", "carol", models.StatusPending, models.StatusOngoing},
		{"pair not in table", models.StatusPending, "", "bob", models.StatusPending, models.StatusFinished},
		{"finished is terminal", models.StatusFinished, "bob", "alice", models.StatusFinished, models.StatusPending},
		{"only taker ends", models.StatusOngoing, "bob", "alice", models.StatusOngoing, models.StatusAwaitingApproval},
		{"only taker releases", models.StatusOngoing, "bob", "carol", models.StatusOngoing, models.StatusPending},
		{"only requester approves", models.StatusAwaitingApproval, "bob", "bob", models.StatusAwaitingApproval, models.StatusFinished},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.seedRequest(t, "alice", tt.status, tt.takenBy)

			_, err := f.lifecycle.ChangeRequestStatus(asUser(tt.caller), id, tt.expected, tt.next)
			require.Error(t, err)
			assert.True(t, IsInvalidTransition(err), "got %v", err)

			stored, err := f.requests.GetByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.status, stored.Status)
		})
	}
}

func TestLifecycle_InputErrors(t *testing.T) {
	f := newFixture(t)
	id := f.seedRequest(t, "alice", models.StatusPending, "")

	_, err := f.lifecycle.ChangeRequestStatus(context.Background(), id, models.StatusPending, models.StatusOngoing)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)

	_, err = f.lifecycle.ChangeRequestStatus(asUser("bob"), id, "caught", models.StatusOngoing)
	assert.True(t, database.IsValidation(err))

	_, err = f.lifecycle.ChangeRequestStatus(asUser("bob"), "missing", models.StatusPending, models.StatusOngoing)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestLifecycle_LegacyStatusSpelling(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "bob", "bob", 0)
	id, err := f.backend.AddDocument(context.Background(), models.CollectionRequests, map[string]interface{}{
		"title":   "Legacy",
		"uid":     "alice",
		"status":  "waitingForApproval",
		"takenBy": "bob",
	})
	require.NoError(t, err)

	_, err = f.lifecycle.ChangeRequestStatus(asUser("alice"), id, "waitingForApproval", models.StatusFinished)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.coins(t, "bob"))
}

func TestLifecycle_SettlementWithoutTakerIsSkipped(t *testing.T) {
	f := newFixture(t)
	id, err := f.backend.AddDocument(context.Background(), models.CollectionRequests, map[string]interface{}{
		"title":  "Orphaned approval",
		"uid":    "alice",
		"status": string(models.StatusAwaitingApproval),
	})
	require.NoError(t, err)

	req, err := f.lifecycle.ChangeRequestStatus(asUser("alice"), id, models.StatusAwaitingApproval, models.StatusFinished)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, req.Status)
}

func TestAllowedTransition(t *testing.T) {
	action, ok := AllowedTransition(models.StatusPending, models.StatusOngoing)
	assert.True(t, ok)
	assert.Equal(t, ActionAccept, action)

	_, ok = AllowedTransition(models.StatusFinished, models.StatusOngoing)
	assert.False(t, ok)
}

// slowReadStore widens the gap between a read and the following write, the
// way a Firestore round trip does.
type slowReadStore struct {
	*database.MemoryStore
	delay time.Duration
}

func (s slowReadStore) Get(ctx context.Context, collection, docID string) (database.Document, error) {
	time.Sleep(s.delay)
	return s.MemoryStore.Get(ctx, collection, docID)
}

func TestLifecycle_ConcurrentFinishSettlesOnce(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "alice", 0)
	f.seedUser(t, "bob", "bob", 0)
	id := f.seedRequest(t, "alice", models.StatusAwaitingApproval, "bob")

	backend := db.NewBackend(slowReadStore{MemoryStore: f.store, delay: 5 * time.Millisecond}, zap.NewNop())
	lifecycle := NewLifecycleService(db.NewRequestRepository(backend), backend, f.ledger, nil, zap.NewNop())

	const callers = 4
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := lifecycle.ChangeRequestStatus(asUser("alice"), id, models.StatusAwaitingApproval, models.StatusFinished)
			switch {
			case err == nil:
				succeeded.Add(1)
			case IsInvalidTransition(err):
				rejected.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(callers-1), rejected.Load())
	assert.Equal(t, int64(SettlementReward), f.coins(t, "bob"))

	history, err := f.ledger.History(context.Background(), "bob")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSetRequestCaught_ThirdPartyCannotReopenOrTakeOver(t *testing.T) {
	tests := []struct {
		name   string
		status models.RequestStatus
		caller string
		caught bool
	}{
		{"third party reopens finished request", models.StatusFinished, "mallory", false},
		{"third party takes finished request", models.StatusFinished, "mallory", true},
		{"taker reopens finished request", models.StatusFinished, "bob", false},
		{"third party takes over ongoing request", models.StatusOngoing, "mallory", true},
		{"third party releases ongoing request", models.StatusOngoing, "mallory", false},
		{"third party releases request awaiting approval", models.StatusAwaitingApproval, "mallory", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.seedRequest(t, "alice", tt.status, "bob")

			err := f.writer.SetRequestCaught(asUser(tt.caller), id, tt.caught)
			assert.ErrorIs(t, err, db.ErrCaughtRejected)

			stored, err := f.requests.GetByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.status, stored.Status)
			assert.True(t, stored.IsTakenBy("bob"))
		})
	}
}
