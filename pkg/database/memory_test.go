package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AddGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Add(ctx, "users", map[string]interface{}{"email": "a@x.com", "coins": 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := store.Get(ctx, "users", id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID())
	assert.Equal(t, "a@x.com", doc["email"])
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "users", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CreateRejectsDuplicate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "users", "u1", map[string]interface{}{"coins": 3}))
	err := store.Create(ctx, "users", "u1", map[string]interface{}{"coins": 5})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemoryStore_UpdateAndSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Update(ctx, "users", "missing", map[string]interface{}{"coins": 1})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "users", "u1", map[string]interface{}{"coins": 3, "email": "a@x.com"}, false))
	require.NoError(t, store.Set(ctx, "users", "u1", map[string]interface{}{"pushToken": "tok"}, true))
	require.NoError(t, store.Update(ctx, "users", "u1", map[string]interface{}{"updatedAt": ServerTimestamp}))

	doc, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", doc["email"])
	assert.Equal(t, "tok", doc["pushToken"])
	assert.IsType(t, time.Time{}, doc["updatedAt"])

	require.NoError(t, store.Set(ctx, "users", "u1", map[string]interface{}{"coins": 1}, false))
	doc, err = store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.NotContains(t, doc, "email")
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "users", "u1", map[string]interface{}{"coins": 3}))

	doc, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	doc["coins"] = 100

	again, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, again["coins"])
}

func TestMemoryStore_QueryFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "Open-Requests", "r1", map[string]interface{}{"uid": "u1", "status": "pending"}))
	require.NoError(t, store.Create(ctx, "Open-Requests", "r2", map[string]interface{}{"uid": "u2", "status": "ongoing", "takenBy": "u1"}))
	require.NoError(t, store.Create(ctx, "Open-Requests", "r3", map[string]interface{}{"uid": "u2", "status": "finished", "takenBy": "u3"}))

	tests := []struct {
		name    string
		filters []Filter
		want    []string
	}{
		{"equality", []Filter{{Field: "status", Op: "==", Value: "pending"}}, []string{"r1"}},
		{"not equal skips missing field", []Filter{{Field: "takenBy", Op: "!=", Value: "u1"}}, []string{"r3"}},
		{"combined", []Filter{{Field: "uid", Op: "==", Value: "u2"}, {Field: "status", Op: "!=", Value: "finished"}}, []string{"r2"}},
		{"in", []Filter{{Field: "status", Op: "in", Value: []string{"pending", "finished"}}}, []string{"r1", "r3"}},
		{"not-in", []Filter{{Field: "status", Op: "not-in", Value: []string{"pending"}}}, []string{"r2", "r3"}},
		{"no filters", nil, []string{"r1", "r2", "r3"}},
		{"no match", []Filter{{Field: "uid", Op: "==", Value: "nobody"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := store.Query(ctx, "Open-Requests", tt.filters...)
			require.NoError(t, err)
			ids := make([]string, 0, len(docs))
			for _, d := range docs {
				ids = append(ids, d.ID())
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemoryStore_QueryNumericNormalisation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "users", "u1", map[string]interface{}{"subscribed": int64(1)}))
	require.NoError(t, store.Create(ctx, "users", "u2", map[string]interface{}{"subscribed": float64(0)}))

	docs, err := store.Query(ctx, "users", Filter{Field: "subscribed", Op: "==", Value: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "u1", docs[0].ID())

	docs, err = store.Query(ctx, "users", Filter{Field: "subscribed", Op: "<", Value: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "u2", docs[0].ID())
}

func TestMemoryStore_Increment(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "users", "u1", map[string]interface{}{"coins": 2}))

	v, err := store.Increment(ctx, "users", "u1", "coins", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	_, err = store.IncrementIfSufficient(ctx, "users", "u1", "coins", -6)
	assert.ErrorIs(t, err, ErrInsufficient)

	v, err = store.IncrementIfSufficient(ctx, "users", "u1", "coins", -5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	_, err = store.Increment(ctx, "users", "ghost", "coins", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Watch(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, store.Create(ctx, "Open-Requests", "r1", map[string]interface{}{"uid": "u1", "status": "pending"}))

	snaps, err := store.Watch(ctx, "Open-Requests", Filter{Field: "uid", Op: "==", Value: "u1"})
	require.NoError(t, err)

	first := receive(t, snaps)
	require.Len(t, first.Documents, 1)
	require.Len(t, first.Changes, 1)
	assert.Equal(t, ChangeAdded, first.Changes[0].Kind)

	// Unrelated writes do not produce a snapshot.
	require.NoError(t, store.Create(ctx, "Open-Requests", "r2", map[string]interface{}{"uid": "u2", "status": "pending"}))
	require.NoError(t, store.Update(ctx, "Open-Requests", "r1", map[string]interface{}{"status": "ongoing"}))

	second := receive(t, snaps)
	require.Len(t, second.Changes, 1)
	assert.Equal(t, ChangeModified, second.Changes[0].Kind)
	assert.Equal(t, "ongoing", second.Changes[0].Document["status"])

	require.NoError(t, store.Delete(ctx, "Open-Requests", "r1"))
	third := receive(t, snaps)
	require.Len(t, third.Changes, 1)
	assert.Equal(t, ChangeRemoved, third.Changes[0].Kind)
	assert.Empty(t, third.Documents)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-snaps:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_WatchRejectsBadOperator(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Watch(context.Background(), "users", Filter{Field: "a", Op: "~=", Value: 1})
	assert.True(t, IsValidation(err))
}

func receive(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "watch channel closed")
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func TestMemoryStore_UpdateIf(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "requests", "r1", map[string]interface{}{"status": "pending"}))

	errStale := errors.New("stale")
	statusIs := func(want string) func(Document) error {
		return func(doc Document) error {
			if doc["status"] != want {
				return errStale
			}
			return nil
		}
	}

	err := store.UpdateIf(ctx, "requests", "r1", statusIs("ongoing"), map[string]interface{}{"status": "finished"})
	assert.ErrorIs(t, err, errStale)
	doc, err := store.Get(ctx, "requests", "r1")
	require.NoError(t, err)
	assert.Equal(t, "pending", doc["status"])

	require.NoError(t, store.UpdateIf(ctx, "requests", "r1", statusIs("pending"), map[string]interface{}{"status": "ongoing"}))
	doc, err = store.Get(ctx, "requests", "r1")
	require.NoError(t, err)
	assert.Equal(t, "ongoing", doc["status"])

	err = store.UpdateIf(ctx, "requests", "missing", statusIs("pending"), map[string]interface{}{"status": "ongoing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UpdateIfConcurrentWritersOnlyOneWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "requests", "r1", map[string]interface{}{"status": "awaitingForApproval"}))

	errStale := errors.New("stale")
	check := func(doc Document) error {
		if doc["status"] != "awaitingForApproval" {
			return errStale
		}
		return nil
	}

	const writers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.UpdateIf(ctx, "requests", "r1", check, map[string]interface{}{"status": "finished"}) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
