package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"favorx-backend-go/internal/models"
)

func receiveUpdate[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	var zero T
	return zero
}

func TestWatchBalance(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "alice", 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewWatchService(f.backend, zap.NewNop())
	balances, err := svc.WatchBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), receiveUpdate(t, balances))

	f.backend.AddCoinsToUser(context.Background(), "alice", 2)
	assert.Equal(t, int64(5), receiveUpdate(t, balances))

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-balances:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	_, err = svc.WatchBalance(context.Background(), "")
	assert.Error(t, err)
}

func TestWatchRequests(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := NewWatchService(f.backend, zap.NewNop())

	own, err := svc.WatchOwnRequests(ctx, "alice")
	require.NoError(t, err)
	open, err := svc.WatchOpenRequests(ctx, "alice")
	require.NoError(t, err)

	assert.Empty(t, receiveUpdate(t, own))
	assert.Empty(t, receiveUpdate(t, open))

	mine := f.seedRequest(t, "alice", models.StatusPending, "")
	got := receiveUpdate(t, own)
	require.Len(t, got, 1)
	assert.Equal(t, mine, got[0].ID)

	theirs := f.seedRequest(t, "bob", models.StatusPending, "")
	got = receiveUpdate(t, open)
	require.Len(t, got, 1)
	assert.Equal(t, theirs, got[0].ID)
}
