package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"favorx-backend-go/internal/models"
)

func TestReconciler_RunOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	live, err := f.provider.CreateUser(ctx, "left@example.com", "Secret#123", "left")
	require.NoError(t, err)
	require.NoError(t, f.orphans.Record(ctx, models.OrphanedPrincipal{UID: live.UID, Email: live.Email, Reason: "test"}))
	require.NoError(t, f.orphans.Record(ctx, models.OrphanedPrincipal{UID: "already-gone", Reason: "test"}))

	r := NewReconciler(f.orphans, f.provider, zap.NewNop())

	f.provider.FailDeletes(true)
	resolved, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, resolved)

	orphans, err := f.orphans.List(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 2)
	for _, o := range orphans {
		assert.Equal(t, 1, o.Attempts)
	}

	f.provider.FailDeletes(false)
	resolved, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, resolved)
	assert.False(t, f.provider.Exists(live.UID))

	orphans, err = f.orphans.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestReconciler_StartRejectsBadSchedule(t *testing.T) {
	f := newFixture(t)
	r := NewReconciler(f.orphans, f.provider, zap.NewNop())
	assert.Error(t, r.Start("every now and then"))

	require.NoError(t, r.Start("@every 1h"))
	r.Stop(context.Background())
}
