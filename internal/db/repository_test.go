package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"favorx-backend-go/internal/models"
	"favorx-backend-go/pkg/database"
)

func TestUserRepository(t *testing.T) {
	b := newTestBackend(t)
	repo := NewUserRepository(b)
	ctx := context.Background()

	user := &models.User{UID: "U1", Email: "a@x.com", Username: "alice", Coins: 3}
	require.NoError(t, repo.Create(ctx, user))
	assert.ErrorIs(t, repo.Create(ctx, user), database.ErrAlreadyExists)

	got, err := repo.GetByUID(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, int64(3), got.Coins)

	_, err = repo.GetByUID(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	taken, err := repo.UsernameTaken(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.EmailTaken(ctx, "b@x.com")
	require.NoError(t, err)
	assert.False(t, taken)

	require.NoError(t, repo.UpdateFields(ctx, "U1", map[string]interface{}{"subscribed": 1}))
	got, err = repo.FindByUIDField(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Subscribed)
}

func TestRequestRepository_RoundTrip(t *testing.T) {
	b := newTestBackend(t)
	repo := NewRequestRepository(b)
	ctx := context.Background()

	in := &models.Request{
		Title:               "Pick up a parcel",
		UID:                 "U1",
		CurrentCoordinates:  "32.08,34.78",
		CurrentAddress:      "Dizengoff 50",
		DestinationLocation: "Post office",
		PhoneNumber:         "0501234567",
		AdditionalNotes:     "fragile",
		Status:              models.StatusPending,
	}
	id, err := repo.Create(ctx, in)
	require.NoError(t, err)

	out, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, in.UID, out.UID)
	assert.Equal(t, in.CurrentCoordinates, out.CurrentCoordinates)
	assert.Equal(t, in.CurrentAddress, out.CurrentAddress)
	assert.Equal(t, in.DestinationLocation, out.DestinationLocation)
	assert.Equal(t, in.PhoneNumber, out.PhoneNumber)
	assert.Equal(t, in.AdditionalNotes, out.AdditionalNotes)
	assert.Equal(t, models.StatusPending, out.Status)
	assert.Nil(t, out.TakenBy)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrphanRepository(t *testing.T) {
	b := newTestBackend(t)
	repo := NewOrphanRepository(b)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, models.OrphanedPrincipal{UID: "P1", Email: "p@x.com", Reason: "boom"}))
	require.NoError(t, repo.IncrementAttempts(ctx, "P1"))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "P1", list[0].UID)
	assert.Equal(t, 1, list[0].Attempts)

	require.NoError(t, repo.Delete(ctx, "P1"))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestResourceRepository(t *testing.T) {
	b := newTestBackend(t)
	repo := NewResourceRepository(b)
	ctx := context.Background()

	require.NoError(t, b.CreateDocument(ctx, models.CollectionResources, "marker", map[string]interface{}{"image": "aGVsbG8="}))
	img, err := repo.GetImage(ctx, "marker")
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", img)

	_, err = repo.GetImage(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
