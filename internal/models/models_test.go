package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestFromDocument_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]interface{}
		want RequestStatus
	}{
		{"canonical", map[string]interface{}{"status": "finished"}, StatusFinished},
		{"legacy waiting spelling", map[string]interface{}{"status": "waitingForApproval"}, StatusAwaitingApproval},
		{"caught false", map[string]interface{}{"caught": false}, StatusPending},
		{"caught true", map[string]interface{}{"caught": true}, StatusOngoing},
		{"status wins over caught", map[string]interface{}{"status": "pending", "caught": true}, StatusPending},
		{"nothing", map[string]interface{}{}, StatusPending},
		{"garbage status", map[string]interface{}{"status": 17}, StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequestFromDocument(tt.doc).Status)
		})
	}
}

func TestRequestFromDocument_MalformedFields(t *testing.T) {
	r := RequestFromDocument(map[string]interface{}{
		"id":        "r1",
		"title":     nil,
		"uid":       "U1",
		"takenBy":   "",
		"timestamp": "2024-05-01T10:00:00Z",
		"createdAt": 12,
	})
	require.NotNil(t, r)
	assert.Equal(t, "r1", r.ID)
	assert.Equal(t, "", r.Title)
	assert.Nil(t, r.TakenBy)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), r.Timestamp.UTC())
	assert.True(t, r.CreatedAt.IsZero())

	assert.Nil(t, RequestFromDocument(nil))
}

func TestRequestToMap_NeverWritesCaught(t *testing.T) {
	taker := "U2"
	m := (&Request{Title: "t", UID: "U1", Status: StatusOngoing, TakenBy: &taker}).ToMap()
	assert.NotContains(t, m, "caught")
	assert.Equal(t, "ongoing", m["status"])
	assert.Equal(t, "U2", m["takenBy"])

	m = (&Request{Status: StatusPending}).ToMap()
	assert.Nil(t, m["takenBy"])
}

func TestUserFromDocument(t *testing.T) {
	u := UserFromDocument(map[string]interface{}{
		"id":         "doc1",
		"email":      "a@x.com",
		"coins":      float64(4),
		"picture":    "cGlj",
		"subscribed": int64(1),
		"createdAt":  "2024-01-02T03:04:05Z",
	})
	require.NotNil(t, u)
	assert.Equal(t, "doc1", u.UID, "uid falls back to the document id")
	assert.Equal(t, int64(4), u.Coins)
	assert.Equal(t, "cGlj", u.ProfileImage)
	assert.Equal(t, 1, u.Subscribed)
	assert.False(t, u.CreatedAt.IsZero())

	neg := UserFromDocument(map[string]interface{}{"coins": -5})
	assert.Equal(t, int64(0), neg.Coins)
}
