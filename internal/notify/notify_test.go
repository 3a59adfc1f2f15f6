package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"favorx-backend-go/internal/models"
	"favorx-backend-go/pkg/messagequeue"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*messaging.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, m)
	return "msg-1", nil
}

type fakeUsers map[string]*models.User

func (f fakeUsers) GetByUID(_ context.Context, uid string) (*models.User, error) {
	u, ok := f[uid]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

type fakeQueue struct {
	published map[string][][]byte
}

func (q *fakeQueue) Publish(_ context.Context, name string, body []byte) error {
	if q.published == nil {
		q.published = make(map[string][][]byte)
	}
	q.published[name] = append(q.published[name], body)
	return nil
}

func (q *fakeQueue) Consume(context.Context, string, messagequeue.Handler) error { return nil }
func (q *fakeQueue) Close() error                                                { return nil }

func TestDispatcher_DetachesFromCaller(t *testing.T) {
	rec := &Recorder{}
	d := NewDispatcher(rec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, Notification{UserID: "U1", Title: "Request Taken"})
	cancel()
	d.Dispatch(ctx, Notification{UserID: "", Title: "ignored"})
	d.Wait()

	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Request Taken", sent[0].Title)
}

func TestFCMNotifier(t *testing.T) {
	sender := &fakeSender{}
	users := fakeUsers{
		"U1": {UID: "U1", PushToken: "device-1"},
		"U2": {UID: "U2"},
	}
	n := NewFCMNotifier(sender, users, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, Notification{UserID: "U1", Title: "T", Body: "B", RequestID: "r1"}))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "device-1", sender.sent[0].Token)
	assert.Equal(t, "T", sender.sent[0].Notification.Title)
	assert.Equal(t, "r1", sender.sent[0].Data["requestId"])

	assert.ErrorIs(t, n.Notify(ctx, Notification{UserID: "U2"}), ErrNoPushToken)
	assert.Error(t, n.Notify(ctx, Notification{UserID: "ghost"}))

	sender.err = errors.New("unavailable")
	assert.Error(t, n.Notify(ctx, Notification{UserID: "U1"}))
}

func TestQueueNotifierRoundTrip(t *testing.T) {
	q := &fakeQueue{}
	n := NewQueueNotifier(q, "notifications", zap.NewNop())
	in := Notification{UserID: "U1", Title: "T", Body: "B"}
	require.NoError(t, n.Notify(context.Background(), in))
	require.Len(t, q.published["notifications"], 1)

	var decoded Notification
	require.NoError(t, json.Unmarshal(q.published["notifications"][0], &decoded))
	assert.Equal(t, in, decoded)

	rec := &Recorder{}
	handler := DeliveryHandler(rec, zap.NewNop())
	require.NoError(t, handler(context.Background(), q.published["notifications"][0]))
	require.NoError(t, handler(context.Background(), []byte("not json")))
	assert.Equal(t, []Notification{in}, rec.Sent())
}
