// Package notify delivers user-facing notifications about request status
// changes. Delivery is best effort: failures are logged and counted, never
// returned to the operation that triggered them.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"favorx-backend-go/internal/metrics"
)

// Notification is a message addressed to one user.
type Notification struct {
	UserID    string `json:"userId"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	RequestID string `json:"requestId,omitempty"`
}

// Notifier delivers a single notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
	Channel() string
}

// Dispatcher sends notifications in the background so the caller never waits
// on delivery or sees its errors.
type Dispatcher struct {
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, logger: logger, timeout: 10 * time.Second}
}

// Dispatch queues n for delivery. The request context is detached so that
// delivery outlives the HTTP request that triggered it.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	if d == nil || d.notifier == nil || n.UserID == "" {
		return
	}
	bg := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(bg, d.timeout)
		defer cancel()

		err := d.notifier.Notify(ctx, n)
		metrics.RecordNotification(d.notifier.Channel(), err == nil)
		if err != nil {
			d.logger.Warn("Notification delivery failed",
				zap.String("channel", d.notifier.Channel()),
				zap.String("userID", n.UserID),
				zap.String("title", n.Title),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every dispatched notification has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// LogNotifier only writes notifications to the log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.logger.Info("Notification",
		zap.String("userID", n.UserID),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
		zap.String("requestID", n.RequestID))
	return nil
}

func (l *LogNotifier) Channel() string { return "log" }

// Recorder keeps every notification in memory. Tests use it to assert on
// what would have been sent.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Channel() string { return "recorder" }

// Sent returns a copy of the recorded notifications.
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}
