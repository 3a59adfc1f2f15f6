package notify

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"favorx-backend-go/internal/models"
)

// ErrNoPushToken is returned when the recipient never registered a device.
var ErrNoPushToken = errors.New("recipient has no push token")

// MessageSender is the part of *messaging.Client used for delivery.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// UserLookup resolves a user's profile, including the push token.
type UserLookup interface {
	GetByUID(ctx context.Context, uid string) (*models.User, error)
}

// FCMNotifier delivers notifications through Firebase Cloud Messaging to the
// device token stored on the recipient's user document.
type FCMNotifier struct {
	sender MessageSender
	users  UserLookup
	logger *zap.Logger
}

func NewFCMNotifier(sender MessageSender, users UserLookup, logger *zap.Logger) *FCMNotifier {
	return &FCMNotifier{sender: sender, users: users, logger: logger}
}

func (f *FCMNotifier) Notify(ctx context.Context, n Notification) error {
	user, err := f.users.GetByUID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient '%s': %w", n.UserID, err)
	}
	if user.PushToken == "" {
		f.logger.Debug("Skipping push notification, no device registered", zap.String("userID", n.UserID))
		return ErrNoPushToken
	}

	msg := &messaging.Message{
		Token: user.PushToken,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
	}
	if n.RequestID != "" {
		msg.Data = map[string]string{"requestId": n.RequestID}
	}

	id, err := f.sender.Send(ctx, msg)
	if err != nil {
		if messaging.IsRegistrationTokenNotRegistered(err) {
			f.logger.Info("Push token no longer registered", zap.String("userID", n.UserID))
		}
		return fmt.Errorf("fcm send failed: %w", err)
	}
	f.logger.Debug("Push notification sent", zap.String("userID", n.UserID), zap.String("messageID", id))
	return nil
}

func (f *FCMNotifier) Channel() string { return "fcm" }
