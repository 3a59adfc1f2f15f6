package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"favorx-backend-go/internal/db"
	"favorx-backend-go/internal/models"
	"favorx-backend-go/pkg/database"
)

// watchService turns document store snapshots into typed updates.
type watchService struct {
	backend *db.Backend
	logger  *zap.Logger
}

func NewWatchService(backend *db.Backend, logger *zap.Logger) WatchService {
	return &watchService{backend: backend, logger: logger}
}

// WatchBalance emits the coin balance of uid whenever it changes.
func (s *watchService) WatchBalance(ctx context.Context, uid string) (<-chan int64, error) {
	if uid == "" {
		return nil, &database.ValidationError{Field: "uid", Message: "uid cannot be empty"}
	}
	snaps, err := s.backend.Watch(ctx, models.CollectionUsers, database.Filter{Field: "uid", Op: "==", Value: uid})
	if err != nil {
		return nil, fmt.Errorf("failed to watch balance of '%s': %w", uid, err)
	}

	out := make(chan int64, 1)
	go func() {
		defer close(out)
		var last *int64
		for snap := range snaps {
			if len(snap.Documents) == 0 {
				continue
			}
			coins := models.UserFromDocument(snap.Documents[0]).Coins
			if last != nil && *last == coins {
				continue
			}
			last = &coins
			select {
			case out <- coins:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// WatchOwnRequests emits the full list of requests posted by uid on every change.
func (s *watchService) WatchOwnRequests(ctx context.Context, uid string) (<-chan []*models.Request, error) {
	if uid == "" {
		return nil, &database.ValidationError{Field: "uid", Message: "uid cannot be empty"}
	}
	return s.watchRequests(ctx, database.Filter{Field: "uid", Op: "==", Value: uid})
}

// WatchOpenRequests emits the full list of requests posted by anyone but uid.
func (s *watchService) WatchOpenRequests(ctx context.Context, uid string) (<-chan []*models.Request, error) {
	return s.watchRequests(ctx, database.Filter{Field: "uid", Op: "!=", Value: uid})
}

func (s *watchService) watchRequests(ctx context.Context, filter database.Filter) (<-chan []*models.Request, error) {
	snaps, err := s.backend.Watch(ctx, models.CollectionRequests, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to watch requests: %w", err)
	}

	out := make(chan []*models.Request, 1)
	go func() {
		defer close(out)
		for snap := range snaps {
			select {
			case out <- decodeRequests(snap.Documents):
			case <-ctx.Done():
				return
			}
		}
		s.logger.Debug("Request listener closed", zap.String("field", filter.Field), zap.String("op", filter.Op))
	}()
	return out, nil
}
