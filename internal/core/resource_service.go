package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"favorx-backend-go/internal/db"
	"favorx-backend-go/pkg/cache"
)

// resourceService reads Resources documents through a cache. Cache failures
// fall back to the document store.
type resourceService struct {
	resources db.ResourceRepository
	cache     cache.Cache
	ttl       time.Duration
	logger    *zap.Logger
}

func NewResourceService(resources db.ResourceRepository, c cache.Cache, ttl time.Duration, logger *zap.Logger) ResourceService {
	return &resourceService{resources: resources, cache: c, ttl: ttl, logger: logger}
}

func resourceKey(id string) string { return "resource:" + id }

func (s *resourceService) GetImage(ctx context.Context, resourceID string) (string, error) {
	key := resourceKey(resourceID)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("Resource cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	image, err := s.resources.GetImage(ctx, resourceID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", fmt.Errorf("%w: '%s'", ErrResourceNotFound, resourceID)
		}
		return "", fmt.Errorf("failed to load resource '%s': %w", resourceID, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, image, s.ttl); err != nil {
			s.logger.Warn("Resource cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return image, nil
}
