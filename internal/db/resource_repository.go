package db

import (
	"context"
	"errors"
	"fmt"

	"favorx-backend-go/internal/models"
)

type resourceRepository struct {
	backend *Backend
}

func NewResourceRepository(backend *Backend) ResourceRepository {
	return &resourceRepository{backend: backend}
}

// GetImage returns the base64 image stored on the resource document.
func (r *resourceRepository) GetImage(ctx context.Context, resourceID string) (string, error) {
	doc, err := r.backend.GetDocument(ctx, models.CollectionResources, resourceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("resource '%s' not found: %w", resourceID, ErrNotFound)
		}
		return "", fmt.Errorf("failed to get resource '%s': %w", resourceID, err)
	}
	image, _ := doc["image"].(string)
	if image == "" {
		return "", fmt.Errorf("resource '%s' has no image: %w", resourceID, ErrNotFound)
	}
	return image, nil
}
