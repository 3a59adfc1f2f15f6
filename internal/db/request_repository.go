package db

import (
	"context"
	"errors"
	"fmt"

	"favorx-backend-go/internal/models"
	"favorx-backend-go/pkg/database"
)

// requestRepository implements RequestRepository on top of the Backend.
type requestRepository struct {
	backend *Backend
}

// NewRequestRepository creates a new RequestRepository.
func NewRequestRepository(backend *Backend) RequestRepository {
	return &requestRepository{backend: backend}
}

// Create adds a new request with an auto-generated ID and sets req.ID.
func (r *requestRepository) Create(ctx context.Context, req *models.Request) (string, error) {
	id, err := r.backend.AddDocument(ctx, models.CollectionRequests, req.ToMap())
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.ID = id
	return id, nil
}

func (r *requestRepository) GetByID(ctx context.Context, requestID string) (*models.Request, error) {
	if requestID == "" {
		return nil, errors.New("requestID cannot be empty for GetByID operation")
	}
	doc, err := r.backend.GetDocument(ctx, models.CollectionRequests, requestID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("request with ID '%s' not found: %w", requestID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get request with ID '%s': %w", requestID, err)
	}
	return models.RequestFromDocument(doc), nil
}

func (r *requestRepository) UpdateFields(ctx context.Context, requestID string, fields map[string]interface{}) error {
	if err := r.backend.UpdateDocument(ctx, models.CollectionRequests, requestID, fields); err != nil {
		return fmt.Errorf("failed to update request '%s': %w", requestID, err)
	}
	return nil
}

func (r *requestRepository) UpdateFieldsIf(ctx context.Context, requestID string, check func(*models.Request) error, fields map[string]interface{}) (*models.Request, error) {
	var before *models.Request
	guard := func(doc database.Document) error {
		before = models.RequestFromDocument(doc)
		return check(before)
	}
	if err := r.backend.UpdateDocumentIf(ctx, models.CollectionRequests, requestID, guard, fields); err != nil {
		if database.IsPersistence(err) {
			return nil, fmt.Errorf("failed to update request '%s': %w", requestID, err)
		}
		return nil, err
	}
	return before, nil
}

// List returns the requests matching every filter, decoded into the fixed field set.
func (r *requestRepository) List(ctx context.Context, filters ...database.Filter) ([]*models.Request, error) {
	docs, err := r.backend.Query(ctx, models.CollectionRequests, filters...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	out := make([]*models.Request, 0, len(docs))
	for _, doc := range docs {
		out = append(out, models.RequestFromDocument(doc))
	}
	return out, nil
}
