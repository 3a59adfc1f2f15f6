package db

import (
	"context"
	"fmt"

	"favorx-backend-go/internal/models"
	"favorx-backend-go/pkg/database"
)

// orphanRepository keys orphaned-principals documents by auth UID so that
// recording the same principal twice does not create duplicates.
type orphanRepository struct {
	backend *Backend
}

func NewOrphanRepository(backend *Backend) OrphanRepository {
	return &orphanRepository{backend: backend}
}

func (r *orphanRepository) Record(ctx context.Context, orphan models.OrphanedPrincipal) error {
	data := map[string]interface{}{
		"uid":       orphan.UID,
		"email":     orphan.Email,
		"reason":    orphan.Reason,
		"attempts":  orphan.Attempts,
		"createdAt": database.ServerTimestamp,
	}
	if err := r.backend.SetDocument(ctx, models.CollectionOrphans, orphan.UID, data, false); err != nil {
		return fmt.Errorf("failed to record orphaned principal '%s': %w", orphan.UID, err)
	}
	return nil
}

func (r *orphanRepository) List(ctx context.Context) ([]*models.OrphanedPrincipal, error) {
	docs, err := r.backend.QueryCollection(ctx, models.CollectionOrphans, "", "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphaned principals: %w", err)
	}
	out := make([]*models.OrphanedPrincipal, 0, len(docs))
	for _, doc := range docs {
		out = append(out, models.OrphanedPrincipalFromDocument(doc))
	}
	return out, nil
}

func (r *orphanRepository) IncrementAttempts(ctx context.Context, uid string) error {
	if _, err := r.backend.Store().Increment(ctx, models.CollectionOrphans, uid, "attempts", 1); err != nil {
		return fmt.Errorf("failed to bump attempts for '%s': %w", uid, err)
	}
	return nil
}

func (r *orphanRepository) Delete(ctx context.Context, uid string) error {
	if err := r.backend.DeleteDocument(ctx, models.CollectionOrphans, uid); err != nil {
		return fmt.Errorf("failed to delete orphan record '%s': %w", uid, err)
	}
	return nil
}
