package db

import (
	"context"
	"fmt"
	"sort"

	"favorx-backend-go/internal/models"
	"favorx-backend-go/pkg/database"
)

type ledgerRepository struct {
	backend *Backend
}

func NewLedgerRepository(backend *Backend) LedgerRepository {
	return &ledgerRepository{backend: backend}
}

func (r *ledgerRepository) Create(ctx context.Context, entry *models.CoinTransaction) (string, error) {
	data := entry.ToMap()
	data["timestamp"] = database.ServerTimestamp
	id, err := r.backend.AddDocument(ctx, models.CollectionTransactions, data)
	if err != nil {
		return "", fmt.Errorf("failed to record coin transaction: %w", err)
	}
	entry.ID = id
	return id, nil
}

// ListByUser returns the user's transactions, newest first.
func (r *ledgerRepository) ListByUser(ctx context.Context, userID string) ([]*models.CoinTransaction, error) {
	docs, err := r.backend.QueryCollection(ctx, models.CollectionTransactions, "userId", "==", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list coin transactions for '%s': %w", userID, err)
	}
	out := make([]*models.CoinTransaction, 0, len(docs))
	for _, doc := range docs {
		out = append(out, models.CoinTransactionFromDocument(doc))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}
