package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"favorx-backend-go/internal/db"
	"favorx-backend-go/internal/metrics"
	"favorx-backend-go/internal/models"
)

// ledgerService implements the LedgerService interface.
type ledgerService struct {
	ledgerRepo db.LedgerRepository
	logger     *zap.Logger
}

// NewLedgerService creates a new LedgerService backed by the coin-transactions collection.
func NewLedgerService(ledgerRepo db.LedgerRepository, logger *zap.Logger) LedgerService {
	return &ledgerService{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// Record stores one coin movement and counts it in the coin metrics.
func (s *ledgerService) Record(ctx context.Context, entry models.CoinTransaction) error {
	if s.ledgerRepo == nil {
		return fmt.Errorf("ledger repository: %w", ErrServiceNotInitialized)
	}
	if entry.UserID == "" {
		return fmt.Errorf("coin transaction of type '%s' has no user", entry.Type)
	}

	if _, err := s.ledgerRepo.Create(ctx, &entry); err != nil {
		return fmt.Errorf("failed to create coin transaction via repository: %w", err)
	}
	metrics.RecordCoins(string(entry.Type), entry.Amount)
	return nil
}

func (s *ledgerService) History(ctx context.Context, userID string) ([]*models.CoinTransaction, error) {
	if s.ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository: %w", ErrServiceNotInitialized)
	}
	entries, err := s.ledgerRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list coin transactions: %w", err)
	}
	return entries, nil
}

// recordQuietly writes a ledger entry where the coin movement has already
// happened; a failure is logged instead of failing the operation.
func recordQuietly(ctx context.Context, ledger LedgerService, logger *zap.Logger, entry models.CoinTransaction) {
	if ledger == nil {
		return
	}
	if err := ledger.Record(ctx, entry); err != nil {
		logger.Error("Failed to record coin transaction",
			zap.String("userID", entry.UserID),
			zap.String("type", string(entry.Type)),
			zap.Int64("amount", entry.Amount),
			zap.Error(err))
	}
}
