package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"favorx-backend-go/internal/db"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/models"
)

var (
	cardNumberPattern = regexp.MustCompile(`^\d{16}$`)
	cvvPattern        = regexp.MustCompile(`^\d{3}$`)
	expirationPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	idNumberPattern   = regexp.MustCompile(`^\d{9}$`)
)

// MaxPurchaseAmount is the largest number of coins a single purchase may buy.
const MaxPurchaseAmount int64 = 1000

// billingService simulates coin purchases; no payment provider is contacted.
type billingService struct {
	backend          *db.Backend
	users            db.UserRepository
	ledger           LedgerService
	subscriptionCode string
	logger           *zap.Logger
}

// NewBillingService creates a new BillingService. subscriptionCode is the
// code Subscribe accepts.
func NewBillingService(backend *db.Backend, users db.UserRepository, ledger LedgerService, subscriptionCode string, logger *zap.Logger) BillingService {
	return &billingService{
		backend:          backend,
		users:            users,
		ledger:           ledger,
		subscriptionCode: subscriptionCode,
		logger:           logger,
	}
}

// ValidatePurchase checks the simulated card details in the order the
// client shows them.
func ValidatePurchase(req models.PurchaseRequest) error {
	switch {
	case req.Amount <= 0:
		return &PaymentError{Field: "amount", Message: "please enter a valid amount"}
	case req.Amount > MaxPurchaseAmount:
		return &PaymentError{Field: "amount", Message: fmt.Sprintf("a single purchase is limited to %d coins", MaxPurchaseAmount)}
	case !cardNumberPattern.MatchString(req.CardNumber):
		return &PaymentError{Field: "cardNumber", Message: "please enter a valid card number (16 digits)"}
	case !cvvPattern.MatchString(req.CVV):
		return &PaymentError{Field: "cvv", Message: "please enter a valid CVV (3 digits)"}
	case !expirationPattern.MatchString(req.Expiration):
		return &PaymentError{Field: "expiration", Message: "please enter a valid expiration date (MM/YY)"}
	case !idNumberPattern.MatchString(req.IDNumber):
		return &PaymentError{Field: "idNumber", Message: "please enter a valid ID number (9 digits)"}
	}
	return nil
}

// PurchaseCoins credits the principal with the purchased amount and returns
// the new balance.
func (s *billingService) PurchaseCoins(ctx context.Context, req models.PurchaseRequest) (int64, error) {
	principal, err := identity.Require(ctx)
	if err != nil {
		return 0, err
	}
	if err := ValidatePurchase(req); err != nil {
		return 0, err
	}

	balance := s.backend.AddCoinsToUser(ctx, principal.UID, req.Amount)
	if balance == nil {
		return 0, fmt.Errorf("%w: could not credit purchase to '%s'", ErrUserNotFound, principal.UID)
	}
	recordQuietly(ctx, s.ledger, s.logger, models.CoinTransaction{
		UserID:       principal.UID,
		Amount:       req.Amount,
		Type:         models.TxPurchase,
		BalanceAfter: balance,
	})
	s.logger.Info("Coins purchased",
		zap.String("uid", principal.UID),
		zap.Int64("amount", req.Amount),
		zap.String("card", "****"+req.CardNumber[len(req.CardNumber)-4:]))
	return *balance, nil
}

func (s *billingService) Subscribe(ctx context.Context, code string) error {
	if strings.TrimSpace(code) != s.subscriptionCode {
		return ErrInvalidSubscriptionCode
	}
	return s.setSubscribed(ctx, 1)
}

func (s *billingService) Unsubscribe(ctx context.Context) error {
	return s.setSubscribed(ctx, 0)
}

func (s *billingService) setSubscribed(ctx context.Context, value int) error {
	principal, err := identity.Require(ctx)
	if err != nil {
		return err
	}
	user, err := s.users.GetByUID(ctx, principal.UID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, principal.UID)
		}
		return fmt.Errorf("failed to get user '%s': %w", principal.UID, err)
	}
	if err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{"subscribed": value}); err != nil {
		return fmt.Errorf("failed to update subscription of '%s': %w", principal.UID, err)
	}
	return nil
}
