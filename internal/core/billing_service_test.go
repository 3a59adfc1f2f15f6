package core

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/models"
)

func validPurchase() models.PurchaseRequest {
	return models.PurchaseRequest{
		Amount:     10,
		CardNumber: "4580123412341234",
		CVV:        "123",
		Expiration: "09/27",
		IDNumber:   "123456789",
	}
}

func TestValidatePurchase(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.PurchaseRequest)
		field  string
	}{
		{"zero amount", func(r *models.PurchaseRequest) { r.Amount = 0 }, "amount"},
		{"amount over limit", func(r *models.PurchaseRequest) { r.Amount = MaxPurchaseAmount + 1 }, "amount"},
		{"amount near int64 max", func(r *models.PurchaseRequest) { r.Amount = math.MaxInt64 }, "amount"},
		{"short card", func(r *models.PurchaseRequest) { r.CardNumber = "4580" }, "cardNumber"},
		{"card with spaces", func(r *models.PurchaseRequest) { r.CardNumber = "4580 1234 1234 1234" }, "cardNumber"},
		{"cvv letters", func(r *models.PurchaseRequest) { r.CVV = "12a" }, "cvv"},
		{"month 13", func(r *models.PurchaseRequest) { r.Expiration = "13/27" }, "expiration"},
		{"long year", func(r *models.PurchaseRequest) { r.Expiration = "09/2027" }, "expiration"},
		{"short id", func(r *models.PurchaseRequest) { r.IDNumber = "12345" }, "idNumber"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validPurchase()
			tt.mutate(&in)
			err := ValidatePurchase(in)
			var pe *PaymentError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.field, pe.Field)
			assert.ErrorIs(t, err, ErrInvalidPaymentDetails)
		})
	}
	assert.NoError(t, ValidatePurchase(validPurchase()))

	atLimit := validPurchase()
	atLimit.Amount = MaxPurchaseAmount
	assert.NoError(t, ValidatePurchase(atLimit))
}

func TestPurchaseCoins_OversizedAmountLeavesBalance(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "alice", 3)

	in := validPurchase()
	in.Amount = math.MaxInt64
	_, err := f.billing.PurchaseCoins(asUser("alice"), in)
	assert.ErrorIs(t, err, ErrInvalidPaymentDetails)
	assert.Equal(t, int64(3), f.coins(t, "alice"))
}

func TestPurchaseCoins(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "alice", 3)

	balance, err := f.billing.PurchaseCoins(asUser("alice"), validPurchase())
	require.NoError(t, err)
	assert.Equal(t, int64(13), balance)
	assert.Equal(t, int64(13), f.coins(t, "alice"))

	history, err := f.ledger.History(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.TxPurchase, history[0].Type)
	assert.Equal(t, int64(10), history[0].Amount)

	_, err = f.billing.PurchaseCoins(context.Background(), validPurchase())
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)
	_, err = f.billing.PurchaseCoins(asUser("ghost"), validPurchase())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSubscription(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", "alice", 0)

	assert.ErrorIs(t, f.billing.Subscribe(asUser("alice"), "0000"), ErrInvalidSubscriptionCode)

	require.NoError(t, f.billing.Subscribe(asUser("alice"), "1234"))
	u, err := f.users.GetByUID(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, u.Subscribed)

	require.NoError(t, f.billing.Unsubscribe(asUser("alice")))
	u, err = f.users.GetByUID(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, u.Subscribed)

	assert.ErrorIs(t, f.billing.Unsubscribe(context.Background()), identity.ErrUnauthenticated)
}
