package models

import "time"

// TransactionType classifies a coin movement.
type TransactionType string

const (
	TxSignupBonus TransactionType = "signup_bonus"
	TxSettlement  TransactionType = "settlement"
	TxPurchase    TransactionType = "purchase"
	TxTransferIn  TransactionType = "transfer_in"
	TxTransferOut TransactionType = "transfer_out"
	TxManual      TransactionType = "manual"
)

// CoinTransaction is one entry in the coin-transactions ledger.
type CoinTransaction struct {
	ID           string          `json:"id" firestore:"-"`
	UserID       string          `json:"userId" firestore:"userId"`
	Amount       int64           `json:"amount" firestore:"amount"` // signed
	Type         TransactionType `json:"type" firestore:"type"`
	RequestID    string          `json:"requestId,omitempty" firestore:"requestId,omitempty"`
	Counterparty string          `json:"counterparty,omitempty" firestore:"counterparty,omitempty"`
	BalanceAfter *int64          `json:"balanceAfter,omitempty" firestore:"balanceAfter,omitempty"`
	Timestamp    time.Time       `json:"timestamp" firestore:"timestamp,serverTimestamp"`
}

func CoinTransactionFromDocument(doc map[string]interface{}) *CoinTransaction {
	if doc == nil {
		return nil
	}
	tx := &CoinTransaction{
		ID:           stringField(doc, "id"),
		UserID:       stringField(doc, "userId"),
		Amount:       int64Field(doc, "amount"),
		Type:         TransactionType(stringField(doc, "type")),
		RequestID:    stringField(doc, "requestId"),
		Counterparty: stringField(doc, "counterparty"),
		Timestamp:    timeField(doc, "timestamp"),
	}
	if _, ok := doc["balanceAfter"]; ok {
		b := int64Field(doc, "balanceAfter")
		tx.BalanceAfter = &b
	}
	return tx
}

func (t *CoinTransaction) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"userId": t.UserID,
		"amount": t.Amount,
		"type":   string(t.Type),
	}
	if t.RequestID != "" {
		m["requestId"] = t.RequestID
	}
	if t.Counterparty != "" {
		m["counterparty"] = t.Counterparty
	}
	if t.BalanceAfter != nil {
		m["balanceAfter"] = *t.BalanceAfter
	}
	return m
}
