package models

// Document collection names.
const (
	CollectionUsers        = "users"
	CollectionRequests     = "Open-Requests"
	CollectionResources    = "Resources"
	CollectionTransactions = "coin-transactions"
	CollectionOrphans      = "orphaned-principals"
)
