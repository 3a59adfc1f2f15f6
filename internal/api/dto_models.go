package api

import "favorx-backend-go/internal/models"

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error    string   `json:"error"`             // A high-level error message or code
	Details  string   `json:"details,omitempty"` // More specific details about the error, if available
	Messages []string `json:"messages,omitempty"`
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// CoinsResponse carries a balance.
type CoinsResponse struct {
	Coins int64 `json:"coins"`
}

// SignUpResponse is returned by a successful sign-up.
type SignUpResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// RequestListResponse wraps a list of requests.
type RequestListResponse struct {
	Requests []*models.Request `json:"requests"`
}

// ActiveRequestListResponse wraps the caller's active requests with their takers.
type ActiveRequestListResponse struct {
	Requests []models.ActiveRequest `json:"requests"`
}

// ResourceResponse carries a base64 asset.
type ResourceResponse struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

// TransactionListResponse wraps the caller's coin history.
type TransactionListResponse struct {
	Transactions []*models.CoinTransaction `json:"transactions"`
}
