package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"favorx-backend-go/internal/core"
	"favorx-backend-go/internal/db"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/pkg/database"
)

// mapErrorToStatus maps errors from the core services to HTTP status codes and ErrorResponse.
func mapErrorToStatus(c *gin.Context, logger *zap.Logger, err error) {
	var statusCode int
	var errResponse ErrorResponse

	var (
		rejected   *core.SignUpRejectedError
		payment    *core.PaymentError
		transition *core.InvalidTransitionError
		validation *database.ValidationError
	)

	switch {
	case errors.As(err, &rejected):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: "Sign-up rejected", Messages: rejected.Messages}
	case errors.As(err, &payment):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: core.ErrInvalidPaymentDetails.Error(), Details: payment.Error()}
	case errors.As(err, &validation):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: "Validation failed", Details: validation.Error()}
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrSelfTransfer),
		errors.Is(err, core.ErrInvalidImage),
		errors.Is(err, core.ErrInvalidSubscriptionCode),
		errors.Is(err, identity.ErrUnsupportedProvider):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: err.Error()}
	case errors.Is(err, identity.ErrUnauthenticated),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, identity.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		errResponse = ErrorResponse{Error: "Unauthorized", Details: err.Error()}
	case errors.Is(err, core.ErrInsufficientCoins):
		statusCode = http.StatusPaymentRequired
		errResponse = ErrorResponse{Error: core.ErrInsufficientCoins.Error()}
	case errors.As(err, &transition):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: "Invalid status transition", Details: transition.Reason}
	case errors.Is(err, db.ErrCaughtRejected):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: "Invalid status transition", Details: err.Error()}
	case errors.Is(err, core.ErrEmailRegistered):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: "Email already registered"}
	case errors.Is(err, core.ErrImageTooLarge):
		statusCode = http.StatusRequestEntityTooLarge
		errResponse = ErrorResponse{Error: core.ErrImageTooLarge.Error()}
	case errors.Is(err, core.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: "User not found", Details: err.Error()}
	case errors.Is(err, core.ErrRequestNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: "Request not found", Details: err.Error()}
	case errors.Is(err, core.ErrResourceNotFound), errors.Is(err, db.ErrNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: "Not found", Details: err.Error()}
	default:
		logger.Error("Internal server error", zap.String("path", c.FullPath()), zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// bindJSON binds the request body and answers 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return false
	}
	return true
}
