package core

import (
	"errors"
	"fmt"

	"favorx-backend-go/internal/models"
)

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrRequestNotFound          = errors.New("request not found")
	ErrResourceNotFound         = errors.New("resource not found")
	ErrInsufficientCoins        = errors.New("insufficient coins")
	ErrInvalidAmount            = errors.New("amount must be a positive integer")
	ErrSelfTransfer             = errors.New("cannot transfer coins to yourself")
	ErrInvalidImage             = errors.New("image is not valid base64")
	ErrImageTooLarge            = errors.New("image exceeds the maximum allowed size")
	ErrInvalidSubscriptionCode  = errors.New("invalid subscription code")
	ErrEmailRegistered          = errors.New("email already registered")
	ErrInvalidPaymentDetails    = errors.New("invalid payment details")
	ErrServiceNotInitialized    = errors.New("service dependencies not initialized")
)

// InvalidTransitionError reports a status change that the lifecycle table,
// the caller's role or the request's current state does not allow.
type InvalidTransitionError struct {
	RequestID string
	Current   models.RequestStatus
	Expected  models.RequestStatus
	Next      models.RequestStatus
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for request '%s' (%s -> %s, current %s): %s",
		e.RequestID, e.Expected, e.Next, e.Current, e.Reason)
}

// IsInvalidTransition reports whether err is (or wraps) an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var te *InvalidTransitionError
	return errors.As(err, &te)
}

// SignUpRejectedError carries the validator messages of a refused sign-up.
type SignUpRejectedError struct {
	Messages []string
}

func (e *SignUpRejectedError) Error() string {
	if len(e.Messages) == 0 {
		return "sign-up rejected"
	}
	return "sign-up rejected: " + e.Messages[0]
}

// PaymentError names the payment field that failed validation.
type PaymentError struct {
	Field   string
	Message string
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *PaymentError) Unwrap() error { return ErrInvalidPaymentDetails }
