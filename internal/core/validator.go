package core

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"favorx-backend-go/internal/db"
	"favorx-backend-go/internal/models"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	upperPattern    = regexp.MustCompile(`[A-Z]`)
	digitPattern    = regexp.MustCompile(`[0-9]`)
	specialPattern  = regexp.MustCompile(`[!@#$%^&*]`)
)

// ValidationResult is the validator verdict shown to the client.
type ValidationResult struct {
	Success  bool     `json:"success"`
	Messages []string `json:"messages"`
}

// Validator checks sign-up input, including uniqueness of username and email.
type Validator struct {
	users  db.UserRepository
	logger *zap.Logger
}

func NewValidator(users db.UserRepository, logger *zap.Logger) *Validator {
	return &Validator{users: users, logger: logger}
}

// ValidateSignUpInput runs every check and collects one message per failing field.
func (v *Validator) ValidateSignUpInput(ctx context.Context, in models.SignUpRequest) ValidationResult {
	var messages []string
	for _, msg := range []string{
		v.validateUsername(ctx, in.Username),
		v.validateEmail(ctx, in.Email),
		validatePassword(in.Password),
		validateConfirmPassword(in.Password, in.ConfirmPassword),
		validateAgreement(in.Agree),
	} {
		if msg != "" {
			messages = append(messages, msg)
		}
	}

	if len(messages) > 0 {
		return ValidationResult{Success: false, Messages: messages}
	}
	return ValidationResult{Success: true, Messages: []string{"Sign-up input is valid"}}
}

func (v *Validator) validateUsername(ctx context.Context, value string) string {
	if len(strings.TrimSpace(value)) < 3 {
		return "Username must be at least 3 characters long"
	}
	if !usernamePattern.MatchString(value) {
		return "Username can only contain letters, numbers, underscores, and dots"
	}
	taken, err := v.users.UsernameTaken(ctx, value)
	if err != nil {
		v.logger.Error("Error checking username existence", zap.Error(err))
		return "An error occurred while validating the username"
	}
	if taken {
		return "Username already taken"
	}
	return ""
}

func (v *Validator) validateEmail(ctx context.Context, value string) string {
	if !emailPattern.MatchString(value) {
		return "Please enter a valid email address"
	}
	taken, err := v.users.EmailTaken(ctx, value)
	if err != nil {
		v.logger.Error("Error checking email existence", zap.Error(err))
		return "An error occurred while validating the email"
	}
	if taken {
		return "Email already registered"
	}
	return ""
}

func validatePassword(value string) string {
	switch {
	case len(value) < 8:
		return "Password must be at least 8 characters long"
	case !upperPattern.MatchString(value):
		return "Password must contain at least one uppercase letter"
	case !digitPattern.MatchString(value):
		return "Password must contain at least one number"
	case !specialPattern.MatchString(value):
		return "Password must contain at least one special character (!@#$%^&*)"
	}
	return ""
}

func validateConfirmPassword(password, confirm string) string {
	if password != confirm {
		return "Passwords do not match"
	}
	return ""
}

func validateAgreement(agree bool) string {
	if !agree {
		return "You must agree to the terms and conditions"
	}
	return ""
}
