package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"favorx-backend-go/internal/db"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/models"
	"favorx-backend-go/pkg/database"
)

var coordinatesPattern = regexp.MustCompile(`^\s*-?\d+(\.\d+)?\s*,\s*-?\d+(\.\d+)?\s*$`)

// WriterSettings carries the tunables of the write facade.
type WriterSettings struct {
	SignupBonus          int64
	MaxProfileImageBytes int
}

// writer implements the WriteService interface.
type writer struct {
	backend   *db.Backend
	users     db.UserRepository
	requests  db.RequestRepository
	orphans   db.OrphanRepository
	provider  identity.Provider
	validator *Validator
	lifecycle LifecycleService
	ledger    LedgerService
	reader    ReadService
	settings  WriterSettings
	logger    *zap.Logger
}

// WriterDeps groups the collaborators of the write facade.
type WriterDeps struct {
	Backend   *db.Backend
	Users     db.UserRepository
	Requests  db.RequestRepository
	Orphans   db.OrphanRepository
	Provider  identity.Provider
	Validator *Validator
	Lifecycle LifecycleService
	Ledger    LedgerService
	Reader    ReadService
}

// NewWriter creates a new WriteService.
func NewWriter(deps WriterDeps, settings WriterSettings, logger *zap.Logger) WriteService {
	return &writer{
		backend:   deps.Backend,
		users:     deps.Users,
		requests:  deps.Requests,
		orphans:   deps.Orphans,
		provider:  deps.Provider,
		validator: deps.Validator,
		lifecycle: deps.Lifecycle,
		ledger:    deps.Ledger,
		reader:    deps.Reader,
		settings:  settings,
		logger:    logger,
	}
}

// SignUp validates the input, creates the auth principal and then the user
// document with the sign-up bonus. If the document cannot be written the
// principal is deleted again; if that deletion fails too, the principal is
// recorded for the reconciler.
func (w *writer) SignUp(ctx context.Context, req models.SignUpRequest) (*models.User, error) {
	if result := w.validator.ValidateSignUpInput(ctx, req); !result.Success {
		return nil, &SignUpRejectedError{Messages: result.Messages}
	}

	principal, err := w.provider.CreateUser(ctx, req.Email, req.Password, req.Username)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailAlreadyExists):
			return nil, &SignUpRejectedError{Messages: []string{"Email already in use."}}
		case errors.Is(err, identity.ErrWeakPassword):
			return nil, &SignUpRejectedError{Messages: []string{"Password is too weak. Try a stronger password."}}
		}
		return nil, fmt.Errorf("failed to create principal: %w", err)
	}

	user := &models.User{
		UID:      principal.UID,
		Email:    req.Email,
		Username: req.Username,
		Coins:    w.settings.SignupBonus,
	}
	if err := w.users.Create(ctx, user); err != nil {
		w.logger.Error("User document creation failed, rolling back principal",
			zap.String("uid", principal.UID), zap.Error(err))
		w.compensate(ctx, principal, err)
		return nil, fmt.Errorf("failed to create user document: %w", err)
	}

	w.recordBonus(ctx, user)
	w.logger.Info("User signed up", zap.String("uid", user.UID), zap.String("username", user.Username))
	return user, nil
}

func (w *writer) compensate(ctx context.Context, principal *identity.Principal, cause error) {
	err := w.provider.DeleteUser(ctx, principal.UID)
	if err == nil || errors.Is(err, identity.ErrPrincipalNotFound) {
		return
	}
	w.logger.Error("Failed to delete principal after sign-up failure",
		zap.String("uid", principal.UID), zap.Error(err))

	orphan := models.OrphanedPrincipal{
		UID:    principal.UID,
		Email:  principal.Email,
		Reason: cause.Error(),
	}
	if recErr := w.orphans.Record(ctx, orphan); recErr != nil {
		w.logger.Error("Failed to record orphaned principal",
			zap.String("uid", principal.UID), zap.Error(recErr))
	}
}

func (w *writer) recordBonus(ctx context.Context, user *models.User) {
	if user.Coins == 0 {
		return
	}
	balance := user.Coins
	recordQuietly(ctx, w.ledger, w.logger, models.CoinTransaction{
		UserID:       user.UID,
		Amount:       user.Coins,
		Type:         models.TxSignupBonus,
		BalanceAfter: &balance,
	})
}

// SignInWithFederated signs in with a Google or Facebook credential and
// creates the user document on first sign-in.
func (w *writer) SignInWithFederated(ctx context.Context, provider, credential string) (*FederatedResult, error) {
	login := w.reader.LoginWithFederated(ctx, provider, credential)
	if !login.Success {
		return &FederatedResult{LoginResult: login}, identity.ErrInvalidCredentials
	}

	existing, err := w.users.GetByUID(ctx, login.UID)
	if err == nil {
		login.Message = fmt.Sprintf("Welcome %s!", displayNameOr(firstNonEmpty(existing.DisplayName, existing.Username)))
		return &FederatedResult{LoginResult: login, User: existing}, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user '%s': %w", login.UID, err)
	}

	principal, err := w.provider.VerifyIDToken(ctx, login.IDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify federated session: %w", err)
	}
	if principal.Email != "" {
		owner, err := w.users.FindByEmail(ctx, principal.Email)
		switch {
		case err == nil && owner.UID != principal.UID:
			return &FederatedResult{LoginResult: LoginResult{Success: false, Message: "Email already registered"}}, ErrEmailRegistered
		case err != nil && !errors.Is(err, db.ErrNotFound):
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	user := &models.User{
		UID:         principal.UID,
		Email:       principal.Email,
		DisplayName: displayNameOr(principal.DisplayName),
		Coins:       w.settings.SignupBonus,
	}
	if err := w.users.Create(ctx, user); err != nil {
		if !errors.Is(err, database.ErrAlreadyExists) {
			return nil, fmt.Errorf("failed to create user document: %w", err)
		}
		// A concurrent sign-in created it first.
		if user, err = w.users.GetByUID(ctx, principal.UID); err != nil {
			return nil, fmt.Errorf("failed to read user '%s': %w", principal.UID, err)
		}
		return &FederatedResult{LoginResult: login, User: user}, nil
	}
	w.recordBonus(ctx, user)
	login.Message = fmt.Sprintf("Welcome %s!", user.DisplayName)
	return &FederatedResult{LoginResult: login, User: user, Created: true}, nil
}

// AddRequest posts a new pending request owned by the principal.
func (w *writer) AddRequest(ctx context.Context, in models.CreateRequestRequest) (*models.Request, error) {
	principal, err := identity.Require(ctx)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, &database.ValidationError{Field: "title", Message: "title cannot be empty"}
	}
	if in.CurrentCoordinates != "" && !coordinatesPattern.MatchString(in.CurrentCoordinates) {
		return nil, &database.ValidationError{Field: "currentCoordinates", Message: "coordinates must be \"lat,lon\""}
	}

	req := &models.Request{
		Title:               title,
		UID:                 principal.UID,
		CurrentCoordinates:  strings.ReplaceAll(in.CurrentCoordinates, " ", ""),
		CurrentAddress:      in.CurrentAddress,
		DestinationLocation: in.DestinationLocation,
		PhoneNumber:         in.PhoneNumber,
		AdditionalNotes:     in.AdditionalNotes,
		Status:              models.StatusPending,
		Timestamp:           time.Now().UTC(),
	}
	if _, err := w.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to add request: %w", err)
	}
	w.logger.Info("Request posted", zap.String("requestID", req.ID), zap.String("uid", principal.UID))
	return req, nil
}

func (w *writer) ChangeRequestStatus(ctx context.Context, requestID string, expected, next models.RequestStatus) (*models.Request, error) {
	return w.lifecycle.ChangeRequestStatus(ctx, requestID, expected, next)
}

// SetRequestCaught is the legacy take/release toggle. It is limited to the
// accept and release moves, and db.ErrCaughtRejected reports anything else.
func (w *writer) SetRequestCaught(ctx context.Context, requestID string, caught bool) error {
	return w.backend.MarkRequestAsCaught(ctx, requestID, caught)
}

// TransferCoins debits the principal and credits toUID. The debit never
// drives the balance negative; if the credit fails the debit is reversed.
func (w *writer) TransferCoins(ctx context.Context, toUID string, amount int64) (int64, error) {
	principal, err := identity.Require(ctx)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if toUID == principal.UID {
		return 0, ErrSelfTransfer
	}

	from, err := w.users.GetByUID(ctx, principal.UID)
	if err != nil {
		return 0, userLookupError(principal.UID, err)
	}
	to, err := w.users.GetByUID(ctx, toUID)
	if err != nil {
		return 0, userLookupError(toUID, err)
	}

	balance, err := w.backend.IncrementIfSufficient(ctx, models.CollectionUsers, from.ID, "coins", -amount)
	if err != nil {
		if errors.Is(err, database.ErrInsufficient) {
			return 0, ErrInsufficientCoins
		}
		return 0, fmt.Errorf("failed to debit '%s': %w", principal.UID, err)
	}

	credited := w.backend.AddCoinsToUser(ctx, to.UID, amount)
	if credited == nil {
		if w.backend.AddCoinsToUser(ctx, principal.UID, amount) == nil {
			w.logger.Error("Failed to reverse debit after failed transfer",
				zap.String("from", principal.UID), zap.String("to", toUID), zap.Int64("amount", amount))
		}
		return 0, fmt.Errorf("failed to credit '%s'", toUID)
	}

	recordQuietly(ctx, w.ledger, w.logger, models.CoinTransaction{
		UserID: principal.UID, Amount: -amount, Type: models.TxTransferOut, Counterparty: to.UID, BalanceAfter: &balance,
	})
	recordQuietly(ctx, w.ledger, w.logger, models.CoinTransaction{
		UserID: to.UID, Amount: amount, Type: models.TxTransferIn, Counterparty: principal.UID, BalanceAfter: credited,
	})
	return balance, nil
}

// UploadProfileImage stores a base64 image, optionally given as a data URI,
// on the principal's user document.
func (w *writer) UploadProfileImage(ctx context.Context, image string) error {
	principal, err := identity.Require(ctx)
	if err != nil {
		return err
	}
	encoded := strings.TrimSpace(image)
	if i := strings.Index(encoded, ";base64,"); strings.HasPrefix(encoded, "data:") && i >= 0 {
		encoded = encoded[i+len(";base64,"):]
	}
	if encoded == "" {
		return ErrInvalidImage
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(raw) > w.settings.MaxProfileImageBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(raw), w.settings.MaxProfileImageBytes)
	}

	return w.updateOwnUser(ctx, principal.UID, map[string]interface{}{"ProfileImage": encoded})
}

// RegisterPushToken stores the device token used for push notifications.
func (w *writer) RegisterPushToken(ctx context.Context, token string) error {
	principal, err := identity.Require(ctx)
	if err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return &database.ValidationError{Field: "token", Message: "push token cannot be empty"}
	}
	return w.updateOwnUser(ctx, principal.UID, map[string]interface{}{"pushToken": token})
}

func (w *writer) updateOwnUser(ctx context.Context, uid string, fields map[string]interface{}) error {
	user, err := w.users.GetByUID(ctx, uid)
	if err != nil {
		return userLookupError(uid, err)
	}
	if err := w.users.UpdateFields(ctx, user.ID, fields); err != nil {
		return fmt.Errorf("failed to update user '%s': %w", uid, err)
	}
	return nil
}

func userLookupError(uid string, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, uid)
	}
	return fmt.Errorf("failed to get user '%s': %w", uid, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
