package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// FirebaseProvider implements Provider with the Firebase Admin SDK for user
// management and token verification, and the Identity Toolkit REST API for
// client-style sign-in.
type FirebaseProvider struct {
	auth    *auth.Client
	toolkit *identitytoolkit.Service
	logger  *zap.Logger
}

// NewFirebaseProvider builds the Identity Toolkit service from the project's
// web API key and pairs it with an existing Auth client.
func NewFirebaseProvider(ctx context.Context, authClient *auth.Client, webAPIKey string, logger *zap.Logger) (*FirebaseProvider, error) {
	if authClient == nil {
		return nil, errors.New("firebase auth client cannot be nil")
	}
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(webAPIKey))
	if err != nil {
		return nil, fmt.Errorf("identitytoolkit.NewService: %w", err)
	}
	return &FirebaseProvider{auth: authClient, toolkit: svc, logger: logger}, nil
}

func (p *FirebaseProvider) CreateUser(ctx context.Context, email, password, displayName string) (*Principal, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	if displayName != "" {
		params = params.DisplayName(displayName)
	}
	rec, err := p.auth.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, ErrEmailAlreadyExists
		}
		if strings.Contains(strings.ToLower(err.Error()), "password") {
			return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
		}
		return nil, fmt.Errorf("failed to create auth user: %w", err)
	}
	return &Principal{UID: rec.UID, Email: rec.Email, DisplayName: rec.DisplayName}, nil
}

func (p *FirebaseProvider) DeleteUser(ctx context.Context, uid string) error {
	if err := p.auth.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return ErrPrincipalNotFound
		}
		return fmt.Errorf("failed to delete auth user '%s': %w", uid, err)
	}
	return nil
}

func (p *FirebaseProvider) VerifyIDToken(ctx context.Context, idToken string) (*Principal, error) {
	token, err := p.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		p.logger.Debug("ID token verification failed", zap.Error(err))
		return nil, ErrInvalidToken
	}
	principal := &Principal{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		principal.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		principal.DisplayName = name
	}
	return principal, nil
}

func (p *FirebaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	resp, err := p.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapToolkitError(err)
	}
	return &Session{
		Principal: Principal{UID: resp.LocalId, Email: resp.Email, DisplayName: resp.DisplayName},
		IDToken:   resp.IdToken,
	}, nil
}

func (p *FirebaseProvider) SignInWithIdp(ctx context.Context, providerID, credential string) (*Session, error) {
	form := url.Values{}
	form.Set("providerId", providerID)
	switch providerID {
	case ProviderGoogle:
		form.Set("id_token", credential)
	case ProviderFacebook:
		form.Set("access_token", credential)
	default:
		return nil, ErrUnsupportedProvider
	}

	resp, err := p.toolkit.Relyingparty.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          form.Encode(),
		RequestUri:        "http://localhost",
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapToolkitError(err)
	}
	if resp.ErrorMessage != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, resp.ErrorMessage)
	}

	name := resp.DisplayName
	if name == "" {
		name = resp.FullName
	}
	return &Session{
		Principal: Principal{UID: resp.LocalId, Email: resp.Email, DisplayName: name},
		IDToken:   resp.IdToken,
		NewUser:   resp.IsNewUser,
	}, nil
}

// mapToolkitError converts the REST error codes (EMAIL_NOT_FOUND,
// INVALID_PASSWORD, INVALID_LOGIN_CREDENTIALS, ...) into package errors.
func mapToolkitError(err error) error {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return fmt.Errorf("identity toolkit request failed: %w", err)
	}
	switch {
	case strings.HasPrefix(gErr.Message, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(gErr.Message, "INVALID_PASSWORD"),
		strings.HasPrefix(gErr.Message, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(gErr.Message, "INVALID_IDP_RESPONSE"),
		strings.HasPrefix(gErr.Message, "USER_DISABLED"):
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, gErr.Message)
	case strings.HasPrefix(gErr.Message, "EMAIL_EXISTS"):
		return ErrEmailAlreadyExists
	}
	return fmt.Errorf("identity toolkit request failed: %w", err)
}
