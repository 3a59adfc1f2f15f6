// Package identity wraps the authentication provider: creating and deleting
// principals, signing in, and verifying the ID tokens sent by clients.
package identity

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated     = errors.New("no authenticated principal")
	ErrInvalidToken        = errors.New("invalid or expired ID token")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailAlreadyExists  = errors.New("email already in use")
	ErrWeakPassword        = errors.New("password is too weak")
	ErrUnsupportedProvider = errors.New("unsupported sign-in provider")
	ErrPrincipalNotFound   = errors.New("principal not found")
)

// Federated sign-in providers accepted by SignInWithIdp.
const (
	ProviderGoogle   = "google.com"
	ProviderFacebook = "facebook.com"
)

// Principal is an authenticated user as reported by the auth provider.
type Principal struct {
	UID         string
	Email       string
	DisplayName string
}

// Session is the result of a successful sign-in.
type Session struct {
	Principal
	IDToken string
	// NewUser is set by federated sign-in when the provider account was just created.
	NewUser bool
}

// Provider is the auth backend.
type Provider interface {
	CreateUser(ctx context.Context, email, password, displayName string) (*Principal, error)
	DeleteUser(ctx context.Context, uid string) error
	VerifyIDToken(ctx context.Context, idToken string) (*Principal, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// SignInWithIdp exchanges a Google ID token or Facebook access token for a session.
	SignInWithIdp(ctx context.Context, providerID, credential string) (*Session, error)
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	if !ok || p == nil || p.UID == "" {
		return nil, false
	}
	return p, true
}

// UIDFromContext returns the principal's UID or "" when unauthenticated.
func UIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.UID
	}
	return ""
}

// Require returns the principal in ctx or ErrUnauthenticated.
func Require(ctx context.Context) (*Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return p, nil
}
