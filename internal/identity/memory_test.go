package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProvider_PasswordFlow(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	created, err := p.CreateUser(ctx, "a@x.com", "Secret1!", "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, created.UID)

	_, err = p.CreateUser(ctx, "A@x.com", "Secret1!", "")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	_, err = p.SignInWithPassword(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := p.SignInWithPassword(ctx, "a@x.com", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, created.UID, sess.UID)

	principal, err := p.VerifyIDToken(ctx, sess.IDToken)
	require.NoError(t, err)
	assert.Equal(t, "Alice", principal.DisplayName)

	_, err = p.VerifyIDToken(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemoryProvider_DeleteInvalidatesTokens(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	created, err := p.CreateUser(ctx, "a@x.com", "Secret1!", "")
	require.NoError(t, err)
	token, ok := p.IssueToken(created.UID)
	require.True(t, ok)

	p.FailDeletes(true)
	assert.Error(t, p.DeleteUser(ctx, created.UID))
	p.FailDeletes(false)

	require.NoError(t, p.DeleteUser(ctx, created.UID))
	assert.False(t, p.Exists(created.UID))
	_, err = p.VerifyIDToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, p.DeleteUser(ctx, created.UID), ErrPrincipalNotFound)
}

func TestMemoryProvider_Federated(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	first, err := p.SignInWithIdp(ctx, ProviderGoogle, "sub-1|g@x.com|Gina")
	require.NoError(t, err)
	assert.True(t, first.NewUser)
	assert.Equal(t, "g@x.com", first.Email)

	again, err := p.SignInWithIdp(ctx, ProviderGoogle, "sub-1")
	require.NoError(t, err)
	assert.False(t, again.NewUser)
	assert.Equal(t, first.UID, again.UID)

	_, err = p.SignInWithIdp(ctx, "twitter.com", "x")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	_, err := Require(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, "", UIDFromContext(ctx))

	ctx = WithPrincipal(ctx, &Principal{UID: "u1"})
	p, err := Require(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UID)
	assert.Equal(t, "u1", UIDFromContext(ctx))
}
