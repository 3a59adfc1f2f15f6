package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryProvider is an in-process Provider. ID tokens are opaque random
// strings mapped back to the principal that signed in. Federated credentials
// are treated as "<subject>" or "<subject>|<email>|<display name>".
type MemoryProvider struct {
	mu         sync.RWMutex
	users      map[string]*memoryUser // by UID
	byEmail    map[string]string
	federated  map[string]string // provider|subject -> UID
	tokens     map[string]string // token -> UID
	failDelete bool
}

var errDeleteUnavailable = errors.New("auth backend unavailable")

type memoryUser struct {
	principal Principal
	password  string
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		users:     make(map[string]*memoryUser),
		byEmail:   make(map[string]string),
		federated: make(map[string]string),
		tokens:    make(map[string]string),
	}
}

// FailDeletes makes DeleteUser fail until called again with false.
func (m *MemoryProvider) FailDeletes(fail bool) {
	m.mu.Lock()
	m.failDelete = fail
	m.mu.Unlock()
}

// Exists reports whether uid is a known principal.
func (m *MemoryProvider) Exists(uid string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[uid]
	return ok
}

func (m *MemoryProvider) CreateUser(_ context.Context, email, password, displayName string) (*Principal, error) {
	if len(password) < 6 {
		return nil, ErrWeakPassword
	}
	key := strings.ToLower(email)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byEmail[key]; taken {
		return nil, ErrEmailAlreadyExists
	}
	p := Principal{UID: newUID(), Email: email, DisplayName: displayName}
	m.users[p.UID] = &memoryUser{principal: p, password: password}
	m.byEmail[key] = p.UID
	return &p, nil
}

func (m *MemoryProvider) DeleteUser(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete {
		return errDeleteUnavailable
	}
	u, ok := m.users[uid]
	if !ok {
		return ErrPrincipalNotFound
	}
	delete(m.byEmail, strings.ToLower(u.principal.Email))
	delete(m.users, uid)
	for tok, owner := range m.tokens {
		if owner == uid {
			delete(m.tokens, tok)
		}
	}
	return nil
}

func (m *MemoryProvider) VerifyIDToken(_ context.Context, idToken string) (*Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uid, ok := m.tokens[idToken]
	if !ok {
		return nil, ErrInvalidToken
	}
	u, ok := m.users[uid]
	if !ok {
		return nil, ErrInvalidToken
	}
	p := u.principal
	return &p, nil
}

func (m *MemoryProvider) SignInWithPassword(_ context.Context, email, password string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid, ok := m.byEmail[strings.ToLower(email)]
	if !ok || m.users[uid].password == "" || m.users[uid].password != password {
		return nil, ErrInvalidCredentials
	}
	return m.issueLocked(uid, false), nil
}

func (m *MemoryProvider) SignInWithIdp(_ context.Context, providerID, credential string) (*Session, error) {
	if providerID != ProviderGoogle && providerID != ProviderFacebook {
		return nil, ErrUnsupportedProvider
	}
	parts := strings.SplitN(credential, "|", 3)
	subject := strings.TrimSpace(parts[0])
	if subject == "" {
		return nil, ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := providerID + "|" + subject
	if uid, ok := m.federated[key]; ok {
		return m.issueLocked(uid, false), nil
	}

	p := Principal{UID: newUID(), Email: subject + "@" + providerID}
	if len(parts) > 1 && parts[1] != "" {
		p.Email = parts[1]
	}
	if len(parts) > 2 {
		p.DisplayName = parts[2]
	}
	m.users[p.UID] = &memoryUser{principal: p}
	m.federated[key] = p.UID
	if _, taken := m.byEmail[strings.ToLower(p.Email)]; !taken {
		m.byEmail[strings.ToLower(p.Email)] = p.UID
	}
	return m.issueLocked(p.UID, true), nil
}

// IssueToken signs the given principal in and returns a fresh ID token.
func (m *MemoryProvider) IssueToken(uid string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[uid]; !ok {
		return "", false
	}
	return m.issueLocked(uid, false).IDToken, true
}

func (m *MemoryProvider) issueLocked(uid string, isNew bool) *Session {
	token := uuid.NewString()
	m.tokens[token] = uid
	return &Session{Principal: m.users[uid].principal, IDToken: token, NewUser: isNew}
}

func newUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:28]
}
