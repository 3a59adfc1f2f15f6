package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"favorx-backend-go/internal/db"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/models"
	"favorx-backend-go/pkg/database"
)

// reader implements the ReadService interface. It never mutates the data model.
type reader struct {
	backend  *db.Backend
	users    db.UserRepository
	requests db.RequestRepository
	provider identity.Provider
	logger   *zap.Logger
}

// NewReader creates a new ReadService.
func NewReader(backend *db.Backend, users db.UserRepository, requests db.RequestRepository, provider identity.Provider, logger *zap.Logger) ReadService {
	return &reader{
		backend:  backend,
		users:    users,
		requests: requests,
		provider: provider,
		logger:   logger,
	}
}

// ReadOpenRequests lists the requests posted by anyone other than the
// principal. Without a principal every request with an owner is listed.
func (r *reader) ReadOpenRequests(ctx context.Context) []*models.Request {
	uid := identity.UIDFromContext(ctx)
	reqs, err := r.requests.List(ctx, database.Filter{Field: "uid", Op: "!=", Value: uid})
	if err != nil {
		r.logger.Warn("Failed to read open requests", zap.String("uid", uid), zap.Error(err))
		return []*models.Request{}
	}
	return reqs
}

func (r *reader) ReadTakenRequestsByUser(ctx context.Context, uid string) []*models.Request {
	return decodeRequests(r.backend.GetRequestsTakenByUser(ctx, uid))
}

func (r *reader) ReadRequestsOpenedByUser(ctx context.Context, uid string) []*models.Request {
	return decodeRequests(r.backend.GetRequestsOpenedByUser(ctx, uid))
}

// ReadMyActiveRequests lists the principal's own unfinished requests, each
// with the public profile of its taker when it has one.
func (r *reader) ReadMyActiveRequests(ctx context.Context) []models.ActiveRequest {
	uid := identity.UIDFromContext(ctx)
	if uid == "" {
		return []models.ActiveRequest{}
	}

	own := r.ReadRequestsOpenedByUser(ctx, uid)
	takers := make(map[string]*models.PublicProfile)
	out := make([]models.ActiveRequest, 0, len(own))
	for _, req := range own {
		if req.Status == models.StatusFinished {
			continue
		}
		active := models.ActiveRequest{Request: *req}
		if req.TakenBy != nil && *req.TakenBy != "" {
			takerID := *req.TakenBy
			profile, seen := takers[takerID]
			if !seen {
				if u, err := r.users.GetByUID(ctx, takerID); err == nil {
					p := u.Public()
					profile = &p
				} else {
					r.logger.Debug("Taker profile unavailable", zap.String("takenBy", takerID), zap.Error(err))
				}
				takers[takerID] = profile
			}
			active.Taker = profile
		}
		out = append(out, active)
	}
	return out
}

func (r *reader) GetRequest(ctx context.Context, requestID string) (*models.Request, error) {
	doc := r.backend.GetRequestByID(ctx, requestID)
	if doc == nil {
		return nil, fmt.Errorf("%w: request with ID '%s'", ErrRequestNotFound, requestID)
	}
	return models.RequestFromDocument(doc), nil
}

// FindUserByInternalID returns the user whose uid field equals id together
// with the ID of the document holding it, or nil.
func (r *reader) FindUserByInternalID(ctx context.Context, id string) *UserRef {
	if id == "" {
		return nil
	}
	u, err := r.users.FindByUIDField(ctx, id)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			r.logger.Warn("Failed to look up user", zap.String("uid", id), zap.Error(err))
		}
		return nil
	}
	return &UserRef{DocID: u.ID, User: u}
}

func (r *reader) GetProfile(ctx context.Context, uid string) (*models.User, error) {
	if uid == "" {
		uid = identity.UIDFromContext(ctx)
	}
	if uid == "" {
		return nil, identity.ErrUnauthenticated
	}
	u, err := r.users.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, uid)
		}
		return nil, fmt.Errorf("failed to get user '%s': %w", uid, err)
	}
	return u, nil
}

// GetCoins returns the balance of uid, or of the principal when uid is empty.
func (r *reader) GetCoins(ctx context.Context, uid string) *int64 {
	return r.backend.GetUserCoins(ctx, uid)
}

func (r *reader) LoginWithPassword(ctx context.Context, email, password string) LoginResult {
	session, err := r.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		if !errors.Is(err, identity.ErrInvalidCredentials) {
			r.logger.Error("Password sign-in failed", zap.String("email", email), zap.Error(err))
			return LoginResult{Success: false, Message: "Login failed. Please try again later."}
		}
		return LoginResult{Success: false, Message: "Invalid email or password"}
	}
	return LoginResult{Success: true, Message: "Login successful", IDToken: session.IDToken, UID: session.UID}
}

func (r *reader) LoginWithFederated(ctx context.Context, provider, credential string) LoginResult {
	name := providerName(provider)
	session, err := r.provider.SignInWithIdp(ctx, provider, credential)
	if err != nil {
		if errors.Is(err, identity.ErrUnsupportedProvider) {
			return LoginResult{Success: false, Message: fmt.Sprintf("Unsupported sign-in provider %q", provider)}
		}
		r.logger.Warn("Federated sign-in failed", zap.String("provider", provider), zap.Error(err))
		return LoginResult{Success: false, Message: name + " Sign-In failed"}
	}
	return LoginResult{
		Success: true,
		Message: fmt.Sprintf("Welcome %s!", displayNameOr(session.DisplayName)),
		IDToken: session.IDToken,
		UID:     session.UID,
	}
}

func providerName(provider string) string {
	switch provider {
	case identity.ProviderGoogle:
		return "Google"
	case identity.ProviderFacebook:
		return "Facebook"
	}
	return provider
}

func displayNameOr(name string) string {
	if name == "" {
		return "User"
	}
	return name
}

func decodeRequests(docs []database.Document) []*models.Request {
	out := make([]*models.Request, 0, len(docs))
	for _, doc := range docs {
		out = append(out, models.RequestFromDocument(doc))
	}
	return out
}
