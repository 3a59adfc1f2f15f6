package db

import (
	"context"

	"favorx-backend-go/internal/models"
	"favorx-backend-go/pkg/database"
)

// UserRepository defines the typed operations on the users collection.
type UserRepository interface {
	// GetByUID resolves a user by auth UID, falling back to the uid field for legacy documents.
	GetByUID(ctx context.Context, uid string) (*models.User, error)
	// FindByUIDField only matches documents whose uid field equals uid.
	FindByUIDField(ctx context.Context, uid string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, docID string, fields map[string]interface{}) error
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// RequestRepository defines the typed operations on the Open-Requests collection.
type RequestRepository interface {
	Create(ctx context.Context, req *models.Request) (string, error)
	GetByID(ctx context.Context, requestID string) (*models.Request, error)
	UpdateFields(ctx context.Context, requestID string, fields map[string]interface{}) error
	// UpdateFieldsIf writes fields only if check accepts the stored request,
	// and returns the request as it was just before the write.
	UpdateFieldsIf(ctx context.Context, requestID string, check func(*models.Request) error, fields map[string]interface{}) (*models.Request, error)
	List(ctx context.Context, filters ...database.Filter) ([]*models.Request, error)
}

// LedgerRepository defines the operations on the coin-transactions collection.
type LedgerRepository interface {
	Create(ctx context.Context, entry *models.CoinTransaction) (string, error)
	ListByUser(ctx context.Context, userID string) ([]*models.CoinTransaction, error)
}

// OrphanRepository tracks auth principals left without a user document.
type OrphanRepository interface {
	Record(ctx context.Context, orphan models.OrphanedPrincipal) error
	List(ctx context.Context) ([]*models.OrphanedPrincipal, error)
	IncrementAttempts(ctx context.Context, uid string) error
	Delete(ctx context.Context, uid string) error
}

// ResourceRepository reads static assets from the Resources collection.
type ResourceRepository interface {
	GetImage(ctx context.Context, resourceID string) (string, error)
}
