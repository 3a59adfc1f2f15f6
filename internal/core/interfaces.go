package core

import (
	"context"

	"favorx-backend-go/internal/models"
)

// ReadService defines the read-only queries. List reads degrade to an empty
// result and log on backend failure.
type ReadService interface {
	ReadOpenRequests(ctx context.Context) []*models.Request
	ReadTakenRequestsByUser(ctx context.Context, uid string) []*models.Request
	ReadRequestsOpenedByUser(ctx context.Context, uid string) []*models.Request
	ReadMyActiveRequests(ctx context.Context) []models.ActiveRequest
	GetRequest(ctx context.Context, requestID string) (*models.Request, error)
	FindUserByInternalID(ctx context.Context, id string) *UserRef
	GetProfile(ctx context.Context, uid string) (*models.User, error)
	GetCoins(ctx context.Context, uid string) *int64
	LoginWithPassword(ctx context.Context, email, password string) LoginResult
	LoginWithFederated(ctx context.Context, provider, credential string) LoginResult
}

// WriteService defines every mutation of the data model.
type WriteService interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.User, error)
	SignInWithFederated(ctx context.Context, provider, credential string) (*FederatedResult, error)
	AddRequest(ctx context.Context, req models.CreateRequestRequest) (*models.Request, error)
	ChangeRequestStatus(ctx context.Context, requestID string, expected, next models.RequestStatus) (*models.Request, error)
	SetRequestCaught(ctx context.Context, requestID string, caught bool) error
	TransferCoins(ctx context.Context, toUID string, amount int64) (int64, error)
	UploadProfileImage(ctx context.Context, image string) error
	RegisterPushToken(ctx context.Context, token string) error
}

// LifecycleService moves requests through their status table.
type LifecycleService interface {
	ChangeRequestStatus(ctx context.Context, requestID string, expected, next models.RequestStatus) (*models.Request, error)
}

// BillingService handles simulated coin purchases and the subscription flag.
type BillingService interface {
	PurchaseCoins(ctx context.Context, req models.PurchaseRequest) (int64, error)
	Subscribe(ctx context.Context, code string) error
	Unsubscribe(ctx context.Context) error
}

// LedgerService records and lists coin movements.
type LedgerService interface {
	Record(ctx context.Context, entry models.CoinTransaction) error
	History(ctx context.Context, userID string) ([]*models.CoinTransaction, error)
}

// WatchService streams live views of the data a client is looking at.
// Every channel is closed when ctx is done or the underlying listener stops.
type WatchService interface {
	WatchBalance(ctx context.Context, uid string) (<-chan int64, error)
	WatchOwnRequests(ctx context.Context, uid string) (<-chan []*models.Request, error)
	WatchOpenRequests(ctx context.Context, uid string) (<-chan []*models.Request, error)
}

// ResourceService serves the static assets of the Resources collection.
type ResourceService interface {
	GetImage(ctx context.Context, resourceID string) (string, error)
}

// UserRef locates a user document so that it can be updated.
type UserRef struct {
	DocID string
	User  *models.User
}

// LoginResult is the outcome of a sign-in attempt.
type LoginResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	IDToken string `json:"idToken,omitempty"`
	UID     string `json:"uid,omitempty"`
}

// FederatedResult is a federated sign-in plus the user document behind it.
type FederatedResult struct {
	LoginResult
	User    *models.User `json:"user,omitempty"`
	Created bool         `json:"created"`
}
