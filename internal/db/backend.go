package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/models"
	"favorx-backend-go/pkg/database"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = database.ErrNotFound

// ErrCaughtRejected is returned when the caught toggle does not apply to the
// request's current state or the caller's role in it.
var ErrCaughtRejected = errors.New("caught toggle not allowed")

// Backend is the single point of contact with the document store. Read
// helpers degrade to nil or empty results and log; writes return errors.
// Operations that act "as the current user" take the principal from ctx.
type Backend struct {
	store  database.DocumentStore
	logger *zap.Logger
}

func NewBackend(store database.DocumentStore, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{store: store, logger: logger}
}

// Store exposes the underlying DocumentStore.
func (b *Backend) Store() database.DocumentStore { return b.store }

func validateCollection(collection string) error {
	if strings.TrimSpace(collection) == "" {
		return &database.ValidationError{Field: "collection", Message: "collection name cannot be empty"}
	}
	return nil
}

// AddDocument stores data in collection under a generated ID, stamping
// createdAt and updatedAt.
func (b *Backend) AddDocument(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	if err := validateCollection(collection); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", &database.ValidationError{Field: "data", Message: "document data must be a non-empty object"}
	}

	doc := stamped(data, true)
	id, err := b.store.Add(ctx, collection, doc)
	if err != nil {
		b.logger.Error("Error adding document", zap.String("collection", collection), zap.Error(err))
		return "", asPersistence("add", collection, err)
	}
	return id, nil
}

// CreateDocument is AddDocument with a caller-chosen ID.
func (b *Backend) CreateDocument(ctx context.Context, collection, docID string, data map[string]interface{}) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	if strings.TrimSpace(docID) == "" {
		return &database.ValidationError{Field: "id", Message: "document ID cannot be empty"}
	}
	if len(data) == 0 {
		return &database.ValidationError{Field: "data", Message: "document data must be a non-empty object"}
	}
	if err := b.store.Create(ctx, collection, docID, stamped(data, true)); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return err
		}
		return asPersistence("create", collection, err)
	}
	return nil
}

// QueryCollection returns the documents matching field <operator> value, or
// every document when any of the three filter arguments is missing.
func (b *Backend) QueryCollection(ctx context.Context, collection, field, operator string, value interface{}) ([]database.Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	var filters []database.Filter
	if field != "" && operator != "" && value != nil {
		if !database.ValidOperator(operator) {
			return nil, &database.ValidationError{Field: "operator", Message: fmt.Sprintf("unsupported operator %q", operator)}
		}
		filters = append(filters, database.Filter{Field: field, Op: operator, Value: value})
	}

	docs, err := b.store.Query(ctx, collection, filters...)
	if err != nil {
		b.logger.Error("Error querying collection", zap.String("collection", collection), zap.Error(err))
		return nil, asPersistence("query", collection, err)
	}
	return docs, nil
}

// Query runs a multi-filter query.
func (b *Backend) Query(ctx context.Context, collection string, filters ...database.Filter) ([]database.Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	for _, f := range filters {
		if !database.ValidOperator(f.Op) {
			return nil, &database.ValidationError{Field: "operator", Message: fmt.Sprintf("unsupported operator %q", f.Op)}
		}
	}
	docs, err := b.store.Query(ctx, collection, filters...)
	if err != nil {
		return nil, asPersistence("query", collection, err)
	}
	return docs, nil
}

// GetDocument returns the document or an error wrapping ErrNotFound.
func (b *Backend) GetDocument(ctx context.Context, collection, docID string) (database.Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if docID == "" {
		return nil, fmt.Errorf("document '' in %s: %w", collection, ErrNotFound)
	}
	doc, err := b.store.Get(ctx, collection, docID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, asPersistence("get", collection, err)
	}
	return doc, nil
}

// UpdateDocument changes fields of an existing document and refreshes updatedAt.
func (b *Backend) UpdateDocument(ctx context.Context, collection, docID string, fields map[string]interface{}) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	if len(fields) == 0 {
		return &database.ValidationError{Field: "data", Message: "update must change at least one field"}
	}
	if err := b.store.Update(ctx, collection, docID, stamped(fields, false)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return asPersistence("update", collection, err)
	}
	return nil
}

// UpdateDocumentIf is UpdateDocument guarded by check, which sees the
// document as stored at write time. Errors from check come back unwrapped.
func (b *Backend) UpdateDocumentIf(ctx context.Context, collection, docID string, check func(database.Document) error, fields map[string]interface{}) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	if len(fields) == 0 {
		return &database.ValidationError{Field: "data", Message: "update must change at least one field"}
	}
	var rejected error
	guard := func(doc database.Document) error {
		rejected = check(doc)
		return rejected
	}
	if err := b.store.UpdateIf(ctx, collection, docID, guard, stamped(fields, false)); err != nil {
		if rejected != nil || errors.Is(err, ErrNotFound) {
			return err
		}
		return asPersistence("conditional update", collection, err)
	}
	return nil
}

// SetDocument overwrites a document, or merges into it.
func (b *Backend) SetDocument(ctx context.Context, collection, docID string, data map[string]interface{}, merge bool) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	if err := b.store.Set(ctx, collection, docID, stamped(data, !merge), merge); err != nil {
		return asPersistence("set", collection, err)
	}
	return nil
}

func (b *Backend) DeleteDocument(ctx context.Context, collection, docID string) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	if err := b.store.Delete(ctx, collection, docID); err != nil {
		return asPersistence("delete", collection, err)
	}
	return nil
}

// IncrementIfSufficient applies delta to an integer field unless the result
// would be negative, in which case database.ErrInsufficient is returned.
func (b *Backend) IncrementIfSufficient(ctx context.Context, collection, docID, field string, delta int64) (int64, error) {
	v, err := b.store.IncrementIfSufficient(ctx, collection, docID, field, delta)
	if err != nil {
		if errors.Is(err, database.ErrInsufficient) || errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, asPersistence("conditional increment", collection, err)
	}
	return v, nil
}

// Watch streams snapshots of the query until ctx is done.
func (b *Backend) Watch(ctx context.Context, collection string, filters ...database.Filter) (<-chan database.Snapshot, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	return b.store.Watch(ctx, collection, filters...)
}

// resolveUserDoc finds the users document for uid: the document whose ID is
// uid, or failing that a legacy document whose uid field matches.
func (b *Backend) resolveUserDoc(ctx context.Context, uid string) (database.Document, error) {
	doc, err := b.store.Get(ctx, models.CollectionUsers, uid)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	docs, err := b.store.Query(ctx, models.CollectionUsers, database.Filter{Field: "uid", Op: "==", Value: uid})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("user '%s': %w", uid, ErrNotFound)
	}
	return docs[0], nil
}

func targetUID(ctx context.Context, userID string) string {
	if userID != "" {
		return userID
	}
	return identity.UIDFromContext(ctx)
}

// GetUserCoins returns the coin balance of userID, or of the principal when
// userID is empty. It returns nil when no user can be resolved.
func (b *Backend) GetUserCoins(ctx context.Context, userID string) *int64 {
	uid := targetUID(ctx, userID)
	if uid == "" {
		b.logger.Debug("GetUserCoins called without a user or principal")
		return nil
	}
	doc, err := b.resolveUserDoc(ctx, uid)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			b.logger.Warn("Failed to read user coins", zap.String("uid", uid), zap.Error(err))
		}
		return nil
	}
	coins := models.UserFromDocument(doc).Coins
	return &coins
}

// AddCoinsToUser atomically adds amount to the user's balance and returns the
// new balance, or nil on failure.
func (b *Backend) AddCoinsToUser(ctx context.Context, userID string, amount int64) *int64 {
	uid := targetUID(ctx, userID)
	if uid == "" {
		b.logger.Warn("AddCoinsToUser called without a user or principal")
		return nil
	}
	doc, err := b.resolveUserDoc(ctx, uid)
	if err != nil {
		b.logger.Warn("Cannot credit coins: user not resolved", zap.String("uid", uid), zap.Error(err))
		return nil
	}
	balance, err := b.store.Increment(ctx, models.CollectionUsers, doc.ID(), "coins", amount)
	if err != nil {
		b.logger.Error("Failed to increment coins", zap.String("uid", uid), zap.Int64("amount", amount), zap.Error(err))
		return nil
	}
	return &balance
}

// GetRequestByID returns the request document or nil when absent.
func (b *Backend) GetRequestByID(ctx context.Context, requestID string) database.Document {
	if requestID == "" {
		return nil
	}
	doc, err := b.store.Get(ctx, models.CollectionRequests, requestID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			b.logger.Warn("Failed to read request", zap.String("requestID", requestID), zap.Error(err))
		}
		return nil
	}
	return doc
}

// MarkRequestAsCaught assigns the request to the principal (flag true) or
// releases it (flag false). Only a pending request can be taken, never by its
// requester, and only its current taker can release an ongoing one; anything
// else returns ErrCaughtRejected. A missing request or principal is logged and
// ignored.
func (b *Backend) MarkRequestAsCaught(ctx context.Context, requestID string, flag bool) error {
	uid := identity.UIDFromContext(ctx)
	if uid == "" {
		b.logger.Warn("MarkRequestAsCaught: no authenticated principal", zap.String("requestID", requestID))
		return nil
	}
	if b.GetRequestByID(ctx, requestID) == nil {
		b.logger.Warn("MarkRequestAsCaught: request does not exist", zap.String("requestID", requestID))
		return nil
	}

	fields := map[string]interface{}{
		"takenBy": nil,
		"status":  string(models.StatusPending),
	}
	if flag {
		fields["takenBy"] = uid
		fields["status"] = string(models.StatusOngoing)
	}
	check := func(doc database.Document) error {
		req := models.RequestFromDocument(doc)
		switch {
		case flag && req.Status == models.StatusPending && req.UID != uid:
			return nil
		case !flag && req.Status == models.StatusOngoing && req.IsTakenBy(uid):
			return nil
		}
		return fmt.Errorf("%w: request '%s' is %s", ErrCaughtRejected, requestID, req.Status)
	}
	err := b.UpdateDocumentIf(ctx, models.CollectionRequests, requestID, check, fields)
	if errors.Is(err, ErrNotFound) {
		b.logger.Warn("MarkRequestAsCaught: request does not exist", zap.String("requestID", requestID))
		return nil
	}
	return err
}

// GetRequestsTakenByUser lists requests whose takenBy equals userID (or the principal).
func (b *Backend) GetRequestsTakenByUser(ctx context.Context, userID string) []database.Document {
	return b.requestsWhere(ctx, "takenBy", targetUID(ctx, userID))
}

// GetRequestsOpenedByUser lists requests whose uid equals userID (or the principal).
func (b *Backend) GetRequestsOpenedByUser(ctx context.Context, userID string) []database.Document {
	return b.requestsWhere(ctx, "uid", targetUID(ctx, userID))
}

func (b *Backend) requestsWhere(ctx context.Context, field, uid string) []database.Document {
	if uid == "" {
		return []database.Document{}
	}
	docs, err := b.QueryCollection(ctx, models.CollectionRequests, field, "==", uid)
	if err != nil {
		b.logger.Warn("Failed to list requests", zap.String("field", field), zap.String("uid", uid), zap.Error(err))
		return []database.Document{}
	}
	return docs
}

func stamped(data map[string]interface{}, creating bool) map[string]interface{} {
	out := make(map[string]interface{}, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	if creating {
		if _, ok := out["createdAt"]; !ok {
			out["createdAt"] = database.ServerTimestamp
		}
	}
	out["updatedAt"] = database.ServerTimestamp
	return out
}

func asPersistence(op, collection string, err error) error {
	if database.IsPersistence(err) || database.IsValidation(err) {
		return err
	}
	return &database.PersistenceError{Op: op, Collection: collection, Err: err}
}
