package database

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreService implements the DocumentStore interface on top of Cloud Firestore.
type FirestoreService struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreService wraps an already initialized Firestore client.
// The client is owned by the caller (see db.Clients) and closed through Close.
func NewFirestoreService(client *firestore.Client, logger *zap.Logger) (*FirestoreService, error) {
	if client == nil {
		return nil, errors.New("firestore client cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FirestoreService{client: client, logger: logger}, nil
}

// Add adds a new document with an auto-generated ID and returns that ID.
func (s *FirestoreService) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	docRef, _, err := s.client.Collection(collection).Add(ctx, toFirestoreValues(data))
	if err != nil {
		s.logger.Error("Error adding document", zap.String("collection", collection), zap.Error(err))
		return "", &PersistenceError{Op: "add", Collection: collection, Err: err}
	}
	return docRef.ID, nil
}

// Create writes a document under docID, failing if it already exists.
func (s *FirestoreService) Create(ctx context.Context, collection, docID string, data map[string]interface{}) error {
	_, err := s.client.Collection(collection).Doc(docID).Create(ctx, toFirestoreValues(data))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("document '%s' in %s: %w", docID, collection, ErrAlreadyExists)
		}
		return &PersistenceError{Op: "create", Collection: collection, Err: err}
	}
	return nil
}

// Get retrieves a single document.
func (s *FirestoreService) Get(ctx context.Context, collection, docID string) (Document, error) {
	snap, err := s.client.Collection(collection).Doc(docID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("document '%s' in %s: %w", docID, collection, ErrNotFound)
		}
		return nil, &PersistenceError{Op: "get", Collection: collection, Err: err}
	}
	return copyDocument(snap.Ref.ID, snap.Data()), nil
}

// Set overwrites a document, or merges the given fields into it when merge is true.
func (s *FirestoreService) Set(ctx context.Context, collection, docID string, data map[string]interface{}, merge bool) error {
	ref := s.client.Collection(collection).Doc(docID)
	var err error
	if merge {
		_, err = ref.Set(ctx, toFirestoreValues(data), firestore.MergeAll)
	} else {
		_, err = ref.Set(ctx, toFirestoreValues(data))
	}
	if err != nil {
		return &PersistenceError{Op: "set", Collection: collection, Err: err}
	}
	return nil
}

// Update modifies the listed fields of an existing document.
// Unlike Set with MergeAll, this fails with ErrNotFound when the document is missing.
func (s *FirestoreService) Update(ctx context.Context, collection, docID string, data map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}
	_, err := s.client.Collection(collection).Doc(docID).Update(ctx, toUpdates(data))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("document '%s' in %s: %w", docID, collection, ErrNotFound)
		}
		return &PersistenceError{Op: "update", Collection: collection, Err: err}
	}
	return nil
}

// Delete removes a document. Deleting a missing document is not an error in Firestore.
func (s *FirestoreService) Delete(ctx context.Context, collection, docID string) error {
	_, err := s.client.Collection(collection).Doc(docID).Delete(ctx)
	if err != nil {
		return &PersistenceError{Op: "delete", Collection: collection, Err: err}
	}
	return nil
}

// Query returns every document of the collection matching all filters.
func (s *FirestoreService) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	iter := s.buildQuery(collection, filters).Documents(ctx)
	defer iter.Stop()

	docs := make([]Document, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &PersistenceError{Op: "query", Collection: collection, Err: err}
		}
		docs = append(docs, copyDocument(snap.Ref.ID, snap.Data()))
	}
	return docs, nil
}

// Increment applies a server-side atomic increment and returns the resulting value.
// The returned value is read back after the write and may already include concurrent changes.
func (s *FirestoreService) Increment(ctx context.Context, collection, docID, field string, delta int64) (int64, error) {
	ref := s.client.Collection(collection).Doc(docID)
	_, err := ref.Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{field}, Value: firestore.Increment(delta)},
		{FieldPath: firestore.FieldPath{"updatedAt"}, Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, fmt.Errorf("document '%s' in %s: %w", docID, collection, ErrNotFound)
		}
		return 0, &PersistenceError{Op: "increment", Collection: collection, Err: err}
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return 0, &PersistenceError{Op: "increment", Collection: collection, Err: err}
	}
	return toInt64(snap.Data()[field]), nil
}

// IncrementIfSufficient reads and writes the field inside a transaction so the
// result can never drop below zero.
func (s *FirestoreService) IncrementIfSufficient(ctx context.Context, collection, docID, field string, delta int64) (int64, error) {
	ref := s.client.Collection(collection).Doc(docID)
	var result int64
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		current := toInt64(snap.Data()[field])
		if current+delta < 0 {
			return ErrInsufficient
		}
		result = current + delta
		return tx.Update(ref, []firestore.Update{
			{FieldPath: firestore.FieldPath{field}, Value: result},
			{FieldPath: firestore.FieldPath{"updatedAt"}, Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficient):
			return 0, err
		case status.Code(err) == codes.NotFound:
			return 0, fmt.Errorf("document '%s' in %s: %w", docID, collection, ErrNotFound)
		}
		return 0, &PersistenceError{Op: "conditional increment", Collection: collection, Err: err}
	}
	return result, nil
}

// UpdateIf reads the document inside a transaction and writes data only if
// check returns nil. Firestore may retry the transaction, so check can run
// more than once.
func (s *FirestoreService) UpdateIf(ctx context.Context, collection, docID string, check func(Document) error, data map[string]interface{}) error {
	ref := s.client.Collection(collection).Doc(docID)
	var rejected error
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		rejected = nil
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if rejected = check(copyDocument(snap.Ref.ID, snap.Data())); rejected != nil {
			return rejected
		}
		if len(data) == 0 {
			return nil
		}
		return tx.Update(ref, toUpdates(data))
	})
	if err != nil {
		switch {
		case rejected != nil:
			return rejected
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("document '%s' in %s: %w", docID, collection, ErrNotFound)
		}
		return &PersistenceError{Op: "conditional update", Collection: collection, Err: err}
	}
	return nil
}

// Watch attaches a snapshot listener to the query. The channel is closed when ctx
// is cancelled or the listener fails.
func (s *FirestoreService) Watch(ctx context.Context, collection string, filters ...Filter) (<-chan Snapshot, error) {
	it := s.buildQuery(collection, filters).Snapshots(ctx)
	out := make(chan Snapshot, 1)

	go func() {
		defer close(out)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					s.logger.Warn("Snapshot listener stopped", zap.String("collection", collection), zap.Error(err))
				}
				return
			}

			docs := make([]Document, 0, qs.Size)
			all, err := qs.Documents.GetAll()
			if err != nil {
				s.logger.Warn("Failed to read snapshot documents", zap.String("collection", collection), zap.Error(err))
				return
			}
			for _, d := range all {
				docs = append(docs, copyDocument(d.Ref.ID, d.Data()))
			}

			changes := make([]Change, 0, len(qs.Changes))
			for _, ch := range qs.Changes {
				changes = append(changes, Change{
					Kind:     fromFirestoreKind(ch.Kind),
					Document: copyDocument(ch.Doc.Ref.ID, ch.Doc.Data()),
				})
			}

			select {
			case out <- Snapshot{Documents: docs, Changes: changes}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close is a no-op: the underlying client belongs to db.Clients.
func (s *FirestoreService) Close() error {
	return nil
}

func (s *FirestoreService) buildQuery(collection string, filters []Filter) firestore.Query {
	q := s.client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Field, f.Op, f.Value)
	}
	return q
}

func fromFirestoreKind(k firestore.DocumentChangeKind) ChangeKind {
	switch k {
	case firestore.DocumentAdded:
		return ChangeAdded
	case firestore.DocumentRemoved:
		return ChangeRemoved
	}
	return ChangeModified
}

func toFirestoreValues(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if k == IDField {
			continue
		}
		if _, ok := v.(serverTimestamp); ok {
			v = firestore.ServerTimestamp
		}
		out[k] = v
	}
	return out
}

func toUpdates(data map[string]interface{}) []firestore.Update {
	values := toFirestoreValues(data)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: values[k]})
	}
	return updates
}
