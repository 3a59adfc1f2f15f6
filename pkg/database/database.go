package database

import (
	"context"
	"errors"
	"fmt"
)

// Document is a loosely-typed document payload as stored in a collection.
// Documents returned by a DocumentStore always carry their identifier under IDField.
type Document map[string]interface{}

// IDField is the key under which a document's identifier is exposed.
const IDField = "id"

// ID returns the document identifier, or "" if absent.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// serverTimestamp is a sentinel value replaced by the store's notion of "now" on write.
type serverTimestamp struct{}

// ServerTimestamp may be used as a field value in any write; the store replaces it
// with the commit time (Firestore) or the current UTC time (memory).
var ServerTimestamp interface{} = serverTimestamp{}

// Filter is a single field comparison applied to a collection query.
type Filter struct {
	Field string
	Op    string
	Value interface{}
}

var supportedOperators = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"in": true, "not-in": true, "array-contains": true, "array-contains-any": true,
}

// ValidOperator reports whether op is a comparison operator the stores understand.
func ValidOperator(op string) bool {
	return supportedOperators[op]
}

// ChangeKind describes how a document changed between two watch snapshots.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeModified
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeRemoved:
		return "removed"
	}
	return "unknown"
}

// Change is a single document change within a Snapshot.
type Change struct {
	Kind     ChangeKind
	Document Document
}

// Snapshot is the full result set of a watched query plus the changes since the previous one.
type Snapshot struct {
	Documents []Document
	Changes   []Change
}

// DocumentStore defines the document database operations the application relies on.
type DocumentStore interface {
	Add(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	// Create writes a document with a caller-chosen ID; ErrAlreadyExists if taken.
	Create(ctx context.Context, collection, docID string, data map[string]interface{}) error
	Get(ctx context.Context, collection, docID string) (Document, error)
	// Set overwrites the document, or merges fields into it when merge is true.
	Set(ctx context.Context, collection, docID string, data map[string]interface{}, merge bool) error
	// Update changes the given fields of an existing document; ErrNotFound if absent.
	Update(ctx context.Context, collection, docID string, data map[string]interface{}) error
	Delete(ctx context.Context, collection, docID string) error
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	// Increment atomically adds delta to an integer field.
	Increment(ctx context.Context, collection, docID, field string, delta int64) (int64, error)
	// IncrementIfSufficient applies delta only if the result stays >= 0; ErrInsufficient otherwise.
	IncrementIfSufficient(ctx context.Context, collection, docID, field string, delta int64) (int64, error)
	// UpdateIf applies data only when check accepts the current document. The
	// check runs in the same transaction as the write and its error is returned as is.
	UpdateIf(ctx context.Context, collection, docID string, check func(Document) error, data map[string]interface{}) error
	// Watch streams a snapshot of the query's result set on every change until ctx is done.
	Watch(ctx context.Context, collection string, filters ...Filter) (<-chan Snapshot, error)
	Close() error
}

var (
	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the document ID is taken.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrInsufficient is returned by IncrementIfSufficient when the field would go negative.
	ErrInsufficient = errors.New("insufficient value for decrement")
)

// ValidationError reports bad caller input detected before any backend call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// PersistenceError wraps a rejected backend call.
type PersistenceError struct {
	Op         string
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s on collection %q failed: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func copyDocument(id string, data map[string]interface{}) Document {
	doc := make(Document, len(data)+1)
	for k, v := range data {
		doc[k] = v
	}
	doc[IDField] = id
	return doc
}
