package database

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process DocumentStore used by tests and by the
// BACKEND=memory run mode. Query semantics follow Firestore: inequality
// filters never match documents that lack the field.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	watchers    map[string]map[*memoryWatcher]struct{}
	now         func() time.Time
	closed      bool
}

type memoryWatcher struct {
	notify chan struct{}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
		watchers:    make(map[string]map[*memoryWatcher]struct{}),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	if err := m.Create(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (m *MemoryStore) Create(ctx context.Context, collection, docID string, data map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Op: "create", Collection: collection, Err: err}
	}
	m.mu.Lock()
	coll := m.collection(collection)
	if _, exists := coll[docID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("document '%s' in %s: %w", docID, collection, ErrAlreadyExists)
	}
	coll[docID] = m.resolve(data)
	m.mu.Unlock()

	m.signal(collection)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, docID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, &PersistenceError{Op: "get", Collection: collection, Err: err}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[collection][docID]
	if !ok {
		return nil, fmt.Errorf("document '%s' in %s: %w", docID, collection, ErrNotFound)
	}
	return copyDocument(docID, deepCopy(doc)), nil
}

func (m *MemoryStore) Set(ctx context.Context, collection, docID string, data map[string]interface{}, merge bool) error {
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Op: "set", Collection: collection, Err: err}
	}
	m.mu.Lock()
	coll := m.collection(collection)
	existing, ok := coll[docID]
	if merge && ok {
		for k, v := range m.resolve(data) {
			existing[k] = v
		}
	} else {
		coll[docID] = m.resolve(data)
	}
	m.mu.Unlock()

	m.signal(collection)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, collection, docID string, data map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Op: "update", Collection: collection, Err: err}
	}
	m.mu.Lock()
	existing, ok := m.collections[collection][docID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("document '%s' in %s: %w", docID, collection, ErrNotFound)
	}
	for k, v := range m.resolve(data) {
		existing[k] = v
	}
	m.mu.Unlock()

	m.signal(collection)
	return nil
}

// UpdateIf runs check and the write under the store lock.
func (m *MemoryStore) UpdateIf(ctx context.Context, collection, docID string, check func(Document) error, data map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Op: "conditional update", Collection: collection, Err: err}
	}
	m.mu.Lock()
	existing, ok := m.collections[collection][docID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("document '%s' in %s: %w", docID, collection, ErrNotFound)
	}
	if err := check(copyDocument(docID, deepCopy(existing))); err != nil {
		m.mu.Unlock()
		return err
	}
	for k, v := range m.resolve(data) {
		existing[k] = v
	}
	m.mu.Unlock()

	if len(data) > 0 {
		m.signal(collection)
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection, docID string) error {
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Op: "delete", Collection: collection, Err: err}
	}
	m.mu.Lock()
	_, existed := m.collections[collection][docID]
	delete(m.collections[collection], docID)
	m.mu.Unlock()

	if existed {
		m.signal(collection)
	}
	return nil
}

func (m *MemoryStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, &PersistenceError{Op: "query", Collection: collection, Err: err}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryLocked(collection, filters), nil
}

func (m *MemoryStore) Increment(ctx context.Context, collection, docID, field string, delta int64) (int64, error) {
	return m.increment(ctx, collection, docID, field, delta, false)
}

func (m *MemoryStore) IncrementIfSufficient(ctx context.Context, collection, docID, field string, delta int64) (int64, error) {
	return m.increment(ctx, collection, docID, field, delta, true)
}

func (m *MemoryStore) increment(ctx context.Context, collection, docID, field string, delta int64, guard bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &PersistenceError{Op: "increment", Collection: collection, Err: err}
	}
	m.mu.Lock()
	existing, ok := m.collections[collection][docID]
	if !ok {
		m.mu.Unlock()
		return 0, fmt.Errorf("document '%s' in %s: %w", docID, collection, ErrNotFound)
	}
	next := toInt64(existing[field]) + delta
	if guard && next < 0 {
		m.mu.Unlock()
		return 0, ErrInsufficient
	}
	existing[field] = next
	existing["updatedAt"] = m.now()
	m.mu.Unlock()

	m.signal(collection)
	return next, nil
}

// Watch emits the current result set immediately and then a new snapshot
// whenever a write changes it. Bursts of writes are coalesced.
func (m *MemoryStore) Watch(ctx context.Context, collection string, filters ...Filter) (<-chan Snapshot, error) {
	for _, f := range filters {
		if !ValidOperator(f.Op) {
			return nil, &ValidationError{Field: f.Field, Message: fmt.Sprintf("unsupported operator %q", f.Op)}
		}
	}

	w := &memoryWatcher{notify: make(chan struct{}, 1)}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, &PersistenceError{Op: "watch", Collection: collection, Err: fmt.Errorf("store closed")}
	}
	if m.watchers[collection] == nil {
		m.watchers[collection] = make(map[*memoryWatcher]struct{})
	}
	m.watchers[collection][w] = struct{}{}
	m.mu.Unlock()

	out := make(chan Snapshot, 1)
	w.notify <- struct{}{}

	go func() {
		defer close(out)
		defer func() {
			m.mu.Lock()
			delete(m.watchers[collection], w)
			m.mu.Unlock()
		}()

		var previous map[string]Document
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-w.notify:
				if !ok {
					return
				}
			}

			m.mu.RLock()
			docs := m.queryLocked(collection, filters)
			m.mu.RUnlock()

			current := make(map[string]Document, len(docs))
			for _, d := range docs {
				current[d.ID()] = d
			}
			changes := diff(previous, current)
			if previous != nil && len(changes) == 0 {
				continue
			}
			previous = current

			select {
			case out <- Snapshot{Documents: docs, Changes: changes}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close ends every open watch.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, set := range m.watchers {
		for w := range set {
			close(w.notify)
		}
	}
	m.watchers = make(map[string]map[*memoryWatcher]struct{})
	return nil
}

func (m *MemoryStore) collection(name string) map[string]Document {
	coll, ok := m.collections[name]
	if !ok {
		coll = make(map[string]Document)
		m.collections[name] = coll
	}
	return coll
}

func (m *MemoryStore) resolve(data map[string]interface{}) Document {
	doc := make(Document, len(data))
	for k, v := range data {
		if k == IDField {
			continue
		}
		if _, ok := v.(serverTimestamp); ok {
			v = m.now()
		}
		doc[k] = deepCopyValue(v)
	}
	return doc
}

func (m *MemoryStore) signal(collection string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for w := range m.watchers[collection] {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

func (m *MemoryStore) queryLocked(collection string, filters []Filter) []Document {
	ids := make([]string, 0, len(m.collections[collection]))
	for id := range m.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]Document, 0)
	for _, id := range ids {
		doc := m.collections[collection][id]
		if matchesAll(doc, filters) {
			docs = append(docs, copyDocument(id, deepCopy(doc)))
		}
	}
	return docs
}

func diff(previous, current map[string]Document) []Change {
	changes := make([]Change, 0)
	ids := make([]string, 0, len(current))
	for id := range current {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		old, ok := previous[id]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: ChangeAdded, Document: current[id]})
		case !reflect.DeepEqual(old, current[id]):
			changes = append(changes, Change{Kind: ChangeModified, Document: current[id]})
		}
	}
	for id, old := range previous {
		if _, ok := current[id]; !ok {
			changes = append(changes, Change{Kind: ChangeRemoved, Document: old})
		}
	}
	return changes
}

func matchesAll(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if !matches(doc, f) {
			return false
		}
	}
	return true
}

func matches(doc Document, f Filter) bool {
	value, present := doc[f.Field]
	if f.Field == IDField {
		value, present = doc.ID(), true
	}

	switch f.Op {
	case "==":
		return present && equalValues(value, f.Value)
	case "!=":
		return present && value != nil && !equalValues(value, f.Value)
	case "<", "<=", ">", ">=":
		if !present {
			return false
		}
		cmp, ok := compareValues(value, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case "<":
			return cmp < 0
		case "<=":
			return cmp <= 0
		case ">":
			return cmp > 0
		}
		return cmp >= 0
	case "in":
		return present && containsValue(f.Value, value)
	case "not-in":
		return present && value != nil && !containsValue(f.Value, value)
	case "array-contains":
		return present && containsValue(value, f.Value)
	case "array-contains-any":
		if !present {
			return false
		}
		for _, candidate := range toSlice(f.Value) {
			if containsValue(value, candidate) {
				return true
			}
		}
	}
	return false
}

func equalValues(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func compareValues(a, b interface{}) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	return 0, false
}

func containsValue(list interface{}, value interface{}) bool {
	for _, item := range toSlice(list) {
		if equalValues(item, value) {
			return true
		}
	}
	return false
}

func toSlice(v interface{}) []interface{} {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float32:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func deepCopy(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			out[k] = deepCopyValue(inner)
		}
		return out
	case Document:
		return map[string]interface{}(deepCopy(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, inner := range t {
			out[i] = deepCopyValue(inner)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}
