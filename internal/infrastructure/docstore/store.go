// Package docstore defines the document-store operations the chat core is
// written against. Backends live in the firestore and memstore
// subpackages.
package docstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("docstore: document not found")
	ErrAlreadyExists  = errors.New("docstore: document already exists")
	ErrTxConflict     = errors.New("docstore: transaction aborted after conflicting writes")
	ErrReadAfterWrite = errors.New("docstore: transaction reads must happen before writes")
	ErrClosed         = errors.New("docstore: store is closed")
)

// Store is a schema-less document database with collection/document paths
// ("chats/u1_u2/messages/abc"). Values are plain Go values: nil, bool,
// int64, float64, string, time.Time, []any and map[string]any, plus the
// write sentinels declared in this package.
type Store interface {
	Get(ctx context.Context, docPath string) (*Document, error)
	// Create writes a new document and fails with ErrAlreadyExists when one
	// is present at docPath.
	Create(ctx context.Context, docPath string, data map[string]any) error
	Set(ctx context.Context, docPath string, data map[string]any, merge bool) error
	// Update modifies individual fields and fails with ErrNotFound when the
	// document does not exist.
	Update(ctx context.Context, docPath string, updates []Update) error
	Delete(ctx context.Context, docPath string) error
	// Add writes a new document under collectionPath with a generated id.
	Add(ctx context.Context, collectionPath string, data map[string]any) (string, error)
	Query(ctx context.Context, q Query) ([]*Document, error)
	// Listen delivers the full query result on registration and after every
	// change to it. Callbacks of one listener never run concurrently.
	Listen(ctx context.Context, q Query, onChange func([]*Document), onError func(error)) Unsubscribe
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// Tx is a read-modify-write unit. All reads must precede all writes.
type Tx interface {
	Get(docPath string) (*Document, error)
	Set(docPath string, data map[string]any, merge bool) error
	Update(docPath string, updates []Update) error
}

// Unsubscribe stops a listener. Calling it more than once is safe.
type Unsubscribe func()

type Document struct {
	ID         string
	Path       string
	Data       map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}

// FieldPath addresses a possibly nested field, e.g. {"unreadCount", uid}.
type FieldPath []string

func Field(parts ...string) FieldPath {
	return FieldPath(parts)
}

// ParseField splits a dotted path ("user.id").
func ParseField(dotted string) FieldPath {
	return FieldPath(strings.Split(dotted, "."))
}

func (f FieldPath) String() string {
	return strings.Join(f, ".")
}

type Update struct {
	Path  FieldPath
	Value any
}

// Set is shorthand for an Update of a top-level field.
func Set(field string, value any) Update {
	return Update{Path: Field(field), Value: value}
}

type serverTimestamp struct{}

// ServerTimestamp resolves to the commit time assigned by the store.
var ServerTimestamp any = serverTimestamp{}

func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

type deleteField struct{}

// DeleteField removes the field it is assigned to.
var DeleteField any = deleteField{}

func IsDeleteField(v any) bool {
	_, ok := v.(deleteField)
	return ok
}

// IncrementOp adds N to the current numeric value (missing counts as 0).
type IncrementOp struct {
	N int64
}

func Increment(n int64) any {
	return IncrementOp{N: n}
}

// ArrayUnionOp appends each element not already present in the array.
type ArrayUnionOp struct {
	Elems []any
}

func ArrayUnion(elems ...any) any {
	return ArrayUnionOp{Elems: elems}
}

// Parent returns the collection path and document id of docPath.
func Parent(docPath string) (collection, id string) {
	i := strings.LastIndex(docPath, "/")
	if i < 0 {
		return "", docPath
	}
	return docPath[:i], docPath[i+1:]
}

// Join builds a slash separated path from its segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}
