// Package memstore is an in-process docstore.Store. It backs tests and the
// local development mode, and follows the same semantics as the Firestore
// backend: server timestamps, atomic field transforms, optimistic
// transactions and live query listeners.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"snappin/internal/infrastructure/docstore"
)

const maxTxAttempts = 5

type record struct {
	data       map[string]any
	version    int64
	createTime time.Time
	updateTime time.Time
}

type Store struct {
	mu        sync.Mutex
	docs      map[string]*record
	listeners map[int64]*listener
	nextID    int64
	seq       int64
	lastTS    time.Time
	clock     func() time.Time
	closed    bool
}

type Option func(*Store)

// WithClock replaces the wall clock used for server timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		docs:      make(map[string]*record),
		listeners: make(map[int64]*listener),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now returns a strictly increasing commit timestamp with microsecond
// precision. Callers hold s.mu.
func (s *Store) now() time.Time {
	t := s.clock().UTC().Truncate(time.Microsecond)
	if !t.After(s.lastTS) {
		t = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = t
	return t
}

func (s *Store) snapshot(path string, r *record) *docstore.Document {
	_, id := docstore.Parent(path)
	return &docstore.Document{
		ID:         id,
		Path:       path,
		Data:       docstore.DeepCopy(r.data).(map[string]any),
		CreateTime: r.createTime,
		UpdateTime: r.updateTime,
	}
}

func (s *Store) Get(ctx context.Context, docPath string) (*docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}

	r, ok := s.docs[docPath]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return s.snapshot(docPath, r), nil
}

func (s *Store) Create(ctx context.Context, docPath string, data map[string]any) error {
	return s.commit(ctx, []write{{kind: writeCreate, path: docPath, data: data}})
}

func (s *Store) Set(ctx context.Context, docPath string, data map[string]any, merge bool) error {
	return s.commit(ctx, []write{{kind: writeSet, path: docPath, data: data, merge: merge}})
}

func (s *Store) Update(ctx context.Context, docPath string, updates []docstore.Update) error {
	return s.commit(ctx, []write{{kind: writeUpdate, path: docPath, updates: updates}})
}

func (s *Store) Delete(ctx context.Context, docPath string) error {
	return s.commit(ctx, []write{{kind: writeDelete, path: docPath}})
}

func (s *Store) Add(ctx context.Context, collectionPath string, data map[string]any) (string, error) {
	id := newID()
	if err := s.Create(ctx, docstore.Join(collectionPath, id), data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	return s.evaluate(q), nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	listeners := make([]*listener, 0, len(s.listeners))
	for id, l := range s.listeners {
		listeners = append(listeners, l)
		delete(s.listeners, id)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l.stop()
	}
	return nil
}

// commit applies writes atomically and notifies affected listeners.
func (s *Store) commit(ctx context.Context, writes []write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrClosed
	}
	return s.applyLocked(writes)
}

func (s *Store) applyLocked(writes []write) error {
	now := s.now()

	staged := make(map[string]*record, len(writes))
	lookup := func(path string) *record {
		if r, ok := staged[path]; ok {
			return r
		}
		return s.docs[path]
	}

	for _, w := range writes {
		next, err := w.apply(lookup(w.path), now)
		if err != nil {
			return err
		}
		if next != nil {
			s.seq++
			next.version = s.seq
		}
		staged[w.path] = next
	}

	collections := make(map[string]struct{}, len(staged))
	for path, r := range staged {
		if r == nil {
			delete(s.docs, path)
		} else {
			s.docs[path] = r
		}
		col, _ := docstore.Parent(path)
		collections[col] = struct{}{}
	}

	s.notifyLocked(collections)
	return nil
}

// newID mimics Firestore auto ids: 20 alphanumeric characters.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
