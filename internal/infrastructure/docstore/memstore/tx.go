package memstore

import (
	"context"

	"snappin/internal/infrastructure/docstore"
)

type tx struct {
	s      *Store
	reads  map[string]int64
	writes []write
}

func (t *tx) Get(docPath string) (*docstore.Document, error) {
	if len(t.writes) > 0 {
		return nil, docstore.ErrReadAfterWrite
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.closed {
		return nil, docstore.ErrClosed
	}

	r, ok := t.s.docs[docPath]
	if !ok {
		t.reads[docPath] = 0
		return nil, docstore.ErrNotFound
	}
	t.reads[docPath] = r.version
	return t.s.snapshot(docPath, r), nil
}

func (t *tx) Set(docPath string, data map[string]any, merge bool) error {
	t.writes = append(t.writes, write{kind: writeSet, path: docPath, data: data, merge: merge})
	return nil
}

func (t *tx) Update(docPath string, updates []docstore.Update) error {
	t.writes = append(t.writes, write{kind: writeUpdate, path: docPath, updates: updates})
	return nil
}

// RunTransaction runs fn and commits its writes only if none of the
// documents it read changed in the meantime. Conflicts rerun fn, up to
// maxTxAttempts times.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		t := &tx{s: s, reads: make(map[string]int64)}
		if err := fn(ctx, t); err != nil {
			return err
		}

		committed, err := s.tryCommit(t)
		if err != nil {
			return err
		}
		if committed {
			return nil
		}
	}
	return docstore.ErrTxConflict
}

func (s *Store) tryCommit(t *tx) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, docstore.ErrClosed
	}

	for path, version := range t.reads {
		var current int64
		if r, ok := s.docs[path]; ok {
			current = r.version
		}
		if current != version {
			return false, nil
		}
	}
	if len(t.writes) == 0 {
		return true, nil
	}
	return true, s.applyLocked(t.writes)
}
