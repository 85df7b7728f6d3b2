package memstore

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"snappin/internal/infrastructure/docstore"
)

// listener delivers query results on its own goroutine. Results that pile
// up while a callback runs are coalesced into the newest one, so a slow
// consumer sees fewer emissions but never an out-of-order one.
type listener struct {
	query    docstore.Query
	onChange func([]*docstore.Document)
	onError  func(error)

	// sig identifies the last result handed to the delivery goroutine.
	// Guarded by Store.mu.
	sig    string
	primed bool

	mu      sync.Mutex
	pending []*docstore.Document
	dirty   bool
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newListener(q docstore.Query, onChange func([]*docstore.Document), onError func(error)) *listener {
	return &listener{
		query:    q,
		onChange: onChange,
		onError:  onError,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (l *listener) push(docs []*docstore.Document) {
	l.mu.Lock()
	l.pending = docs
	l.dirty = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *listener) run() {
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}

		l.mu.Lock()
		docs, dirty := l.pending, l.dirty
		l.pending, l.dirty = nil, false
		l.mu.Unlock()

		if !dirty {
			continue
		}
		select {
		case <-l.done:
			return
		default:
		}
		if l.onChange != nil {
			l.onChange(docs)
		}
	}
}

func (l *listener) stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

func signature(docs []*docstore.Document, versions []int64) string {
	var b strings.Builder
	for i, d := range docs {
		b.WriteString(d.Path)
		b.WriteByte('@')
		b.WriteString(strconv.FormatInt(versions[i], 10))
		b.WriteByte(';')
	}
	return b.String()
}

// Listen registers q and delivers its current result straight away.
func (s *Store) Listen(ctx context.Context, q docstore.Query, onChange func([]*docstore.Document), onError func(error)) docstore.Unsubscribe {
	l := newListener(q, onChange, onError)

	if err := ctx.Err(); err != nil {
		go l.fail(err)
		return func() {}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		go l.fail(docstore.ErrClosed)
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.listeners[id] = l
	s.refreshLocked(l)
	s.mu.Unlock()

	go l.run()

	unsubscribe := func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
		l.stop()
	}

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				unsubscribe()
			case <-l.done:
			}
		}()
	}

	var once sync.Once
	return func() {
		once.Do(unsubscribe)
	}
}

func (l *listener) fail(err error) {
	if l.onError != nil {
		l.onError(err)
	}
}

// refreshLocked re-evaluates the listener query and queues the result when
// it differs from the last one queued. Callers hold s.mu.
func (s *Store) refreshLocked(l *listener) {
	docs := s.evaluate(l.query)
	versions := make([]int64, len(docs))
	for i, d := range docs {
		versions[i] = s.docs[d.Path].version
	}
	sig := signature(docs, versions)
	if l.primed && sig == l.sig {
		return
	}
	l.primed = true
	l.sig = sig
	l.push(docs)
}

func (s *Store) notifyLocked(collections map[string]struct{}) {
	for _, l := range s.listeners {
		if _, ok := collections[l.query.Collection]; !ok {
			continue
		}
		s.refreshLocked(l)
	}
}
