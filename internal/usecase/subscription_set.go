package usecase

import (
	"sync"

	"snappin/internal/domain/repository"
)

// SubscriptionSet owns the live subscriptions of one session or connection
// so they can be released together.
type SubscriptionSet struct {
	mu     sync.Mutex
	subs   map[string]repository.Unsubscribe
	closed bool
}

func NewSubscriptionSet() *SubscriptionSet {
	return &SubscriptionSet{
		subs: make(map[string]repository.Unsubscribe),
	}
}

// Add tracks unsubscribe under key, releasing whatever was tracked there
// before. On a closed set the subscription is released straight away.
func (s *SubscriptionSet) Add(key string, unsubscribe repository.Unsubscribe) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsubscribe()
		return
	}
	previous := s.subs[key]
	s.subs[key] = unsubscribe
	s.mu.Unlock()

	if previous != nil {
		previous()
	}
}

// Remove releases the subscription under key and reports whether there
// was one.
func (s *SubscriptionSet) Remove(key string) bool {
	s.mu.Lock()
	unsubscribe, ok := s.subs[key]
	delete(s.subs, key)
	s.mu.Unlock()

	if ok {
		unsubscribe()
	}
	return ok
}

func (s *SubscriptionSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close releases every subscription. Later calls to Add release their
// argument immediately.
func (s *SubscriptionSet) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]repository.Unsubscribe)
	s.closed = true
	s.mu.Unlock()

	for _, unsubscribe := range subs {
		unsubscribe()
	}
}
