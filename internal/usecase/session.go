package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

type AuthStateListener func(identity *Identity)

// Session tracks one signed-in identity. Establishing it drives presence
// online and makes sure the profile exists; clearing it drives presence
// offline first and then releases every subscription the session owns.
type Session struct {
	provider IdentityProvider
	presence *PresenceUseCase
	namer    func() string

	mu        sync.Mutex
	current   *Identity
	user      *entity.User
	subs      *SubscriptionSet
	listeners map[int]AuthStateListener
	nextID    int
}

type SessionOption func(*Session)

// WithAnonymousNamer replaces the generator of anonymous display names.
func WithAnonymousNamer(namer func() string) SessionOption {
	return func(s *Session) {
		s.namer = namer
	}
}

func NewSession(provider IdentityProvider, presence *PresenceUseCase, opts ...SessionOption) *Session {
	s := &Session{
		provider:  provider,
		presence:  presence,
		namer:     anonymousName,
		subs:      NewSubscriptionSet(),
		listeners: make(map[int]AuthStateListener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func anonymousName() string {
	return fmt.Sprintf("User%d", rand.IntN(10000))
}

func (s *Session) SignUp(ctx context.Context, email, password, displayName string) (*Credentials, *entity.User, error) {
	creds, err := s.provider.SignUp(ctx, email, password, displayName)
	if err != nil {
		return nil, nil, err
	}
	if creds.Identity.DisplayName == "" {
		creds.Identity.DisplayName = displayName
	}
	user, err := s.Establish(ctx, creds.Identity)
	return creds, user, err
}

func (s *Session) SignIn(ctx context.Context, email, password string) (*Credentials, *entity.User, error) {
	creds, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.Establish(ctx, creds.Identity)
	return creds, user, err
}

func (s *Session) SignInAnonymously(ctx context.Context) (*Credentials, *entity.User, error) {
	creds, err := s.provider.SignInAnonymously(ctx)
	if err != nil {
		return nil, nil, err
	}
	creds.Identity.Anonymous = true
	if creds.Identity.DisplayName == "" {
		creds.Identity.DisplayName = s.namer()
	}
	user, err := s.Establish(ctx, creds.Identity)
	return creds, user, err
}

// Establish adopts an identity that has already been authenticated, for
// example from a verified ID token. A different identity already held by
// the session is cleared first.
func (s *Session) Establish(ctx context.Context, identity Identity) (*entity.User, error) {
	s.mu.Lock()
	previous := s.current
	s.mu.Unlock()
	if previous != nil && previous.UserID != identity.UserID {
		s.Clear(ctx)
	}

	user, err := s.presence.OnIdentityEstablished(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	id := identity
	s.current = &id
	s.user = user
	s.mu.Unlock()

	s.notify(&id)
	return user, nil
}

// Clear ends the session locally: presence goes offline, then every
// subscription is released and listeners learn there is no identity.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	current := s.current
	subs := s.subs
	s.current = nil
	s.user = nil
	s.subs = NewSubscriptionSet()
	s.mu.Unlock()

	if current == nil {
		return
	}
	s.presence.OnIdentityCleared(ctx, current.UserID)
	subs.Close()
	s.notify(nil)
}

// SignOut clears the session and revokes it at the provider.
func (s *Session) SignOut(ctx context.Context) error {
	userID := s.UserID()
	if userID == "" {
		return nil
	}
	s.Clear(ctx)
	if err := s.provider.SignOut(ctx, userID); err != nil {
		logger.Warn("SignOut: provider sign-out for %s failed: %v", userID, err)
		return errors.Internal("Failed to sign out", err)
	}
	return nil
}

// OnAuthStateChanged calls listener with the current identity (nil when
// signed out) and again on every transition.
func (s *Session) OnAuthStateChanged(listener AuthStateListener) repository.Unsubscribe {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = listener
	current := s.current
	s.mu.Unlock()

	listener(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) notify(identity *Identity) {
	s.mu.Lock()
	listeners := make([]AuthStateListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(identity)
	}
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.UserID
}

func (s *Session) User() *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Subscriptions is the set released when the session is cleared.
func (s *Session) Subscriptions() *SubscriptionSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs
}
