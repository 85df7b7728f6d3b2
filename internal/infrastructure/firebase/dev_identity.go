package firebase

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"strings"
	"sync"

	"github.com/google/uuid"

	"snappin/internal/usecase"
	"snappin/pkg/errors"
)

const devTokenPrefix = "dev."

type devAccount struct {
	identity usecase.Identity
	password [32]byte
}

// DevIdentityProvider is an in-process stand-in for Firebase Auth used with
// the memory store. Tokens are opaque and live until sign-out or restart.
type DevIdentityProvider struct {
	mu       sync.Mutex
	accounts map[string]*devAccount // by email
	tokens   map[string]usecase.Identity
}

func NewDevIdentityProvider() *DevIdentityProvider {
	return &DevIdentityProvider{
		accounts: make(map[string]*devAccount),
		tokens:   make(map[string]usecase.Identity),
	}
}

func (d *DevIdentityProvider) issue(identity usecase.Identity) *usecase.Credentials {
	token := devTokenPrefix + uuid.NewString()
	d.tokens[token] = identity
	return &usecase.Credentials{
		Identity:  identity,
		IDToken:   token,
		ExpiresIn: 3600,
	}
}

func (d *DevIdentityProvider) SignUp(ctx context.Context, email, password, displayName string) (*usecase.Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[email]; ok {
		return nil, errors.Conflict("Email already in use")
	}

	account := &devAccount{
		identity: usecase.Identity{
			UserID:      strings.ReplaceAll(uuid.NewString(), "-", "")[:28],
			DisplayName: displayName,
			Email:       email,
		},
		password: sha256.Sum256([]byte(password)),
	}
	d.accounts[email] = account
	return d.issue(account.identity), nil
}

func (d *DevIdentityProvider) SignIn(ctx context.Context, email, password string) (*usecase.Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	sum := sha256.Sum256([]byte(password))

	d.mu.Lock()
	defer d.mu.Unlock()
	account, ok := d.accounts[email]
	if !ok || subtle.ConstantTimeCompare(account.password[:], sum[:]) != 1 {
		return nil, errors.Unauthorized("Invalid credentials", nil)
	}
	return d.issue(account.identity), nil
}

func (d *DevIdentityProvider) SignInAnonymously(ctx context.Context) (*usecase.Credentials, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.issue(usecase.Identity{
		UserID:    strings.ReplaceAll(uuid.NewString(), "-", "")[:28],
		Anonymous: true,
	}), nil
}

// SignOut drops every token issued to userID.
func (d *DevIdentityProvider) SignOut(ctx context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for token, identity := range d.tokens {
		if identity.UserID == userID {
			delete(d.tokens, token)
		}
	}
	return nil
}

func (d *DevIdentityProvider) VerifyIDToken(ctx context.Context, idToken string) (*usecase.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	identity, ok := d.tokens[idToken]
	if !ok {
		return nil, errors.Unauthorized("Invalid or expired token", nil)
	}
	return &identity, nil
}
