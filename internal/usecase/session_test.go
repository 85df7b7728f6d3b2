package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snappin/internal/domain/entity"
	"snappin/pkg/errors"
)

type fakeProvider struct {
	mu         sync.Mutex
	accounts   map[string]string // email -> password
	ids        map[string]string // email -> uid
	next       int
	signedOut  []string
	signOutErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]string{}, ids: map[string]string{}}
}

func (p *fakeProvider) creds(uid, email, name string) *Credentials {
	return &Credentials{
		Identity: Identity{UserID: uid, Email: email, DisplayName: name},
		IDToken:  "token-" + uid,
	}
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password, displayName string) (*Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[email]; ok {
		return nil, errors.Conflict("Email already in use")
	}
	p.next++
	uid := fmt.Sprintf("uid%d", p.next)
	p.accounts[email] = password
	p.ids[email] = uid
	return p.creds(uid, email, displayName), nil
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pw, ok := p.accounts[email]; !ok || pw != password {
		return nil, errors.Unauthorized("Invalid credentials", nil)
	}
	return p.creds(p.ids[email], email, ""), nil
}

func (p *fakeProvider) SignInAnonymously(ctx context.Context) (*Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return p.creds(fmt.Sprintf("anon%d", p.next), "", ""), nil
}

func (p *fakeProvider) SignOut(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signedOut = append(p.signedOut, userID)
	return p.signOutErr
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	provider := newFakeProvider()
	session := NewSession(provider, env.presence)

	var (
		mu     sync.Mutex
		states []string
	)
	stop := session.OnAuthStateChanged(func(identity *Identity) {
		mu.Lock()
		defer mu.Unlock()
		if identity == nil {
			states = append(states, "signed-out")
			return
		}
		states = append(states, identity.UserID)
	})
	defer stop()

	creds, user, err := session.SignUp(ctx, "ann@example.com", "secret", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "token-uid1", creds.IDToken)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, entity.UserStatusOnline, user.Status)
	assert.Equal(t, "uid1", session.UserID())

	released := 0
	session.Subscriptions().Add("messages", func() { released++ })
	session.Subscriptions().Add("groups", func() { released++ })

	require.NoError(t, session.SignOut(ctx))
	assert.Equal(t, 2, released)
	assert.Equal(t, 0, session.Subscriptions().Len())
	assert.Equal(t, "", session.UserID())
	assert.Equal(t, []string{"uid1"}, provider.signedOut)

	stored, err := env.users.GetProfile(ctx, "uid1")
	require.NoError(t, err)
	assert.Equal(t, entity.UserStatusOffline, stored.Status)
	assert.NotNil(t, stored.LastSeen)

	_, user, err = session.SignIn(ctx, "ann@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name, "signing in keeps the stored profile name")
	assert.True(t, user.IsOnline())

	mu.Lock()
	assert.Equal(t, []string{"signed-out", "uid1", "signed-out", "uid1"}, states)
	mu.Unlock()
}

func TestSessionSignInFailure(t *testing.T) {
	env := newTestEnv(t)
	session := NewSession(newFakeProvider(), env.presence)

	_, _, err := session.SignIn(context.Background(), "nobody@example.com", "x")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
	assert.Nil(t, session.User())

	// signing out without an identity is a no-op
	assert.NoError(t, session.SignOut(context.Background()))
}

func TestAnonymousSessionGetsGeneratedName(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	session := NewSession(newFakeProvider(), env.presence, WithAnonymousNamer(func() string { return "User42" }))

	_, user, err := session.SignInAnonymously(ctx)
	require.NoError(t, err)
	assert.Equal(t, "User42", user.Name)
	assert.True(t, user.IsOnline())
}

func TestAnonymousNameFormat(t *testing.T) {
	for i := 0; i < 20; i++ {
		assert.Regexp(t, `^User\d{1,4}$`, anonymousName())
	}
}

func TestSessionSwitchingIdentityClearsPrevious(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	session := NewSession(newFakeProvider(), env.presence)

	_, err := session.Establish(ctx, Identity{UserID: "u1", DisplayName: "Ann"})
	require.NoError(t, err)
	released := false
	session.Subscriptions().Add("users", func() { released = true })

	_, err = session.Establish(ctx, Identity{UserID: "u2", DisplayName: "Bob"})
	require.NoError(t, err)
	assert.True(t, released)

	u1, err := env.users.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, u1.IsOnline())
}

func TestPresenceRequiresUserID(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.presence.OnIdentityEstablished(context.Background(), Identity{})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	// clearing an unknown user only logs
	env.presence.OnIdentityCleared(context.Background(), "ghost")
}

func TestAuthUseCase(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	provider := newFakeProvider()
	auth := NewAuthUseCase(provider, env.presence)

	res, err := auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, "bob", res.User.Name)
	assert.NotEmpty(t, res.Token)

	_, err = auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "pw123456"})
	assert.True(t, errors.Is(err, errors.CodeConflict))

	res, err = auth.Login(ctx, "bob@example.com", "pw123456")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, res.User.ID))
	bob, err := env.users.GetProfile(ctx, res.User.ID)
	require.NoError(t, err)
	assert.False(t, bob.IsOnline())

	assert.True(t, errors.Is(auth.Logout(ctx, ""), errors.CodeUnauthorized))

	anon, err := auth.Anonymous(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^User\d+$`, anon.User.Name)
}
