package usecase

import "context"

// IdentityProvider is the external authentication service.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password, displayName string) (*Credentials, error)
	SignIn(ctx context.Context, email, password string) (*Credentials, error)
	SignInAnonymously(ctx context.Context) (*Credentials, error)
	// SignOut revokes the refresh tokens issued to userID.
	SignOut(ctx context.Context, userID string) error
}

// TokenVerifier turns a bearer token into the identity it was issued for.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Identity, error)
}

type Credentials struct {
	Identity     Identity `json:"identity"`
	IDToken      string   `json:"id_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	ExpiresIn    int64    `json:"expires_in,omitempty"`
}
