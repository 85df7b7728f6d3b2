package firebase

import (
	"context"
	"net/http"
	"time"

	"firebase.google.com/go/v4/auth"

	"snappin/internal/usecase"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

// FirebaseAuthClient signs users in through the Identity Toolkit REST API
// and verifies or revokes their ID tokens with the Admin SDK.
type FirebaseAuthClient struct {
	client  *auth.Client
	toolkit *identityToolkit
}

func NewFirebaseAuthClient(client *auth.Client, apiKey string) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client:  client,
		toolkit: newIdentityToolkit(apiKey, &http.Client{Timeout: 10 * time.Second}),
	}
}

func (f *FirebaseAuthClient) SignUp(ctx context.Context, email, password, displayName string) (*usecase.Credentials, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)

	user, err := f.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, errors.Conflict("Email already in use")
		}
		logger.Error("SignUp Error: Failed to create user in Firebase Auth: %v", err)
		return nil, errors.BadRequest("Failed to create account", err)
	}

	creds, err := f.toolkit.signInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	creds.Identity.UserID = user.UID
	if creds.Identity.DisplayName == "" {
		creds.Identity.DisplayName = displayName
	}
	return creds, nil
}

func (f *FirebaseAuthClient) SignIn(ctx context.Context, email, password string) (*usecase.Credentials, error) {
	return f.toolkit.signInWithPassword(ctx, email, password)
}

func (f *FirebaseAuthClient) SignInAnonymously(ctx context.Context) (*usecase.Credentials, error) {
	return f.toolkit.signUpAnonymous(ctx)
}

// SignOut revokes every refresh token of the user; outstanding ID tokens
// stay valid until they expire.
func (f *FirebaseAuthClient) SignOut(ctx context.Context, userID string) error {
	return f.client.RevokeRefreshTokens(ctx, userID)
}

func (f *FirebaseAuthClient) VerifyIDToken(ctx context.Context, idToken string) (*usecase.Identity, error) {
	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}
	return identityFromToken(token), nil
}

func identityFromToken(token *auth.Token) *usecase.Identity {
	identity := &usecase.Identity{UserID: token.UID}
	if name, ok := token.Claims["name"].(string); ok {
		identity.DisplayName = name
	}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		identity.AvatarURL = picture
	}
	identity.Anonymous = token.Firebase.SignInProvider == "anonymous"
	return identity
}
