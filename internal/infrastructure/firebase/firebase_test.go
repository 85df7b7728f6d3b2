package firebase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snappin/pkg/errors"
)

func newToolkitServer(t *testing.T, handler http.HandlerFunc) *identityToolkit {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tk := newIdentityToolkit("test-key", srv.Client())
	tk.endpoint = srv.URL
	return tk
}

func TestSignInWithPassword(t *testing.T) {
	tk := newToolkitServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts:signInWithPassword", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ann@example.com", body["email"])
		assert.Equal(t, true, body["returnSecureToken"])

		json.NewEncoder(w).Encode(map[string]string{
			"localId":      "uid1",
			"email":        "ann@example.com",
			"displayName":  "Ann",
			"idToken":      "id-token",
			"refreshToken": "refresh-token",
			"expiresIn":    "3600",
		})
	})

	creds, err := tk.signInWithPassword(context.Background(), "ann@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "uid1", creds.Identity.UserID)
	assert.Equal(t, "Ann", creds.Identity.DisplayName)
	assert.Equal(t, "id-token", creds.IDToken)
	assert.Equal(t, int64(3600), creds.ExpiresIn)
	assert.False(t, creds.Identity.Anonymous)
}

func TestSignInErrors(t *testing.T) {
	tests := []struct {
		message string
		code    string
	}{
		{"INVALID_LOGIN_CREDENTIALS", errors.CodeUnauthorized},
		{"TOO_MANY_ATTEMPTS_TRY_LATER : Access to this account has been temporarily disabled", errors.CodeTooManyRequests},
		{"OPERATION_NOT_ALLOWED", errors.CodeForbidden},
		{"SOMETHING_NEW", errors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			tk := newToolkitServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": 400, "message": tt.message},
				})
			})
			_, err := tk.signInWithPassword(context.Background(), "a@b.c", "x")
			assert.Equal(t, tt.code, errors.CodeOf(err))
		})
	}
}

func TestSignUpAnonymous(t *testing.T) {
	tk := newToolkitServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts:signUp", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"localId": "anon1", "idToken": "t", "expiresIn": "3600"})
	})

	creds, err := tk.signUpAnonymous(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "anon1", creds.Identity.UserID)
	assert.True(t, creds.Identity.Anonymous)
}

func TestToolkitRequiresAPIKey(t *testing.T) {
	tk := newIdentityToolkit("", http.DefaultClient)
	_, err := tk.signUpAnonymous(context.Background())
	assert.True(t, errors.Is(err, errors.CodeInternal))
}

func TestIdentityFromToken(t *testing.T) {
	token := &auth.Token{
		UID:    "uid1",
		Claims: map[string]interface{}{"name": "Ann", "email": "ann@example.com", "picture": "https://x/a.png"},
	}
	token.Firebase.SignInProvider = "password"

	identity := identityFromToken(token)
	assert.Equal(t, "uid1", identity.UserID)
	assert.Equal(t, "Ann", identity.DisplayName)
	assert.Equal(t, "https://x/a.png", identity.AvatarURL)
	assert.False(t, identity.Anonymous)

	token.Firebase.SignInProvider = "anonymous"
	assert.True(t, identityFromToken(token).Anonymous)
}

func TestDevIdentityProvider(t *testing.T) {
	ctx := context.Background()
	dev := NewDevIdentityProvider()

	creds, err := dev.SignUp(ctx, "Ann@Example.com", "secret", "Ann")
	require.NoError(t, err)

	_, err = dev.SignUp(ctx, "ann@example.com", "other", "Ann")
	assert.True(t, errors.Is(err, errors.CodeConflict))

	identity, err := dev.VerifyIDToken(ctx, creds.IDToken)
	require.NoError(t, err)
	assert.Equal(t, creds.Identity.UserID, identity.UserID)

	_, err = dev.SignIn(ctx, "ann@example.com", "wrong")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	again, err := dev.SignIn(ctx, "ann@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, creds.Identity.UserID, again.Identity.UserID)

	require.NoError(t, dev.SignOut(ctx, identity.UserID))
	_, err = dev.VerifyIDToken(ctx, again.IDToken)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	anon, err := dev.SignInAnonymously(ctx)
	require.NoError(t, err)
	assert.True(t, anon.Identity.Anonymous)
}
