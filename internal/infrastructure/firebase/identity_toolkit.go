package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"snappin/internal/usecase"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

const identityToolkitEndpoint = "https://identitytoolkit.googleapis.com/v1"

// identityToolkit calls the password and anonymous sign-in endpoints the
// Admin SDK does not cover.
type identityToolkit struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

func newIdentityToolkit(apiKey string, client *http.Client) *identityToolkit {
	return &identityToolkit{
		apiKey:   apiKey,
		endpoint: identityToolkitEndpoint,
		http:     client,
	}
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type toolkitError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (t *identityToolkit) signInWithPassword(ctx context.Context, email, password string) (*usecase.Credentials, error) {
	var res signInResponse
	err := t.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.credentials(false), nil
}

func (t *identityToolkit) signUpAnonymous(ctx context.Context) (*usecase.Credentials, error) {
	var res signInResponse
	if err := t.post(ctx, "accounts:signUp", map[string]any{"returnSecureToken": true}, &res); err != nil {
		return nil, err
	}
	return res.credentials(true), nil
}

func (r signInResponse) credentials(anonymous bool) *usecase.Credentials {
	expires, _ := strconv.ParseInt(r.ExpiresIn, 10, 64)
	return &usecase.Credentials{
		Identity: usecase.Identity{
			UserID:      r.LocalID,
			DisplayName: r.DisplayName,
			Email:       r.Email,
			Anonymous:   anonymous,
		},
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    expires,
	}
}

func (t *identityToolkit) post(ctx context.Context, method string, body any, out any) error {
	if t.apiKey == "" {
		return errors.Internal("FIREBASE_API_KEY is not configured", nil)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Internal("Failed to encode sign-in request", err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", t.endpoint, method, url.QueryEscape(t.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Internal("Failed to build sign-in request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		logger.Error("Identity toolkit %s failed: %v", method, err)
		return errors.Transient("Identity provider unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var tkErr toolkitError
		json.NewDecoder(resp.Body).Decode(&tkErr)
		logger.Warn("Identity toolkit %s rejected: %d %s", method, resp.StatusCode, tkErr.Error.Message)
		return toolkitAppError(tkErr.Error.Message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Internal("Failed to decode sign-in response", err)
	}
	return nil
}

// toolkitAppError maps Identity Toolkit error messages such as
// "INVALID_LOGIN_CREDENTIALS" or "TOO_MANY_ATTEMPTS_TRY_LATER : ...".
func toolkitAppError(message string) error {
	code, _, _ := strings.Cut(message, " ")
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "USER_DISABLED":
		return errors.Unauthorized("Invalid credentials", fmt.Errorf("%s", message))
	case "EMAIL_EXISTS":
		return errors.Conflict("Email already in use")
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return errors.TooManyRequests("Too many sign-in attempts, try again later")
	case "OPERATION_NOT_ALLOWED", "ADMIN_ONLY_OPERATION":
		return errors.Forbidden("Sign-in method is disabled", fmt.Errorf("%s", message))
	}
	return errors.Internal("Sign-in failed", fmt.Errorf("%s", message))
}
