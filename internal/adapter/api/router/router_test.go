package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snappin/internal/adapter/api"
	"snappin/internal/adapter/api/handler"
	"snappin/internal/adapter/api/middleware"
	"snappin/internal/adapter/repository"
	"snappin/internal/infrastructure/docstore/memstore"
	"snappin/internal/infrastructure/firebase"
	"snappin/internal/infrastructure/ratelimit"
	"snappin/internal/infrastructure/storage"
	"snappin/internal/infrastructure/websocket"
	"snappin/internal/usecase"
	"snappin/pkg/errors"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type account struct {
	ID    string
	Token string
}

func newTestServer(t *testing.T, policies map[string]ratelimit.Policy) *echo.Echo {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	store := memstore.New()
	t.Cleanup(func() {
		cancel()
		store.Close()
	})

	userRepo := repository.NewUserRepository(store)
	chatRepo := repository.NewChatRepository(store)
	groupRepo := repository.NewGroupRepository(store)
	messageRepo := repository.NewMessageRepository(store)
	statusRepo := repository.NewStatusRepository(store)
	identities := firebase.NewDevIdentityProvider()

	presence := usecase.NewPresenceUseCase(userRepo)
	authUseCase := usecase.NewAuthUseCase(identities, presence)
	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo)
	groupUseCase := usecase.NewGroupUseCase(groupRepo)
	messageUseCase := usecase.NewMessageUseCase(messageRepo, repository.NewThreadRepository(store), 4)
	syncUseCase := usecase.NewSyncUseCase(messageRepo, chatRepo, groupRepo, userRepo, statusRepo, time.Hour)

	handler.Setup(handler.UseCases{
		Auth:    authUseCase,
		User:    usecase.NewUserUseCase(userRepo),
		Chat:    chatUseCase,
		Group:   groupUseCase,
		Message: messageUseCase,
		Status:  usecase.NewStatusUseCase(statusRepo, time.Hour),
		Media:   usecase.NewMediaUseCase(storage.NewMemoryObjectStore("test")),
	})

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)
	authMiddleware := middleware.NewAuthMiddleware(identities)
	frames := websocket.NewHandler(ctx, syncUseCase, messageUseCase, chatUseCase, groupUseCase)

	e := echo.New()
	e.Validator = api.NewValidator()
	Setup(e, authMiddleware, ratelimit.NewRateLimiter(policies),
		handler.NewHealthHandler(wsManager, "memory"),
		handler.NewWebSocketHandler(wsManager, frames, authMiddleware, authUseCase, nil))
	return e
}

func call(t *testing.T, e *echo.Echo, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func register(t *testing.T, e *echo.Echo, email, name string) account {
	t.Helper()
	rec, resp := call(t, e, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":        email,
		"password":     "secret123",
		"display_name": name,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	return account{ID: result.User.ID, Token: result.Token}
}

func TestHealthCheck(t *testing.T) {
	e := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestAuthRequired(t *testing.T) {
	e := newTestServer(t, nil)

	rec, resp := call(t, e, http.MethodGet, "/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.CodeUnauthorized, resp.Error.Code)

	rec, _ = call(t, e, http.MethodGet, "/v1/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	e := newTestServer(t, nil)

	rec, resp := call(t, e, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":    "not-an-email",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.CodeValidation, resp.Error.Code)

	register(t, e, "ann@example.com", "Ann")
	rec, resp = call(t, e, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":    "ann@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.CodeConflict, resp.Error.Code)
}

func TestLoginAndProfile(t *testing.T) {
	e := newTestServer(t, nil)
	ann := register(t, e, "ann@example.com", "Ann")

	rec, resp := call(t, e, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "ann@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, errors.CodeUnauthorized, resp.Error.Code)

	rec, resp = call(t, e, http.MethodGet, "/v1/users/me", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &me))
	assert.Equal(t, ann.ID, me.ID)
	assert.Equal(t, "Ann", me.Name)
	assert.Equal(t, "online", me.Status)

	rec, _ = call(t, e, http.MethodPost, "/v1/auth/logout", ann.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = call(t, e, http.MethodGet, "/v1/users/me", ann.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatRoundTrip(t *testing.T) {
	e := newTestServer(t, nil)
	ann := register(t, e, "ann@example.com", "Ann")
	bob := register(t, e, "bob@example.com", "Bob")
	eve := register(t, e, "eve@example.com", "Eve")

	rec, resp := call(t, e, http.MethodPost, "/v1/chats", ann.Token, map[string]string{"recipient_id": bob.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var chat struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &chat))
	assert.Equal(t, usecase.DeriveConversationID(ann.ID, bob.ID), chat.ID)

	rec, _ = call(t, e, http.MethodPost, "/v1/chats/"+chat.ID+"/messages", ann.Token, map[string]string{"text": "hi bob"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, resp = call(t, e, http.MethodGet, "/v1/chats", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var chats []struct {
		ID          string `json:"id"`
		LastMessage string `json:"last_message"`
		Unread      int    `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &chats))
	require.Len(t, chats, 1)
	assert.Equal(t, "hi bob", chats[0].LastMessage)
	assert.Equal(t, 1, chats[0].Unread)

	rec, _ = call(t, e, http.MethodPut, "/v1/chats/"+chat.ID+"/read", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, resp = call(t, e, http.MethodGet, "/v1/chats", bob.Token, nil)
	require.NoError(t, json.Unmarshal(resp.Data, &chats))
	assert.Equal(t, 0, chats[0].Unread)

	rec, resp = call(t, e, http.MethodGet, "/v1/chats/"+chat.ID+"/messages", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []struct {
		DocID string `json:"doc_id"`
		Text  string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "hi bob", messages[0].Text)

	rec, resp = call(t, e, http.MethodDelete, "/v1/chats/"+chat.ID+"/messages/"+messages[0].DocID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, errors.CodeForbidden, resp.Error.Code)

	rec, resp = call(t, e, http.MethodPost, "/v1/chats/"+chat.ID+"/messages", eve.Token, map[string]string{"text": "let me in"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, errors.CodeForbidden, resp.Error.Code)

	rec, resp = call(t, e, http.MethodPost, "/v1/chats/"+chat.ID+"/messages", ann.Token, map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeValidation, resp.Error.Code)
}

func TestGroupAdminRules(t *testing.T) {
	e := newTestServer(t, nil)
	ann := register(t, e, "ann@example.com", "Ann")
	bob := register(t, e, "bob@example.com", "Bob")
	cid := register(t, e, "cid@example.com", "Cid")

	rec, resp := call(t, e, http.MethodPost, "/v1/groups", ann.Token, map[string]interface{}{
		"name":    "Team",
		"members": []string{bob.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var group struct {
		ID      string   `json:"id"`
		Members []string `json:"members"`
		Admins  []string `json:"admins"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &group))
	assert.Equal(t, []string{ann.ID, bob.ID}, group.Members)
	assert.Equal(t, []string{ann.ID}, group.Admins)

	rec, resp = call(t, e, http.MethodPatch, "/v1/groups/"+group.ID, ann.Token, map[string]string{"createdBy": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeValidation, resp.Error.Code)

	rec, _ = call(t, e, http.MethodPatch, "/v1/groups/"+group.ID, bob.Token, map[string]string{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = call(t, e, http.MethodPatch, "/v1/groups/"+group.ID, ann.Token, map[string]string{"name": "Renamed"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = call(t, e, http.MethodPost, "/v1/groups/"+group.ID+"/members", ann.Token, map[string]string{"user_id": cid.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = call(t, e, http.MethodPost, "/v1/groups/"+group.ID+"/messages", cid.Token, map[string]string{"text": "hello all"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	_, resp = call(t, e, http.MethodGet, "/v1/groups", bob.Token, nil)
	var groups []struct {
		Name   string `json:"name"`
		Unread int    `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "Renamed", groups[0].Name)
	assert.Equal(t, 1, groups[0].Unread)
}

func TestSendMessageRateLimited(t *testing.T) {
	e := newTestServer(t, map[string]ratelimit.Policy{
		ratelimit.ActionSendMessage: ratelimit.PerMinute(2),
	})
	ann := register(t, e, "ann@example.com", "Ann")
	bob := register(t, e, "bob@example.com", "Bob")

	_, resp := call(t, e, http.MethodPost, "/v1/chats", ann.Token, map[string]string{"recipient_id": bob.ID})
	var chat struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &chat))

	for i := 0; i < 2; i++ {
		rec, _ := call(t, e, http.MethodPost, "/v1/chats/"+chat.ID+"/messages", ann.Token, map[string]string{"text": "spam"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, resp := call(t, e, http.MethodPost, "/v1/chats/"+chat.ID+"/messages", ann.Token, map[string]string{"text": "spam"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, errors.CodeTooManyRequests, resp.Error.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// other users have their own bucket
	rec, _ = call(t, e, http.MethodPost, "/v1/chats/"+chat.ID+"/messages", bob.Token, map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestStatusFeed(t *testing.T) {
	e := newTestServer(t, nil)
	ann := register(t, e, "ann@example.com", "Ann")
	bob := register(t, e, "bob@example.com", "Bob")

	rec, resp := call(t, e, http.MethodPost, "/v1/statuses", ann.Token, map[string]string{"text": "hello world"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var status struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &status))

	rec, _ = call(t, e, http.MethodPost, "/v1/statuses/"+status.ID+"/view", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, resp = call(t, e, http.MethodGet, "/v1/statuses", bob.Token, nil)
	var feed []struct {
		ID     string `json:"id"`
		Viewed bool   `json:"viewed"`
		Own    bool   `json:"own"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &feed))
	require.Len(t, feed, 1)
	assert.True(t, feed[0].Viewed)
	assert.False(t, feed[0].Own)

	rec, _ = call(t, e, http.MethodDelete, "/v1/statuses/"+status.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = call(t, e, http.MethodDelete, "/v1/statuses/"+status.ID, ann.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMediaUploadAndDelete(t *testing.T) {
	e := newTestServer(t, nil)
	ann := register(t, e, "ann@example.com", "Ann")
	bob := register(t, e, "bob@example.com", "Bob")
	eve := register(t, e, "eve@example.com", "Eve")

	_, resp := call(t, e, http.MethodPost, "/v1/chats", ann.Token, map[string]string{"recipient_id": bob.ID})
	var chat struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &chat))

	upload := func(token string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		require.NoError(t, w.WriteField("chat_id", chat.ID))
		require.NoError(t, w.WriteField("type", "document"))
		part, err := w.CreateFormFile("file", "notes.txt")
		require.NoError(t, err)
		_, err = part.Write([]byte("meeting notes"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/v1/media", &body)
		req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := upload(eve.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = upload(ann.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var uploaded apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	var object struct {
		URL  string `json:"url"`
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(uploaded.Data, &object))
	assert.Equal(t, "chats/"+chat.ID+"/media/notes.txt", object.Path)

	rec, _ = call(t, e, http.MethodDelete, "/v1/media", bob.Token, map[string]string{"chat_id": chat.ID, "url": object.URL})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, resp = call(t, e, http.MethodDelete, "/v1/media", bob.Token, map[string]string{"chat_id": chat.ID, "url": object.URL})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.CodeNotFound, resp.Error.Code)
}
