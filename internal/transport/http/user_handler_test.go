package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textcircle/backend/internal/chat/app"
	"github.com/textcircle/backend/internal/chat/domain"
	"github.com/textcircle/backend/internal/transport/middleware"
)

const userTestSecret = "user-test-secret"

func newUserServer(t *testing.T) (*httptest.Server, *stubUsers) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := &stubUsers{byID: make(map[uuid.UUID]*domain.User)}
	userService := app.NewUserService(users, nil, nil, app.TokenConfig{Secret: userTestSecret, ExpiryHours: 1}, logger)
	handler := NewUserHandler(userService, logger)

	r := chi.NewRouter()
	r.Group(func(protected chi.Router) {
		protected.Use(middleware.AuthMiddleware(userTestSecret, logger))
		protected.Route("/api/users", handler.RegisterRoutes)
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, users
}

func mintTestToken(t *testing.T, u *domain.User) string {
	t.Helper()
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   u.ID.String(),
		"name":  u.Name,
		"phone": u.PhoneNumber,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"iss":   "textcircle",
	})
	signed, err := token.SignedString([]byte(userTestSecret))
	require.NoError(t, err)
	return signed
}

func getWithToken(t *testing.T, rawURL, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestUserHandler_GetByID(t *testing.T) {
	server, users := newUserServer(t)
	alice := domain.NewUser(uuid.New(), "Alice", "+15551230001")
	require.NoError(t, users.Create(context.Background(), alice))
	token := mintTestToken(t, alice)

	resp := getWithToken(t, server.URL+"/api/users/"+alice.ID.String(), token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "Alice", got.Name)

	missing := getWithToken(t, server.URL+"/api/users/"+uuid.NewString(), token)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestUserHandler_GetByPhone(t *testing.T) {
	server, users := newUserServer(t)
	alice := domain.NewUser(uuid.New(), "Alice", "+15551230001")
	require.NoError(t, users.Create(context.Background(), alice))
	token := mintTestToken(t, alice)

	resp := getWithToken(t, server.URL+"/api/users/phone/"+url.PathEscape(alice.PhoneNumber), token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, alice.ID, got.ID)

	missing := getWithToken(t, server.URL+"/api/users/phone/"+url.PathEscape("+15559990000"), token)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestUserHandler_Me(t *testing.T) {
	server, users := newUserServer(t)
	alice := domain.NewUser(uuid.New(), "Alice", "+15551230001")
	require.NoError(t, users.Create(context.Background(), alice))

	resp := getWithToken(t, server.URL+"/api/users/me", mintTestToken(t, alice))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, alice.PhoneNumber, got.PhoneNumber)
}

func TestUserHandler_List(t *testing.T) {
	server, users := newUserServer(t)
	alice := domain.NewUser(uuid.New(), "Alice", "+15551230001")
	bob := domain.NewUser(uuid.New(), "Bob", "+15551230002")
	require.NoError(t, users.Create(context.Background(), alice))
	require.NoError(t, users.Create(context.Background(), bob))

	resp := getWithToken(t, server.URL+"/api/users/", mintTestToken(t, alice))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Len(t, got, 2)
}

func TestUserHandler_RequiresToken(t *testing.T) {
	server, users := newUserServer(t)
	alice := domain.NewUser(uuid.New(), "Alice", "+15551230001")
	require.NoError(t, users.Create(context.Background(), alice))

	resp := getWithToken(t, server.URL+"/api/users/"+alice.ID.String(), "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
