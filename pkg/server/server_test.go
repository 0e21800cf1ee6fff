package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsage/gridsage/pkg/advice"
	"github.com/gridsage/gridsage/pkg/consumption"
	"github.com/gridsage/gridsage/pkg/disagg"
	"github.com/gridsage/gridsage/pkg/provider"
	"github.com/gridsage/gridsage/pkg/storage/storagemock"
	"github.com/gridsage/gridsage/pkg/types"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

// newTestServer wires a Server around a mock database, the way main does
// with the real one.
func newTestServer(db *storagemock.MockDatabase) *Server {
	consumptionSvc := consumption.NewService(db)
	providers := provider.NewMap()
	providers.SetClient("mock", provider.NewMock())
	return &Server{
		providers:     providers,
		storage:       db,
		consumption:   consumptionSvc,
		disagg:        disagg.NewService(db),
		advice:        advice.NewService(db, consumptionSvc),
		encryptionKey: testEncryptionKey,
		serverName:    "gridsage-test",
	}
}

// asUser injects an authenticated user into the request context, standing in
// for the auth middleware.
func asUser(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, types.User{ID: userID, Email: userID + "@example.com"})
	return r.WithContext(ctx)
}

func TestHandleHealthz(t *testing.T) {
	srv := newTestServer(new(storagemock.MockDatabase))

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.handleHealthz(w, req)

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", w.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(new(storagemock.MockDatabase))

	h := srv.securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest("GET", "/api/settings", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	resp := w.Result()
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "same-origin", resp.Header.Get("Cross-Origin-Resource-Policy"))
}

func TestAuthMiddlewareBypass(t *testing.T) {
	srv := newTestServer(new(storagemock.MockDatabase))
	srv.bypassAuth = true

	var gotUser types.User
	h := srv.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = srv.getUser(r)
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest("GET", "/api/settings", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dev", gotUser.ID)
	assert.True(t, gotUser.Admin)
}

func TestAuthMiddlewareRejectsWithoutCookie(t *testing.T) {
	srv := newTestServer(new(storagemock.MockDatabase))

	h := srv.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))
	req := httptest.NewRequest("GET", "/api/settings", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEncryptDecryptCredentialsRoundTrip(t *testing.T) {
	srv := newTestServer(new(storagemock.MockDatabase))
	ctx := context.Background()

	creds := types.Credentials{Provider: &types.ProviderCredentials{
		AccountID: "acct-1",
		APIKey:    "secret",
	}}
	encrypted, err := srv.encryptCredentials(ctx, creds)
	require.NoError(t, err)
	require.NotEmpty(t, encrypted)

	got, err := srv.decryptCredentials(ctx, encrypted)
	require.NoError(t, err)
	assert.Equal(t, creds, got)
}

func TestDecryptCredentialsMalformed(t *testing.T) {
	srv := newTestServer(new(storagemock.MockDatabase))

	_, err := srv.decryptCredentials(context.Background(), []byte("tooshort"))
	assert.Error(t, err)
}
