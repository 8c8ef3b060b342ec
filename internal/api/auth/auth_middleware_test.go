package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kodbank/kodbank/internal/api"
)

func TestTokenFromRequest(t *testing.T) {
	t.Run("Cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: "cookie-token"})

		assert.Equal(t, "cookie-token", TokenFromRequest(req))
	})

	t.Run("BearerHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
		req.Header.Set("Authorization", "Bearer header-token")

		assert.Equal(t, "header-token", TokenFromRequest(req))
	})

	t.Run("CookieWinsOverHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: "cookie-token"})
		req.Header.Set("Authorization", "Bearer header-token")

		assert.Equal(t, "cookie-token", TokenFromRequest(req))
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		assert.Empty(t, TokenFromRequest(req))
	})

	t.Run("NoCredentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
		assert.Empty(t, TokenFromRequest(req))
	})
}

func TestAuthenticateMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	nextHandler := func(captured *string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, _ := GetUsernameFromContext(r.Context())
			*captured = username
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("ValidToken", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("VerifyRequestToken", mock.Anything, "good-token").Return("alice", nil).Once()

		var captured string
		handler := Authenticate(logger, svc)(nextHandler(&captured))

		req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: "good-token"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", captured)
		svc.AssertExpectations(t)
	})

	t.Run("MissingToken", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("VerifyRequestToken", mock.Anything, "").Return("", api.ErrTokenMissing).Once()

		var captured string
		handler := Authenticate(logger, svc)(nextHandler(&captured))

		req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body api.ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, api.CodeTokenMissing, body.Code)
		assert.Equal(t, "No token provided", body.Message)
		assert.Empty(t, captured)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("VerifyRequestToken", mock.Anything, "stale-token").Return("", api.ErrTokenExpired).Once()

		var captured string
		handler := Authenticate(logger, svc)(nextHandler(&captured))

		req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: "stale-token"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body api.ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, api.CodeTokenExpired, body.Code)
		assert.Empty(t, captured)
	})

	t.Run("RevokedToken", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("VerifyRequestToken", mock.Anything, "revoked-token").Return("", api.ErrTokenInvalid).Once()

		var captured string
		handler := Authenticate(logger, svc)(nextHandler(&captured))

		req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: "revoked-token"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body api.ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, api.CodeTokenInvalid, body.Code)
		assert.Empty(t, captured)
	})
}
