package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/griebenowschalk/manga-tracker/pkg/logger"
)

func okValidator(claims *Claims) TokenValidator {
	return func(ctx context.Context, token string) (*Claims, error) {
		if token != "good-token" {
			return nil, errors.New("bad token")
		}
		return claims, nil
	}
}

func identityEcho(t *testing.T, wantUserID, wantRole string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantUserID, UserIDFromContext(r.Context()))
		assert.Equal(t, wantRole, RoleFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_BearerHeader(t *testing.T) {
	handler := Auth(okValidator(&Claims{UserID: "u-1", Role: "USER"}), "mt_access")(identityEcho(t, "u-1", "USER"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_CookieFallback(t *testing.T) {
	handler := Auth(okValidator(&Claims{UserID: "u-1", Role: "USER"}), "mt_access")(identityEcho(t, "u-1", "USER"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "mt_access", Value: "good-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_HeaderTakesPrecedenceOverCookie(t *testing.T) {
	handler := Auth(okValidator(&Claims{UserID: "u-1", Role: "USER"}), "mt_access")(identityEcho(t, "u-1", "USER"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	req.AddCookie(&http.Cookie{Name: "mt_access", Value: "stale-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_MissingToken(t *testing.T) {
	handler := Auth(okValidator(nil), "mt_access")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"not authorized to access this route"}`, rec.Body.String())
}

func TestAuth_InvalidToken(t *testing.T) {
	handler := Auth(okValidator(nil), "mt_access")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_EnrichesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter("accounts", "info", &buf)

	chain := RequestLogger(base)(Auth(okValidator(&Claims{UserID: "u-9", Role: "USER"}), "mt_access")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Info("inside handler")
			w.WriteHeader(http.StatusOK)
		})))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	chain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "u-9", out["user_id"])
}

func TestRequireRole_Allowed(t *testing.T) {
	handler := RequireRole("ADMIN")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req = req.WithContext(WithIdentity(req.Context(), "u-1", "ADMIN"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_Forbidden(t *testing.T) {
	handler := RequireRole("ADMIN")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req = req.WithContext(WithIdentity(req.Context(), "u-1", "USER"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
