package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/station-labs/station/authz"
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/repository"
	"github.com/station-labs/station/storage"
)

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestPrincipalMiddleware_NoTokenIsAnonymous(t *testing.T) {
	db := storage.NewMemDB()
	resolver := newPrincipalResolver(PrincipalConfig{HMACSecret: "secret"}, repository.NewUserRepository(db))

	var captured authz.Caller
	handler := resolver.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = callerFromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, captured.Anonymous)
}

func TestPrincipalMiddleware_ValidTokenResolvesUser(t *testing.T) {
	db := storage.NewMemDB()
	users := repository.NewUserRepository(db)
	principal := model.Principal{0x42}
	u := &model.User{
		ID:         model.NewUUID(),
		Identities: map[string]model.Principal{principal.String(): principal},
		Name:       "jwt-user",
		Status:     model.UserStatusActive,
	}
	require.NoError(t, users.Put(u))

	resolver := newPrincipalResolver(PrincipalConfig{HMACSecret: "secret"}, users)
	token := signedToken(t, "secret", jwt.MapClaims{"sub": principal.String(), "exp": time.Now().Add(time.Hour).Unix()})

	var captured authz.Caller
	handler := resolver.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = callerFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.False(t, captured.Anonymous)
	require.Equal(t, u.ID, captured.User)
}

func TestPrincipalMiddleware_InvalidTokenIsUnauthorized(t *testing.T) {
	db := storage.NewMemDB()
	resolver := newPrincipalResolver(PrincipalConfig{HMACSecret: "secret"}, repository.NewUserRepository(db))
	handler := resolver.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run for an invalid token")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
