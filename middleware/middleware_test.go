package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-storefront/auth"
	"go-storefront/logger"
	"go-storefront/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVerifier = auth.VerifierFunc(func(_ context.Context, bearer string) (auth.Identity, error) {
	if bearer == "good" {
		return auth.Identity{UID: "u1", Email: "asha@example.com"}, nil
	}
	return auth.Identity{}, auth.ErrInvalidIdentity
})

func newAuth() (*Auth, *utils.TokenIssuer) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	return NewAuth(issuer, testVerifier, logger.Discard()), issuer
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error.Code
}

func TestRequireAdmin(t *testing.T) {
	a, issuer := newAuth()
	var seen string
	handler := a.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := AdminFromContext(r.Context())
		require.True(t, ok)
		seen = claims.Email
		w.WriteHeader(http.StatusNoContent)
	}))

	adminToken, err := issuer.GenerateJWT("admin@example.com", utils.RoleAdmin)
	require.NoError(t, err)
	staffToken, err := issuer.GenerateJWT("staff@example.com", "staff")
	require.NoError(t, err)
	foreign, err := utils.NewTokenIssuer("other", time.Hour).GenerateJWT("admin@example.com", utils.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad signature", "Bearer " + foreign, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"not an admin", "Bearer " + staffToken, http.StatusForbidden, "FORBIDDEN"},
		{"admin", "Bearer " + adminToken, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, rec))
			}
		})
	}
	assert.Equal(t, "admin@example.com", seen)
}

func TestAdminTokenFromQueryOnlyForWebsocket(t *testing.T) {
	a, issuer := newAuth()
	token, err := issuer.GenerateJWT("admin@example.com", utils.RoleAdmin)
	require.NoError(t, err)
	handler := a.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders/feed?token="+token, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/orders/feed?token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCustomerAuth(t *testing.T) {
	a, _ := newAuth()
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := CustomerFromContext(r.Context())
		if ok {
			w.Header().Set("X-User", id.UID)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	call := func(h http.Handler, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	required := a.CustomerAuth(echo)
	assert.Equal(t, http.StatusUnauthorized, call(required, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(required, "Bearer bad").Code)
	rec := call(required, "Bearer good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u1", rec.Header().Get("X-User"))

	optional := a.OptionalCustomer(echo)
	rec = call(optional, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-User"))
	assert.Equal(t, http.StatusUnauthorized, call(optional, "Bearer bad").Code)
	assert.Equal(t, "u1", call(optional, "Bearer good").Header().Get("X-User"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/coupons/apply", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("1.1.1.1"))
	assert.Equal(t, http.StatusOK, call("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("1.1.1.1"))
	assert.Equal(t, http.StatusOK, call("2.2.2.2"), "limits are per client")
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("1.1.1.1")

	now = now.Add(time.Hour)
	rl.Allow("2.2.2.2")
	rl.Cleanup()

	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "2.2.2.2")
}
