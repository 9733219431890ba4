package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"egress/internal/config"
	"egress/internal/session"
)

func TestHealthz(t *testing.T) {
	r, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeadersPresent(t *testing.T) {
	r, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestMutatingRouteRequiresAuthWhenEnabled(t *testing.T) {
	sess, err := session.New()
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Security.EnableAuth = true
	cfg.Security.JWTSecret = "test-secret"
	r := NewRouter(sess, cfg, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/egress/update-cell", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMutatingRouteAcceptsValidBearerToken(t *testing.T) {
	sess, err := session.New()
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Security.EnableAuth = true
	cfg.Security.JWTSecret = "test-secret"
	r := NewRouter(sess, cfg, zap.NewNop())

	doJSON(t, r, http.MethodPost, "/api/v1/egress/process-file", singleRoomRequest())

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.RegisteredClaims{
		Subject:   "tester",
		ExpiresAt: jwtv5.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(cfg.Security.JWTSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/egress/apply-wall-buffer", strings.NewReader(`{"radius":1}`))
	req.Header.Set("Authorization", "Bearer "+signed)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}

func TestReadOnlyRoutesBypassAuth(t *testing.T) {
	sess, err := session.New()
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Security.EnableAuth = true
	cfg.Security.JWTSecret = "test-secret"
	r := NewRouter(sess, cfg, zap.NewNop())

	doJSON(t, r, http.MethodPost, "/api/v1/egress/process-file", singleRoomRequest())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/egress/detect-exits", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}
