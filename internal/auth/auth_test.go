package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/nutriplan/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:           "local",
		AuthMode:      config.AuthModeJWT,
		AuthRequired:  true,
		JWTSecret:     "test-secret",
		JWTIssuer:     "nutriplan",
		JWTTTLMinutes: 60,
	}
}

func TestIssueAndVerify(t *testing.T) {
	svc := NewService(testConfig())

	tok, err := svc.IssueToken("nutritionist-1", 0)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, int64(3600), tok.ExpiresIn)

	sub, err := svc.VerifyJWT(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "nutritionist-1", sub)

	_, err = svc.IssueToken("  ", 0)
	assert.ErrorIs(t, err, ErrInvalidSubject)
}

func TestVerifyRejects(t *testing.T) {
	cfg := testConfig()
	svc := NewService(cfg)
	tok, err := svc.IssueToken("u1", time.Minute)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := NewService(cfg)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.VerifyJWT(tok.AccessToken)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := *cfg
		other.JWTSecret = "other"
		_, err := NewService(&other).VerifyJWT(tok.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := *cfg
		other.JWTIssuer = "someone-else"
		_, err := NewService(&other).VerifyJWT(tok.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.VerifyJWT("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestMiddlewareRequireAuth(t *testing.T) {
	cfg := testConfig()
	svc := NewService(cfg)
	mw := NewMiddleware(cfg, svc, zerolog.Nop())

	var owner string
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner = OwnerUserID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/profiles", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DefaultUserID, owner)

	tok, err := svc.IssueToken("u42", 0)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/v1/profiles", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u42", owner)
}

func TestMiddlewareOptionalAndDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRequired = false
	mw := NewMiddleware(cfg, NewService(cfg), zerolog.Nop())
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/profiles", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles", nil)
	req.Header.Set("Authorization", "Bearer broken")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cfg.AuthMode = config.AuthModeNone
	h = NewMiddleware(cfg, NewService(cfg), zerolog.Nop()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleIssueToken(t *testing.T) {
	cfg := testConfig()
	h := NewHandlers(cfg, NewService(cfg))

	rec := httptest.NewRecorder()
	h.HandleIssueToken(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(`{"subject":"dietitian"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access_token"`)

	rec = httptest.NewRecorder()
	h.HandleIssueToken(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	cfg.Env = "prod"
	rec = httptest.NewRecorder()
	h.HandleIssueToken(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(`{"subject":"x"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
