package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newEnv(t *testing.T) *Authenv {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	return &Authenv{
		JWTkey:            []byte("test-key"),
		AdminLogin:        "admin",
		AdminPasswordHash: string(hash),
		Log:               zap.NewNop(),
	}
}

func protected(env *Authenv) http.Handler {
	return env.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		login, _ := LoginFromContext(r.Context())
		w.Write([]byte(login))
	}))
}

func TestLoginIssuesUsableToken(t *testing.T) {
	env := newEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"login":"admin","password":"secret"}`))
	rec := httptest.NewRecorder()
	env.AuthHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data loginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.Token)
	require.NotEmpty(t, rec.Result().Cookies())

	req = httptest.NewRequest(http.MethodPost, "/api/components/tubes", nil)
	req.Header.Set("Authorization", "Bearer "+body.Data.Token)
	rec = httptest.NewRecorder()
	protected(env).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/components/tubes", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: body.Data.Token})
	rec = httptest.NewRecorder()
	protected(env).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newEnv(t)
	cases := map[string]int{
		`{"login":"admin","password":"wrong"}`: http.StatusUnauthorized,
		`{"login":"root","password":"secret"}`: http.StatusUnauthorized,
		`{"login":"","password":"secret"}`:     http.StatusBadRequest,
		`not json`:                             http.StatusBadRequest,
	}
	for body, want := range cases {
		rec := httptest.NewRecorder()
		env.AuthHandler(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body)))
		assert.Equal(t, want, rec.Code, body)
	}
}

func TestMiddlewareRejects(t *testing.T) {
	env := newEnv(t)

	rec := httptest.NewRecorder()
	protected(env).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, _, err := env.IssueToken("admin", time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodDelete, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	protected(env).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := &Authenv{JWTkey: []byte("other-key")}
	forged, _, err := other.IssueToken("admin", time.Now())
	require.NoError(t, err)
	_, err = env.ParseToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRequiresAdminRole(t *testing.T) {
	env := newEnv(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"login": "admin",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString(env.JWTkey)
	require.NoError(t, err)

	_, err = env.ParseToken(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRateLimiterPerIP(t *testing.T) {
	limiter := NewIPRateLimiter(0, 2)
	h := limiter.LimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1000"))
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}
