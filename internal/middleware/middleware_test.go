package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/editorial-roles/internal/config"
	"github.com/iliyamo/editorial-roles/internal/utils"
)

const testSecret = "test-secret"

func TestJWTAuthAcceptsHeaderAndCookie(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, []string{"administrator"}, 5)
	require.NoError(t, err)

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, err := UserID(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id})
	}, JWTAuth(testSecret))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: tok.Token})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthRejectsBadTokens(t *testing.T) {
	other, err := utils.NewAccessToken("other-secret", 1, nil, 5)
	require.NoError(t, err)

	e := echo.New()
	e.GET("/me", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, JWTAuth(testSecret))

	for _, header := range []string{"", "Bearer garbage", "Bearer " + other.Token} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

type capSet map[uint64]string

func (s capSet) HasCapability(_ context.Context, uid uint64, capability string) (bool, error) {
	return s[uid] == capability, nil
}

func TestRequireCapability(t *testing.T) {
	e := echo.New()
	checker := capSet{1: "manage_options"}
	h := RequireCapability(checker, "manage_options")(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for uid, want := range map[uint64]int{1: http.StatusNoContent, 2: http.StatusForbidden} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		SetUserID(c, uid)
		require.NoError(t, h(c))
		assert.Equal(t, want, c.Response().Status)
	}

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusUnauthorized, c.Response().Status)
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/auth/login")

	assert.Equal(t, "rl:ip:10.0.0.1:user:anon", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user"}, c))
	SetUserID(c, 7)
	assert.Equal(t, "rl:user:7:route:POST /v1/auth/login", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}, c))
	assert.Equal(t, "rl:ip:10.0.0.1:user:7:route:POST /v1/auth/login", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "bogus"}, c))
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	require.NoError(t, mw(func(c echo.Context) error { return c.NoContent(http.StatusAccepted) })(c))
	assert.Equal(t, http.StatusAccepted, c.Response().Status)
}
