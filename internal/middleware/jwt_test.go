package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/authors-api/internal/middleware"
	"github.com/iliyamo/authors-api/internal/utils"
)

const secret = "middleware-test-secret"

type fakeLedger struct{ revoked map[string]bool }

func (f *fakeLedger) IsRevoked(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], nil
}

func newProtected(ledger *fakeLedger) *echo.Echo {
	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"user_id": c.Get("user_id"),
			"jti":     c.Get("jti"),
		})
	}, middleware.JWTAuth(secret, ledger))
	return e
}

func do(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthMissingHeader(t *testing.T) {
	e := newProtected(&fakeLedger{revoked: map[string]bool{}})

	rec := do(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthValidToken(t *testing.T) {
	e := newProtected(&fakeLedger{revoked: map[string]bool{}})

	at, err := utils.NewAccessToken(secret, 42, 15)
	require.NoError(t, err)

	rec := do(e, at.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), at.JTI)
}

func TestJWTAuthRejectsRevoked(t *testing.T) {
	ledger := &fakeLedger{revoked: map[string]bool{}}
	e := newProtected(ledger)

	at, err := utils.NewAccessToken(secret, 42, 15)
	require.NoError(t, err)

	// Usable before revocation, dead after, even though expiry is far off.
	assert.Equal(t, http.StatusOK, do(e, at.Token).Code)
	ledger.revoked[at.JTI] = true
	assert.Equal(t, http.StatusUnauthorized, do(e, at.Token).Code)
}

func TestJWTAuthRejectsExpired(t *testing.T) {
	e := newProtected(&fakeLedger{revoked: map[string]bool{}})

	at, err := utils.NewAccessToken(secret, 42, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(e, at.Token).Code)
}

func TestJWTAuthRejectsForeignSignature(t *testing.T) {
	e := newProtected(&fakeLedger{revoked: map[string]bool{}})

	at, err := utils.NewAccessToken("some-other-secret", 42, 15)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(e, at.Token).Code)
}
