package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/utils"
)

const testSecret = "test-secret"

func protected() *echo.Echo {
	e := echo.New()
	g := e.Group("/admin", JWTAuth(testSecret), RequireRole(utils.RoleAdmin))
	g.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	})
	return e
}

func call(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWTAuth_AllowsAdmin(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, "ops", utils.RoleAdmin, time.Minute)
	require.NoError(t, err)

	rec := call(protected(), tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops", rec.Body.String())
}

func TestJWTAuth_Rejects(t *testing.T) {
	exp := time.Now().Add(time.Minute).Unix()
	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "missing", token: "", status: http.StatusUnauthorized},
		{name: "garbage", token: "not-a-jwt", status: http.StatusUnauthorized},
		{
			name:   "wrong secret",
			token:  sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "x", "role": utils.RoleAdmin, "exp": exp}),
			status: http.StatusUnauthorized,
		},
		{
			name:   "expired",
			token:  sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "x", "role": utils.RoleAdmin, "exp": time.Now().Add(-time.Minute).Unix()}),
			status: http.StatusUnauthorized,
		},
		{
			name:   "no expiry",
			token:  sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "x", "role": utils.RoleAdmin}),
			status: http.StatusUnauthorized,
		},
		{
			name:   "wrong algorithm",
			token:  sign(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"sub": "x", "role": utils.RoleAdmin, "exp": exp}),
			status: http.StatusUnauthorized,
		},
		{
			name:   "wrong role",
			token:  sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "x", "role": "CUSTOMER", "exp": exp}),
			status: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(protected(), tt.token)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestUserID_Anonymous(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "anon", UserID(c))
	c.Set(ctxUserID, "ops")
	assert.Equal(t, "ops", UserID(c))
}
