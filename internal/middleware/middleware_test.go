package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"talentmarket-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubVerifier map[string]*jwt.Claims

func (s stubVerifier) VerifyAccessToken(token string) (*jwt.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)

	auth := NewAuthMiddleware(stubVerifier{
		"user-token":  {IdentityID: 7, Roles: []string{jwt.RoleUser}},
		"admin-token": {IdentityID: 1, Roles: []string{jwt.RoleAdmin}},
	})

	r := gin.New()
	r.Use(RecoveryMiddleware(zap.NewNop()), LoggingMiddleware(zap.NewNop()))
	r.GET("/me", auth.Auth(), func(c *gin.Context) {
		id, _ := GetIdentityID(c)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})
	r.GET("/admin", append(auth.AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})...)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newTestEngine()

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "forged").Code)

	w := do(r, "/me", "user-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestAdminOnly(t *testing.T) {
	r := newTestEngine()

	assert.Equal(t, http.StatusUnauthorized, do(r, "/admin", "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/admin", "user-token").Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/admin", "admin-token").Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	r := newTestEngine()

	w := do(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestExtractToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc": "abc",
		"bearer abc": "abc",
		"Basic abc":  "",
		"Bearer":     "",
		"Bearer a b": "",
		"":           "",
	}
	for header, want := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", header)
		assert.Equal(t, want, extractToken(c), header)
	}
}
