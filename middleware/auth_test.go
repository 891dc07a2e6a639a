package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devloops/devloops/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "middleware-test-secret")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.GET("/whoami", AuthRequired(), func(ctx *gin.Context) {
		id, _ := ctx.Get(ContextUserIDKey)
		ctx.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	return r
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	r := newAuthRouter()

	token, err := utils.GenerateToken(42, "tester", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":42`)
}

func TestAuthRequiredRejectsMissingHeader(t *testing.T) {
	r := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredRejectsMalformedHeader(t *testing.T) {
	r := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredRejectsGarbageToken(t *testing.T) {
	r := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredRejectsBlacklistedToken(t *testing.T) {
	r := newAuthRouter()

	token, err := utils.GenerateToken(7, "quitter", time.Hour)
	require.NoError(t, err)
	utils.BlacklistToken(token, time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
