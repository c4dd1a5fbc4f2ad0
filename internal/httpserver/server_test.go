package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/util"
)

const testSecret = "test-secret"

func newProtectedRig() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	authed := r.Group("/", AuthMiddleware(testSecret))
	authed.GET("/me", func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		role, _ := c.Get("role")
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
	})

	coach := authed.Group("/", RequireCoach())
	coach.GET("/coach-only", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	r := newProtectedRig()
	w := get(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	r := newProtectedRig()
	w := get(r, "/me", "garbage.token.here")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareWrongSecret(t *testing.T) {
	token, err := util.GenerateJWT(1, model.RoleCoach, "other-secret")
	require.NoError(t, err)

	r := newProtectedRig()
	w := get(r, "/me", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareStoresIdentity(t *testing.T) {
	token, err := util.GenerateJWT(42, model.RoleClient, testSecret)
	require.NoError(t, err)

	r := newProtectedRig()
	w := get(r, "/me", token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":42`)
	assert.Contains(t, w.Body.String(), `"role":"client"`)
}

func TestRequireCoachRejectsClient(t *testing.T) {
	token, err := util.GenerateJWT(42, model.RoleClient, testSecret)
	require.NoError(t, err)

	r := newProtectedRig()
	w := get(r, "/coach-only", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireCoachAllowsCoach(t *testing.T) {
	token, err := util.GenerateJWT(1, model.RoleCoach, testSecret)
	require.NoError(t, err)

	r := newProtectedRig()
	w := get(r, "/coach-only", token)
	assert.Equal(t, http.StatusOK, w.Code)
}
