package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/csrf"
	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/ratelimit"
	"github.com/mlunin-git/coaching-platform-sub000/internal/service"
)

type stubAuth struct {
	registerErr error
	loginToken  string
	loginErr    error
}

func (s *stubAuth) Register(ctx context.Context, email, password, displayName, role string) (*model.User, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &model.User{ID: 1, Email: email, DisplayName: displayName, Role: model.RoleCoach}, nil
}

func (s *stubAuth) Login(ctx context.Context, email, password string) (string, error) {
	return s.loginToken, s.loginErr
}

func newAuthRig(auth AuthManager, limit int) (*AuthHandler, *gin.Engine, *csrf.Store) {
	gin.SetMode(gin.TestMode)
	store := csrf.NewStore(time.Minute)
	limiter := ratelimit.NewSlidingWindow(time.Minute, limit)
	h := NewAuthHandler(auth, store, limiter, zap.NewNop())

	r := gin.New()
	r.POST("/register", h.Register)
	r.GET("/csrf", h.GetCSRF)
	r.POST("/login", h.Login)
	return h, r, store
}

func TestRegisterSuccess(t *testing.T) {
	_, r, _ := newAuthRig(&stubAuth{}, 10)

	body := `{"email":"coach@example.com","password":"longenough","display_name":"Coach"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, r, _ := newAuthRig(&stubAuth{registerErr: service.ErrEmailTaken}, 10)

	body := `{"email":"coach@example.com","password":"longenough","display_name":"Coach"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterInvalidBody(t *testing.T) {
	_, r, _ := newAuthRig(&stubAuth{}, 10)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/register", strings.NewReader(`{"email":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCSRFSetsSessionCookie(t *testing.T) {
	_, r, _ := newAuthRig(&stubAuth{}, 10)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/csrf", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CSRFToken)

	cookies := w.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == sessionCookieName && c.Value != "" {
			found = true
		}
	}
	assert.True(t, found, "session cookie must be set")
}

func TestLoginFullCSRFFlow(t *testing.T) {
	_, r, _ := newAuthRig(&stubAuth{loginToken: "jwt-token"}, 10)

	// 先拿 CSRF token
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/csrf", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	cookie := w.Result().Cookies()[0]

	// 再登录
	body := `{"email":"coach@example.com","password":"pass"}`
	w = httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(csrfHeaderName, resp.CSRFToken)
	req.AddCookie(cookie)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jwt-token")
}

func TestLoginWithoutCSRF(t *testing.T) {
	_, r, _ := newAuthRig(&stubAuth{loginToken: "jwt-token"}, 10)

	body := `{"email":"coach@example.com","password":"pass"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginCSRFTokenIsSingleUse(t *testing.T) {
	_, r, store := newAuthRig(&stubAuth{loginToken: "jwt-token"}, 10)

	token, err := store.Issue("session-abc")
	require.NoError(t, err)

	login := func() int {
		body := `{"email":"coach@example.com","password":"pass"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(csrfHeaderName, token)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "session-abc"})
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, login())
	assert.Equal(t, http.StatusForbidden, login(), "token must not be reusable")
}

func TestLoginInvalidCredentials(t *testing.T) {
	_, r, store := newAuthRig(&stubAuth{loginErr: service.ErrInvalidCredentials}, 10)

	token, err := store.Issue("session-abc")
	require.NoError(t, err)

	body := `{"email":"coach@example.com","password":"wrong"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(csrfHeaderName, token)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "session-abc"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid email or password")
}

func TestLoginRateLimited(t *testing.T) {
	_, r, _ := newAuthRig(&stubAuth{loginToken: "jwt-token"}, 2)

	attempt := func() int {
		body := `{"email":"coach@example.com","password":"pass"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w.Code
	}

	// 前两次因缺少 CSRF 被拒，但占用了限流窗口
	assert.Equal(t, http.StatusForbidden, attempt())
	assert.Equal(t, http.StatusForbidden, attempt())
	assert.Equal(t, http.StatusTooManyRequests, attempt())
}
