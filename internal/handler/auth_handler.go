package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/csrf"
	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/ratelimit"
	"github.com/mlunin-git/coaching-platform-sub000/internal/service"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/metrics"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/util"
)

const (
	sessionCookieName = "session_id"
	csrfHeaderName    = "X-CSRF-Token"
)

// AuthManager 认证服务接口，便于 handler 单测
type AuthManager interface {
	Register(ctx context.Context, email, password, displayName, role string) (*model.User, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type AuthHandler struct {
	auth         AuthManager
	csrfStore    *csrf.Store
	loginLimiter *ratelimit.SlidingWindow
	logger       *zap.Logger
}

func NewAuthHandler(auth AuthManager, csrfStore *csrf.Store, loginLimiter *ratelimit.SlidingWindow, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		csrfStore:    csrfStore,
		loginLimiter: loginLimiter,
		logger:       logger,
	}
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
	Role        string `json:"role"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	u, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		h.logger.Error("Register: failed to create user",
			zap.String("email", req.Email),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}

	h.logger.Info("Register: success",
		zap.Int("user_id", u.ID),
		zap.String("role", u.Role),
	)
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

// GetCSRF issues a single-use token bound to the session cookie. A missing
// cookie gets a fresh opaque session id.
func (h *AuthHandler) GetCSRF(c *gin.Context) {
	sessionID, err := c.Cookie(sessionCookieName)
	if err != nil || sessionID == "" {
		sessionID, err = util.GenerateSessionID(16)
		if err != nil {
			h.logger.Error("GetCSRF: failed to generate session id", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
			return
		}
		c.SetCookie(sessionCookieName, sessionID, 3600, "/", "", false, true)
	}

	token, err := h.csrfStore.Issue(sessionID)
	if err != nil {
		h.logger.Error("GetCSRF: failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"csrf_token": token})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	clientIP := c.ClientIP()
	if !h.loginLimiter.Allow(clientIP) {
		metrics.IncrementRateLimitRejection("login")
		h.logger.Warn("Login: rate limited", zap.String("client_ip", clientIP))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
		return
	}

	sessionID, err := c.Cookie(sessionCookieName)
	if err != nil || sessionID == "" || !h.csrfStore.Consume(sessionID, c.GetHeader(csrfHeaderName)) {
		h.logger.Warn("Login: CSRF validation failed", zap.String("client_ip", clientIP))
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid csrf token"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// 统一错误文案，避免探测账号是否存在
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		h.logger.Error("Login: failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to login"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
