package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/qs3c/brevity_server/config"
	"github.com/qs3c/brevity_server/internal/api/middleware"
	"github.com/qs3c/brevity_server/internal/model/dto"
	"github.com/qs3c/brevity_server/internal/pkg/response"
	"github.com/qs3c/brevity_server/internal/service"
)

type AuthHandler struct {
	authService  *service.AuthService
	tokenService *service.TokenService
	cfg          *config.Config
}

func NewAuthHandler(authService *service.AuthService, tokenService *service.TokenService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
		cfg:          cfg,
	}
}

// GoogleAuth 跳转到 Google 授权页
// GET /api/v1/auth/google?return_to=/dashboard
func (h *AuthHandler) GoogleAuth(c *gin.Context) {
	authURL, err := h.authService.GetGoogleAuthURL(c.Request.Context(), c.Query("return_to"))
	if err != nil {
		log.WithError(err).Error("failed to generate oauth state")
		response.ServerError(c, "")
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// GoogleCallback Google 授权回调，成功后写入会话 cookie 并跳回前端
// GET /api/v1/auth/google/callback
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		h.redirectAuthError(c, reason)
		return
	}

	code := c.Query("code")
	if code == "" {
		h.redirectAuthError(c, "missing_code")
		return
	}

	result, returnTo, err := h.authService.GoogleCallback(c.Request.Context(), code, c.Query("state"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidOAuthState) {
			h.redirectAuthError(c, "invalid_state")
			return
		}
		log.WithError(err).Warn("google login failed")
		h.redirectAuthError(c, "auth_failed")
		return
	}

	h.setSessionCookie(c, result.SessionToken, int(h.cfg.Session.SessionMaxAge().Seconds()))
	c.Redirect(http.StatusFound, h.frontendURL(returnTo))
}

// Status 当前登录状态
// GET /api/v1/auth/status
func (h *AuthHandler) Status(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Success(c, dto.AuthStatusResponse{Authenticated: false})
		return
	}

	status, err := h.authService.Status(c.Request.Context(), sessionID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, status)
}

// Logout 退出登录
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if sessionID, ok := middleware.GetSessionID(c); ok {
		if err := h.authService.Logout(c.Request.Context(), sessionID); err != nil {
			log.WithError(err).Warn("failed to delete session")
		}
	}

	h.setSessionCookie(c, "", -1)
	response.SuccessWithMessage(c, "已退出登录", nil)
}

// Token 返回当前有效的 Google 访问令牌，必要时自动刷新
// GET /api/v1/auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	token, err := h.tokenService.GetValidAccessToken(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReauthenticationRequired):
			response.ReauthError(c, service.PublicMessage(err))
		case errors.Is(err, service.ErrAuthRequired), errors.Is(err, service.ErrAuthentication):
			response.AuthError(c, service.PublicMessage(err))
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, dto.AccessTokenResponse{AccessToken: token})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Session.CookieName, value, maxAge, "/", "", h.cfg.Session.Secure, true)
}

func (h *AuthHandler) redirectAuthError(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, h.frontendURL("/auth-error?reason="+url.QueryEscape(reason)))
}

// frontendURL 拼接前端地址；未配置 base_url 时返回站内路径
func (h *AuthHandler) frontendURL(path string) string {
	return strings.TrimRight(h.cfg.Server.BaseURL, "/") + path
}
