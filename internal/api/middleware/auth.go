package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/qs3c/brevity_server/internal/model"
	"github.com/qs3c/brevity_server/internal/pkg/response"
	"github.com/qs3c/brevity_server/internal/service"
)

const (
	SessionIDKey = "sessionID"
	UserKey      = "user"
)

// SessionResolver 由 cookie 找到会话和对应的用户
type SessionResolver interface {
	ResolveSession(cookieToken string) (string, error)
	CurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// Session 解析会话 cookie（不强制要求登录）。
// cookie 缺失时也接受 Authorization: Bearer 头中的同一个值
func Session(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c, cookieName)
		if token == "" {
			c.Next()
			return
		}

		sessionID, err := resolver.ResolveSession(token)
		if err != nil {
			c.Next()
			return
		}
		c.Set(SessionIDKey, sessionID)

		user, err := resolver.CurrentUser(c.Request.Context(), sessionID)
		switch {
		case err == nil:
			c.Set(UserKey, user)
		case errors.Is(err, service.ErrAuthRequired), errors.Is(err, service.ErrUserNotFound):
			// 未登录或用户已不存在，按匿名处理
		default:
			// 查询失败时不能降级为匿名，否则会绕过配额
			log.WithError(err).WithField("session_id", sessionID).Error("failed to load session user")
			response.ServerError(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireSession 要求已登录，需放在 Session 之后
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUser(c); !ok {
			response.AuthError(c, "请先使用 Google 登录")
			c.Abort()
			return
		}
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return ""
	}
	return tokenString
}

// GetSessionID 从上下文获取会话 ID
func GetSessionID(c *gin.Context) (string, bool) {
	v, exists := c.Get(SessionIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// GetUser 从上下文获取当前用户
func GetUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok && user != nil
}
