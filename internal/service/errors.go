package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/qs3c/brevity_server/internal/model"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidOAuthState = errors.New("invalid or expired oauth state")

	// ErrAuthRequired 没有可用的登录凭证
	ErrAuthRequired = errors.New("authentication required")
	// ErrNoRefreshToken access token 过期且无法刷新，调用方按未登录处理
	ErrNoRefreshToken = fmt.Errorf("%w: access token expired and no refresh token", ErrAuthRequired)
	// ErrReauthenticationRequired refresh token 已被撤销，会话已清空
	ErrReauthenticationRequired = errors.New("re-authentication required")
	// ErrAuthentication 刷新暂时失败，可以重试
	ErrAuthentication = errors.New("authentication failed")

	ErrQuotaExceeded = errors.New("quota exceeded")
)

type LimitType string

const (
	LimitMonthly LimitType = "monthly"
	LimitDaily   LimitType = "daily"
)

// LimitError 配额用尽，携带展示给用户的用量和重置时间
type LimitError struct {
	Type    LimitType
	Current int
	Limit   int
	ResetAt time.Time
	Plan    model.Plan
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s limit reached: %d/%d, resets at %s", e.Type, e.Current, e.Limit, e.ResetAt.Format(time.RFC3339))
}

func (e *LimitError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// PublicMessage 可以展示给用户的错误说明，不暴露上游细节
func PublicMessage(err error) string {
	var limitErr *LimitError
	switch {
	case errors.As(err, &limitErr) && limitErr.Type == LimitDaily:
		return "You have reached your daily post limit"
	case errors.As(err, &limitErr):
		return "You have reached your monthly post limit"
	case errors.Is(err, ErrAnonymousRateLimited):
		return "Too many requests, please sign in or try again later"
	case errors.Is(err, ErrValidation):
		return "Invalid request"
	case errors.Is(err, ErrReauthenticationRequired):
		return "Your Google authorization has expired, please sign in again"
	case errors.Is(err, ErrAuthRequired):
		return "Please sign in with Google"
	case errors.Is(err, ErrAuthentication):
		return "Could not verify your Google session, please try again"
	case errors.Is(err, ErrGenerationTimeout), errors.Is(err, ErrPublishTimeout):
		return "The request timed out, please try again"
	case errors.Is(err, ErrGeneration):
		return "Failed to generate the article"
	case errors.Is(err, ErrPublishAuth):
		return "Blogger rejected your credentials, please sign in again"
	case errors.Is(err, ErrPublishPermission):
		return "You do not have permission to publish to this blog"
	case errors.Is(err, ErrPublish):
		return "Failed to publish to Blogger"
	default:
		return "Internal server error"
	}
}
