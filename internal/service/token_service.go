package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/qs3c/brevity_server/internal/pkg/metrics"
	"github.com/qs3c/brevity_server/internal/pkg/oauth"
	"github.com/qs3c/brevity_server/internal/pkg/session"
)

// 身份提供方未返回过期时间时的保守有效期
const defaultTokenLifetime = 55 * time.Minute

// TokenRefresher 用 refresh token 换取新的 access token
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

type TokenService struct {
	sessions  *session.Store
	refresher TokenRefresher
	metrics   metrics.Recorder
	nowFn     func() time.Time
}

func NewTokenService(sessions *session.Store, refresher TokenRefresher, recorder metrics.Recorder) *TokenService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &TokenService{
		sessions:  sessions,
		refresher: refresher,
		metrics:   recorder,
		nowFn:     time.Now,
	}
}

// GetValidAccessToken 返回会话的有效 access token，过期时自动刷新
func (s *TokenService) GetValidAccessToken(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return "", ErrAuthRequired
	}
	if err != nil {
		return "", err
	}
	if !sess.IsLoggedIn || sess.AccessToken == "" {
		return "", ErrAuthRequired
	}

	now := s.nowFn()
	if now.Before(sess.Expiry) {
		return sess.AccessToken, nil
	}
	if sess.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	token, err := s.refresher.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		if oauth.IsPermanentRefreshError(err) {
			s.metrics.RecordTokenRefresh("revoked")
			log.WithError(err).WithField("email", sess.Email()).Warn("refresh token rejected, clearing session")
			if cerr := s.sessions.Clear(ctx, sessionID); cerr != nil {
				log.WithError(cerr).Error("failed to clear session")
			}
			return "", ErrReauthenticationRequired
		}
		s.metrics.RecordTokenRefresh("failure")
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	sess.AccessToken = token.AccessToken
	sess.Expiry = token.Expiry
	if sess.Expiry.IsZero() {
		sess.Expiry = now.Add(defaultTokenLifetime)
	}
	// 只有提供方轮换时才替换 refresh token
	if token.RefreshToken != "" {
		sess.RefreshToken = token.RefreshToken
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return "", err
	}
	s.metrics.RecordTokenRefresh("success")

	return sess.AccessToken, nil
}
