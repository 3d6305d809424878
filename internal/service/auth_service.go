package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/brevity_server/config"
	"github.com/qs3c/brevity_server/internal/model"
	"github.com/qs3c/brevity_server/internal/model/dto"
	"github.com/qs3c/brevity_server/internal/pkg/jwt"
	"github.com/qs3c/brevity_server/internal/pkg/oauth"
	"github.com/qs3c/brevity_server/internal/pkg/session"
	"github.com/qs3c/brevity_server/internal/repository"
)

type AuthService struct {
	userRepo    *repository.UserRepository
	sessions    *session.Store
	googleOAuth *oauth.GoogleOAuth
	states      *oauth.StateStore
	cfg         *config.Config
	nowFn       func() time.Time
}

func NewAuthService(
	userRepo *repository.UserRepository,
	sessions *session.Store,
	googleOAuth *oauth.GoogleOAuth,
	states *oauth.StateStore,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessions:    sessions,
		googleOAuth: googleOAuth,
		states:      states,
		cfg:         cfg,
		nowFn:       time.Now,
	}
}

// GetGoogleAuthURL 生成 state 并返回 Google 授权 URL
func (s *AuthService) GetGoogleAuthURL(ctx context.Context, returnTo string) (string, error) {
	state, err := s.states.GenerateState(ctx, returnTo)
	if err != nil {
		return "", err
	}
	return s.googleOAuth.GetAuthURL(state), nil
}

// GoogleCallback 处理 Google OAuth 回调：换 token、落库用户、建立会话。
// 返回登录结果和登录前记录的回跳路径
func (s *AuthService) GoogleCallback(ctx context.Context, code, state string) (*dto.LoginResult, string, error) {
	returnTo, err := s.states.ValidateState(ctx, state)
	if errors.Is(err, oauth.ErrInvalidState) {
		return nil, "", ErrInvalidOAuthState
	}
	if err != nil {
		return nil, "", err
	}

	token, err := s.googleOAuth.Exchange(ctx, code)
	if err != nil {
		return nil, "", err
	}

	googleUser, err := s.googleOAuth.GetUser(ctx, token)
	if err != nil {
		return nil, "", err
	}

	now := s.nowFn()
	name := googleUser.Name
	if name == "" {
		name = strings.Split(googleUser.Email, "@")[0]
	}

	user, err := s.userRepo.UpsertByEmail(&model.User{
		Email:        googleUser.Email,
		Name:         name,
		AvatarURL:    googleUser.Picture,
		Subscription: model.NewSubscription(now),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to save user: %w", err)
	}

	if token.RefreshToken == "" {
		// 没有离线授权时，access token 过期后需要重新登录
		log.WithField("email", user.Email).Warn("google did not return a refresh token")
	}

	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = now.Add(defaultTokenLifetime)
	}

	sessUser := &session.User{Email: user.Email, Name: user.Name, Picture: user.AvatarURL}
	sess := &session.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       expiry,
		IsLoggedIn:   true,
		User:         sessUser,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, "", err
	}

	cookieToken, err := jwt.GenerateToken(sess.ID, s.cfg.Session.Secret, s.cfg.Session.SessionMaxAge())
	if err != nil {
		return nil, "", err
	}

	return &dto.LoginResult{
		SessionToken: cookieToken,
		User:         toSessionUser(sessUser),
	}, returnTo, nil
}

// ResolveSession 从 cookie 中的 JWT 解析出会话 ID
func (s *AuthService) ResolveSession(cookieToken string) (string, error) {
	claims, err := jwt.ParseToken(cookieToken, s.cfg.Session.Secret)
	if err != nil {
		return "", err
	}
	return claims.SessionID, nil
}

// Status 查询会话登录状态
func (s *AuthService) Status(ctx context.Context, sessionID string) (*dto.AuthStatusResponse, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return &dto.AuthStatusResponse{Authenticated: false}, nil
	}
	if err != nil {
		return nil, err
	}
	if !sess.IsLoggedIn || sess.User == nil {
		return &dto.AuthStatusResponse{Authenticated: false}, nil
	}
	return &dto.AuthStatusResponse{Authenticated: true, User: toSessionUser(sess.User)}, nil
}

// Logout 销毁会话
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// CurrentUser 会话对应的数据库用户
func (s *AuthService) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, ErrAuthRequired
	}
	if err != nil {
		return nil, err
	}
	email := sess.Email()
	if email == "" {
		return nil, ErrAuthRequired
	}

	user, err := s.userRepo.GetByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func toSessionUser(u *session.User) *dto.SessionUser {
	return &dto.SessionUser{Email: u.Email, Name: u.Name, Picture: u.Picture}
}
