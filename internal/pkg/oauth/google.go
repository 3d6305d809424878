package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Google 授权范围：Blogger 发布 + 基本资料
var Scopes = []string{
	"https://www.googleapis.com/auth/blogger",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// 这些错误码说明 refresh token 已失效，只能重新授权
var permanentRefreshCodes = map[string]bool{
	"invalid_grant":       true,
	"invalid_client":      true,
	"unauthorized_client": true,
	"disabled_client":     true,
	"deleted_client":      true,
}

type GoogleUser struct {
	ID      string
	Email   string
	Name    string
	Picture string
}

type GoogleOAuth struct {
	config           *oauth2.Config
	userinfoEndpoint string
}

type Option func(*GoogleOAuth)

// WithEndpoint 替换授权与 token 地址，测试时指向本地服务
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(g *GoogleOAuth) { g.config.Endpoint = ep }
}

// WithUserinfoEndpoint 替换用户信息接口的 base URL
func WithUserinfoEndpoint(endpoint string) Option {
	return func(g *GoogleOAuth) { g.userinfoEndpoint = endpoint }
}

func NewGoogleOAuth(clientID, clientSecret, redirectURI string, opts ...Option) *GoogleOAuth {
	g := &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GetAuthURL 获取 Google 授权 URL，强制 consent 以拿到 refresh token
func (g *GoogleOAuth) GetAuthURL(state string) string {
	return g.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange 用授权码换取 token
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return token, nil
}

// Refresh 用 refresh token 换取新的 access token
func (g *GoogleOAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	// AccessToken 为空时 TokenSource 一定会走刷新
	src := g.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == refreshToken {
		token.RefreshToken = ""
	}
	return token, nil
}

// GetUser 获取 Google 用户信息
func (g *GoogleOAuth) GetUser(ctx context.Context, token *oauth2.Token) (*GoogleUser, error) {
	opts := []option.ClientOption{option.WithTokenSource(g.config.TokenSource(ctx, token))}
	if g.userinfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(g.userinfoEndpoint))
	}

	svc, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	if info.Email == "" {
		return nil, errors.New("google account has no email")
	}

	return &GoogleUser{
		ID:      info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}

// IsPermanentRefreshError 判断刷新失败是否需要用户重新授权
func IsPermanentRefreshError(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return false
	}
	if permanentRefreshCodes[re.ErrorCode] {
		return true
	}
	return re.Response != nil && re.Response.StatusCode == http.StatusUnauthorized
}
