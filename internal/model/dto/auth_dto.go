package dto

// AuthStatusResponse 登录状态
type AuthStatusResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *SessionUser `json:"user,omitempty"`
}

// SessionUser 会话中的用户信息（返回给前端）
type SessionUser struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// AccessTokenResponse 当前有效的访问令牌
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// LoginResult 登录回调的结果
type LoginResult struct {
	SessionToken string
	User         *SessionUser
}
