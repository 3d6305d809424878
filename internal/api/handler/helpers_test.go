package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/qs3c/brevity_server/config"
	"github.com/qs3c/brevity_server/internal/api/middleware"
	"github.com/qs3c/brevity_server/internal/pkg/jwt"
	"github.com/qs3c/brevity_server/internal/pkg/oauth"
	"github.com/qs3c/brevity_server/internal/pkg/response"
	"github.com/qs3c/brevity_server/internal/pkg/secret"
	"github.com/qs3c/brevity_server/internal/pkg/session"
	"github.com/qs3c/brevity_server/internal/repository"
	"github.com/qs3c/brevity_server/internal/service"
	"github.com/qs3c/brevity_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testCookieName = "brevity_auth_session"

// testEnv 处理器测试共用的依赖
type testEnv struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Mini     *miniredis.Miniredis
	Cfg      *config.Config
	Cipher   *secret.Cipher
	Sessions *session.Store
	Auth     *service.AuthService
	Tokens   *service.TokenService
	Quota    *service.QuotaService
	Google   *fakeGoogle
}

// fakeGoogle 模拟 Google 的 token 和 userinfo 接口
type fakeGoogle struct {
	srv         *httptest.Server
	mu          sync.Mutex
	tokenStatus int
	tokenBody   map[string]any
}

func (f *fakeGoogle) respond(status int, body map[string]any) {
	f.mu.Lock()
	f.tokenStatus, f.tokenBody = status, body
	f.mu.Unlock()
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()

	f := &fakeGoogle{
		tokenStatus: http.StatusOK,
		tokenBody: map[string]any{
			"access_token":  "google-access",
			"refresh_token": "google-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status, body := f.tokenStatus, f.tokenBody
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "42",
			"email":   "writer@example.com",
			"name":    "Writer",
			"picture": "https://example.com/p.png",
		})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	rdb, mr := testutil.SetupTestRedis(t)

	cfg := &config.Config{
		Server:  config.ServerConfig{BaseURL: "http://app.example.com"},
		Session: config.SessionConfig{Secret: "test-session-secret", CookieName: testCookieName, MaxAgeDays: 30},
		Generation: config.GenerationConfig{
			APIKey: "default-key",
		},
		RateLimit: config.RateLimitConfig{Anonymous: config.AnonymousLimitConfig{
			Limit: 2, WindowSeconds: 300, UserAgentLen: 32, KeyPrefix: "ratelimit:anon",
		}},
	}

	cipher, err := secret.NewCipher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	google := newFakeGoogle(t)
	googleOAuth := oauth.NewGoogleOAuth("cid", "secret", "http://localhost/callback",
		oauth.WithEndpoint(oauth2.Endpoint{
			AuthURL:   google.srv.URL + "/auth",
			TokenURL:  google.srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}),
		oauth.WithUserinfoEndpoint(google.srv.URL+"/"),
	)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	sessions := session.NewStore(rdb, cipher, cfg.Session.SessionMaxAge())

	return &testEnv{
		DB:       db,
		Redis:    rdb,
		Mini:     mr,
		Cfg:      cfg,
		Cipher:   cipher,
		Sessions: sessions,
		Auth:     service.NewAuthService(userRepo, sessions, googleOAuth, oauth.NewStateStore(rdb), cfg),
		Tokens:   service.NewTokenService(sessions, googleOAuth, nil),
		Quota:    service.NewQuotaService(userRepo, postRepo, time.UTC),
		Google:   google,
	}
}

// newRouter 带会话中间件的路由
func (e *testEnv) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(middleware.Session(e.Auth, testCookieName))
	return router
}

// login 直接写入一个已登录会话，返回 cookie
func (e *testEnv) login(t *testing.T, email string, expiry time.Time) (*http.Cookie, string) {
	t.Helper()

	sess := &session.Session{
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		Expiry:       expiry,
		IsLoggedIn:   true,
		User:         &session.User{Email: email, Name: "Writer"},
	}
	require.NoError(t, e.Sessions.Create(context.Background(), sess))

	token, err := jwt.GenerateToken(sess.ID, e.Cfg.Session.Secret, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: testCookieName, Value: token}, sess.ID
}

func performRequest(r http.Handler, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "handler-test")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}
