package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/qs3c/brevity_server/internal/pkg/oauth"
	"github.com/qs3c/brevity_server/internal/pkg/secret"
	"github.com/qs3c/brevity_server/internal/pkg/session"
	"github.com/qs3c/brevity_server/internal/testutil"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

func newSessionStore(t *testing.T) (*session.Store, *redis.Client) {
	t.Helper()

	rdb, _ := testutil.SetupTestRedis(t)
	cipher, err := secret.NewCipher(testEncryptionKey)
	require.NoError(t, err)

	return session.NewStore(rdb, cipher, time.Hour), rdb
}

// fakeGoogle 模拟 token 端点和 userinfo 接口
type fakeGoogle struct {
	srv          *httptest.Server
	tokenCalls   int32
	tokenStatus  int
	tokenBody    map[string]any
	userinfoBody map[string]any
	mu           sync.Mutex
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()

	f := &fakeGoogle{
		tokenStatus: http.StatusOK,
		tokenBody: map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		},
		userinfoBody: map[string]any{
			"id":      "42",
			"email":   "writer@example.com",
			"name":    "Writer",
			"picture": "https://example.com/p.png",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		f.mu.Lock()
		status, body := f.tokenStatus, f.tokenBody
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(f.userinfoBody)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGoogle) respond(status int, body map[string]any) {
	f.mu.Lock()
	f.tokenStatus, f.tokenBody = status, body
	f.mu.Unlock()
}

func (f *fakeGoogle) calls() int {
	return int(atomic.LoadInt32(&f.tokenCalls))
}

func (f *fakeGoogle) oauth() *oauth.GoogleOAuth {
	return oauth.NewGoogleOAuth("cid", "secret", "http://localhost/callback",
		oauth.WithEndpoint(oauth2.Endpoint{
			AuthURL:   f.srv.URL + "/auth",
			TokenURL:  f.srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}),
		oauth.WithUserinfoEndpoint(f.srv.URL+"/"),
	)
}

// loggedInSession 直接写入一个已登录会话
func loggedInSession(t *testing.T, store *session.Store, email string, expiry time.Time, refreshToken string) *session.Session {
	t.Helper()

	sess := &session.Session{
		AccessToken:  "stored-access",
		RefreshToken: refreshToken,
		Expiry:       expiry,
		IsLoggedIn:   true,
		User:         &session.User{Email: email, Name: "Writer"},
	}
	require.NoError(t, store.Create(context.Background(), sess))
	return sess
}
