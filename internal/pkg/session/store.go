package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/qs3c/brevity_server/internal/pkg/secret"
)

const keyPrefix = "session:"

var ErrSessionNotFound = errors.New("session not found")

// User 会话中缓存的登录用户资料
type User struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// Session 浏览器会话持有的委托凭证，只属于这一个会话
type Session struct {
	ID           string    `json:"-"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"` // 用户未授予离线访问时为空
	Expiry       time.Time `json:"expiry"`
	IsLoggedIn   bool      `json:"is_logged_in"`
	User         *User     `json:"user,omitempty"`
}

// Email 会话对应的用户邮箱，未登录时为空
func (s *Session) Email() string {
	if s == nil || !s.IsLoggedIn || s.User == nil {
		return ""
	}
	return s.User.Email
}

// Store 基于 Redis 的会话存储，令牌加密后保存
type Store struct {
	rdb    *redis.Client
	cipher *secret.Cipher
	ttl    time.Duration
}

func NewStore(rdb *redis.Client, cipher *secret.Cipher, ttl time.Duration) *Store {
	return &Store{rdb: rdb, cipher: cipher, ttl: ttl}
}

// Create 分配新的会话 ID 并保存
func (s *Store) Create(ctx context.Context, sess *Session) error {
	sess.ID = uuid.NewString()
	return s.Save(ctx, sess)
}

func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	data, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var stored Session
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	if stored.AccessToken, err = s.cipher.Decrypt(stored.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	if stored.RefreshToken, err = s.cipher.Decrypt(stored.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}
	stored.ID = id

	return &stored, nil
}

// Save 整体覆盖写入，并发刷新时以最后一次写入为准
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		return errors.New("session id is required")
	}

	stored := *sess
	var err error
	if stored.AccessToken, err = s.cipher.Encrypt(sess.AccessToken); err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	if stored.RefreshToken, err = s.cipher.Encrypt(sess.RefreshToken); err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.rdb.Set(ctx, keyPrefix+sess.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear 清空凭证，会话保留为未登录状态
func (s *Store) Clear(ctx context.Context, id string) error {
	return s.Save(ctx, &Session{ID: id, IsLoggedIn: false})
}

// Delete 注销时销毁会话
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.rdb.Del(ctx, keyPrefix+id).Err()
}
