package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/brevity_server/internal/model"
)

var seq int64

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := atomic.AddInt64(&seq, 1)
	now := time.Now().UTC()
	user := &model.User{
		Email:        fmt.Sprintf("test_%d_%d@example.com", n, now.UnixNano()),
		Name:         fmt.Sprintf("Test User %d", n),
		AvatarURL:    "https://example.com/avatar.png",
		Subscription: model.NewSubscription(now),
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithPlan 设置订阅套餐
func WithPlan(plan string) func(*model.User) {
	return func(u *model.User) {
		u.Subscription.Plan = plan
	}
}

// WithUsage 设置本月已用次数
func WithUsage(used int) func(*model.User) {
	return func(u *model.User) {
		u.Subscription.CurrentUsage = used
	}
}

// WithNextReset 设置下次月度重置时间
func WithNextReset(at time.Time) func(*model.User) {
	return func(u *model.User) {
		u.Subscription.NextResetDate = at
	}
}

// WithBlogID 设置默认博客
func WithBlogID(blogID string) func(*model.User) {
	return func(u *model.User) {
		u.BlogID = blogID
	}
}

// TestPost 创建测试文章
func TestPost(t *testing.T, db *gorm.DB, userID int64, createdAt time.Time) *model.Post {
	t.Helper()

	n := atomic.AddInt64(&seq, 1)
	post := &model.Post{
		UserID:    userID,
		Title:     fmt.Sprintf("Post %d", n),
		Topic:     "testing",
		Category:  "general",
		URL:       fmt.Sprintf("https://blog.example.com/%d", n),
		CreatedAt: createdAt.UTC(),
	}

	if err := db.Create(post).Error; err != nil {
		t.Fatalf("Failed to create test post: %v", err)
	}

	return post
}
