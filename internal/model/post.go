package model

import (
	"time"
)

// Post 一篇已成功发布的文章，创建后不再修改
type Post struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	UserID       int64     `gorm:"not null;index:idx_posts_user_created,priority:1" json:"user_id"`
	Title        string    `gorm:"size:300;not null" json:"title"`
	Topic        string    `gorm:"size:500;not null" json:"topic"`
	Category     string    `gorm:"size:30;default:general" json:"category"`
	URL          string    `gorm:"size:500;not null" json:"url"`
	Content      string    `gorm:"type:text" json:"content,omitempty"`
	RemotePostID string    `gorm:"size:64" json:"remote_post_id,omitempty"`
	CreatedAt    time.Time `gorm:"index:idx_posts_user_created,priority:2" json:"created_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Post) TableName() string {
	return "posts"
}
