package model

import (
	"time"
)

type User struct {
	ID               int64        `gorm:"primaryKey" json:"id"`
	Email            string       `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Name             string       `gorm:"size:100;not null" json:"name"`
	AvatarURL        string       `gorm:"size:500" json:"avatar_url"`
	BlogID           string       `gorm:"column:blog_id;size:64" json:"blog_id,omitempty"`
	GenerationAPIKey string       `gorm:"column:generation_api_key;size:512" json:"-"` // 加密存储
	Subscription     Subscription `gorm:"embedded" json:"subscription"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
