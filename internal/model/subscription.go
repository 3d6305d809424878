package model

import (
	"time"
)

// Subscription 内嵌在 users 表中的订阅信息
type Subscription struct {
	Plan              string    `gorm:"column:subscription_plan;size:20;default:free" json:"plan"` // free, standard, premium
	CurrentUsage      int       `gorm:"column:current_usage;default:0" json:"current_usage"`
	NextResetDate     time.Time `gorm:"column:next_reset_date" json:"next_reset_date"`
	SubscriptionStart time.Time `gorm:"column:subscription_start" json:"subscription_start"`
}

// NewSubscription 新用户的默认订阅：free 套餐，一个月后重置
func NewSubscription(now time.Time) Subscription {
	return Subscription{
		Plan:              PlanFree,
		CurrentUsage:      0,
		NextResetDate:     now.AddDate(0, 1, 0),
		SubscriptionStart: now,
	}
}
