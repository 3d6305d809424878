package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/brevity_server/internal/model"
	"github.com/qs3c/brevity_server/internal/model/dto"
	"github.com/qs3c/brevity_server/internal/repository"
)

// Usage 一次配额检查时的用量快照
type Usage struct {
	Plan          model.Plan
	Monthly       int
	Daily         int
	NextResetDate time.Time
	DailyResetAt  time.Time
}

type QuotaService struct {
	userRepo *repository.UserRepository
	postRepo *repository.PostRepository
	loc      *time.Location
	nowFn    func() time.Time
}

type QuotaOption func(*QuotaService)

// WithQuotaClock 注入时钟
func WithQuotaClock(now func() time.Time) QuotaOption {
	return func(s *QuotaService) { s.nowFn = now }
}

// NewQuotaService loc 决定每日配额的零点
func NewQuotaService(userRepo *repository.UserRepository, postRepo *repository.PostRepository, loc *time.Location, opts ...QuotaOption) *QuotaService {
	if loc == nil {
		loc = time.Local
	}
	s := &QuotaService{
		userRepo: userRepo,
		postRepo: postRepo,
		loc:      loc,
		nowFn:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check 检查用户能否再发布一篇。除到期的月度重置外不修改用量
func (s *QuotaService) Check(user *model.User) (*Usage, error) {
	now := s.nowFn()
	if err := s.applyMonthlyReset(user, now); err != nil {
		return nil, err
	}

	usage, err := s.snapshot(user, now)
	if err != nil {
		return nil, err
	}
	plan := usage.Plan

	if plan.HasMonthlyLimit() && usage.Monthly >= plan.Limits.PostsPerMonth {
		return usage, &LimitError{
			Type:    LimitMonthly,
			Current: usage.Monthly,
			Limit:   plan.Limits.PostsPerMonth,
			ResetAt: usage.NextResetDate,
			Plan:    plan,
		}
	}

	if plan.HasDailyLimit() && usage.Daily >= plan.Limits.PostsPerDay {
		return usage, &LimitError{
			Type:    LimitDaily,
			Current: usage.Daily,
			Limit:   plan.Limits.PostsPerDay,
			ResetAt: usage.DailyResetAt,
			Plan:    plan,
		}
	}

	return usage, nil
}

// Consume 发布成功后计数一次；并发下通过条件更新保证不超过月度上限
func (s *QuotaService) Consume(user *model.User) error {
	plan := model.GetPlan(user.Subscription.Plan)

	ok, err := s.userRepo.IncrementUsage(user.ID, plan.Limits.PostsPerMonth)
	if err != nil {
		return err
	}
	if !ok {
		current, err := s.userRepo.GetByID(user.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		user.Subscription = current.Subscription
		return &LimitError{
			Type:    LimitMonthly,
			Current: current.Subscription.CurrentUsage,
			Limit:   plan.Limits.PostsPerMonth,
			ResetAt: current.Subscription.NextResetDate,
			Plan:    plan,
		}
	}

	user.Subscription.CurrentUsage++
	return nil
}

// GetUsage 获取用户当前的日/月用量
func (s *QuotaService) GetUsage(user *model.User) (*dto.UsageResponse, error) {
	now := s.nowFn()
	if err := s.applyMonthlyReset(user, now); err != nil {
		return nil, err
	}

	usage, err := s.snapshot(user, now)
	if err != nil {
		return nil, err
	}

	return &dto.UsageResponse{
		Daily: dto.UsageWindow{
			Current:   usage.Daily,
			Limit:     usage.Plan.Limits.PostsPerDay,
			ResetTime: usage.DailyResetAt.Format(time.RFC3339),
		},
		Monthly: dto.UsageWindow{
			Current:   usage.Monthly,
			Limit:     usage.Plan.Limits.PostsPerMonth,
			ResetTime: usage.NextResetDate.Format(time.RFC3339),
		},
		Plan: dto.PlanSummary{ID: usage.Plan.ID, Name: usage.Plan.Name},
	}, nil
}

func (s *QuotaService) snapshot(user *model.User, now time.Time) (*Usage, error) {
	plan := model.GetPlan(user.Subscription.Plan)
	dayStart := s.startOfDay(now)

	usage := &Usage{
		Plan:          plan,
		Monthly:       user.Subscription.CurrentUsage,
		NextResetDate: user.Subscription.NextResetDate,
		DailyResetAt:  dayStart.AddDate(0, 0, 1),
	}

	daily, err := s.postRepo.CountByUserSince(user.ID, dayStart)
	if err != nil {
		return nil, err
	}
	usage.Daily = int(daily)

	return usage, nil
}

// applyMonthlyReset 到达重置时间时清零，并按整月推进到下一次重置时间
func (s *QuotaService) applyMonthlyReset(user *model.User, now time.Time) error {
	anchor := user.Subscription.NextResetDate
	if now.Before(anchor) {
		return nil
	}

	next := nextMonthlyReset(anchor, now)
	reset, err := s.userRepo.ResetUsage(user.ID, anchor, next)
	if err != nil {
		return err
	}
	if !reset {
		// 并发请求已经重置过，以库里的值为准，不能再清一次用量
		fresh, err := s.userRepo.GetByID(user.ID)
		if err != nil {
			return err
		}
		user.Subscription = fresh.Subscription
		return nil
	}

	user.Subscription.CurrentUsage = 0
	user.Subscription.NextResetDate = next
	return nil
}

// nextMonthlyReset 从 anchor 起按日历月推进，返回第一个晚于 now 的时间。
// 每次都从 anchor 计算，避免月末日期反复归一化后漂移
func nextMonthlyReset(anchor, now time.Time) time.Time {
	if anchor.IsZero() {
		return now.AddDate(0, 1, 0)
	}
	for months := 1; ; months++ {
		next := anchor.AddDate(0, months, 0)
		if next.After(now) {
			return next
		}
	}
}

func (s *QuotaService) startOfDay(now time.Time) time.Time {
	local := now.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}
