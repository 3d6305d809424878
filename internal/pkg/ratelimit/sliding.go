package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// 清理窗口外的记录后计数，未满时才记入本次调用
var slidingWindowScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[2])
local count = redis.call("ZCARD", KEYS[1])
local allowed = 0
if count < tonumber(ARGV[4]) then
  redis.call("ZADD", KEYS[1], ARGV[1], ARGV[5])
  count = count + 1
  allowed = 1
end
redis.call("PEXPIRE", KEYS[1], ARGV[3])
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
local oldestScore = ARGV[1]
if oldest[2] then
  oldestScore = oldest[2]
end
return {allowed, count, oldestScore}
`)

// Result 一次限流判定的结果
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time // 最早一条记录滑出窗口的时间
}

// Limiter 按指纹计数的滑动窗口限流器
type Limiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	nowFn  func() time.Time
}

type Option func(*Limiter)

// WithClock 注入时钟，便于测试窗口滑动
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.nowFn = now }
}

func NewLimiter(client *redis.Client, prefix string, limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
		limit:  limit,
		window: window,
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow 判定并记录一次调用；被拒绝的调用不计入窗口
func (l *Limiter) Allow(ctx context.Context, fingerprint string) (Result, error) {
	now := l.nowFn()
	if l.limit <= 0 {
		return Result{Allowed: false, ResetAt: now.Add(l.window)}, nil
	}

	nowMs := now.UnixMilli()
	windowMs := l.window.Milliseconds()
	member := uuid.NewString()

	// 参数全部以字符串传入脚本，避免 Lua 数字格式化丢失毫秒精度
	res, err := slidingWindowScript.Run(ctx, l.client, []string{l.key(fingerprint)},
		strconv.FormatInt(nowMs, 10),
		strconv.FormatInt(nowMs-windowMs, 10),
		strconv.FormatInt(windowMs, 10),
		strconv.Itoa(l.limit),
		member,
	).Result()
	if err != nil {
		return Result{}, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return Result{}, errors.New("rate limit redis: unexpected response")
	}
	allowed, _ := vals[0].(int64)
	count, _ := vals[1].(int64)
	oldestStr, _ := vals[2].(string)
	oldest, err := strconv.ParseFloat(oldestStr, 64)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit redis: bad score %q: %w", oldestStr, err)
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   allowed == 1,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(int64(oldest)).Add(l.window),
	}, nil
}

func (l *Limiter) key(fingerprint string) string {
	if l.prefix == "" {
		return fingerprint
	}
	return l.prefix + ":" + fingerprint
}

// Fingerprint 匿名调用方标识：客户端 IP + User-Agent 前 n 个字符
func Fingerprint(ip, userAgent string, n int) string {
	ua := []rune(userAgent)
	if n >= 0 && len(ua) > n {
		ua = ua[:n]
	}
	return ip + "|" + string(ua)
}
