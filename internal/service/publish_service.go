package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/qs3c/brevity_server/config"
	"github.com/qs3c/brevity_server/internal/model"
	"github.com/qs3c/brevity_server/internal/model/dto"
	"github.com/qs3c/brevity_server/internal/pkg/blogger"
	"github.com/qs3c/brevity_server/internal/pkg/gemini"
	"github.com/qs3c/brevity_server/internal/pkg/metrics"
	"github.com/qs3c/brevity_server/internal/pkg/prompt"
	"github.com/qs3c/brevity_server/internal/pkg/ratelimit"
	"github.com/qs3c/brevity_server/internal/pkg/render"
	"github.com/qs3c/brevity_server/internal/pkg/secret"
	"github.com/qs3c/brevity_server/internal/repository"
)

// Stage 发布流程的状态
type Stage string

const (
	StageIdle           Stage = "idle"
	StageQuotaChecking  Stage = "quota_checking"
	StageTokenResolving Stage = "token_resolving"
	StageGenerating     Stage = "generating"
	StagePublishing     Stage = "publishing"
	StageRecording      Stage = "recording"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

var (
	ErrValidation           = errors.New("invalid publish request")
	ErrAnonymousRateLimited = errors.New("anonymous rate limit exceeded")
	ErrGeneration           = errors.New("content generation failed")
	ErrGenerationTimeout    = errors.New("content generation timed out")
	ErrPublishAuth          = errors.New("blogger rejected the access token")
	ErrPublishPermission    = errors.New("no permission to publish to this blog")
	ErrPublish              = errors.New("publishing failed")
	ErrPublishTimeout       = errors.New("publishing timed out")
)

// StageError 标记失败发生在哪个阶段
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// RateLimitError 匿名调用被限流
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("anonymous rate limit exceeded, retry after %s", e.ResetAt.Format(time.RFC3339))
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrAnonymousRateLimited
}

type Generator interface {
	Generate(ctx context.Context, apiKey, prompt string) (*gemini.Article, error)
}

type Publisher interface {
	Publish(ctx context.Context, accessToken, blogID string, post blogger.Post) (*blogger.Published, error)
}

type AnonymousLimiter interface {
	Allow(ctx context.Context, fingerprint string) (ratelimit.Result, error)
}

type Archiver interface {
	ArchivePost(userID, postID int64, html []byte) (string, error)
}

// StageEvent 一次状态迁移
type StageEvent struct {
	SessionID string
	Stage     Stage
	Err       error
	URL       string
}

type Observer interface {
	Observe(ctx context.Context, ev StageEvent)
}

// PublishInput 一次发布请求及调用方身份；User 为 nil 表示匿名调用
type PublishInput struct {
	Request     *dto.PublishRequest
	SessionID   string
	User        *model.User
	Fingerprint string
}

type PublishDeps struct {
	Quota     *QuotaService
	Tokens    *TokenService
	Limiter   AnonymousLimiter
	Generator Generator
	Publisher Publisher
	Renderer  *render.Renderer
	UserRepo  *repository.UserRepository
	PostRepo  *repository.PostRepository
	Cipher    *secret.Cipher
	Archiver  Archiver // 可选
	Observer  Observer // 可选
	Metrics   metrics.Recorder
}

type PublishService struct {
	deps              PublishDeps
	defaultAPIKey     string
	generationTimeout time.Duration
	publishTimeout    time.Duration
}

func NewPublishService(deps PublishDeps, cfg *config.Config) *PublishService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Renderer == nil {
		deps.Renderer = render.New()
	}
	return &PublishService{
		deps:              deps,
		defaultAPIKey:     cfg.Generation.APIKey,
		generationTimeout: cfg.Generation.Timeout(),
		publishTimeout:    cfg.Publishing.Timeout(),
	}
}

// publishRun 单次发布的状态
type publishRun struct {
	in       PublishInput
	stage    Stage
	started  time.Time
	topic    string
	category string
	blogID   string
	token    string
	article  *gemini.Article
	html     string
	result   *blogger.Published
}

// Publish 执行 配额 -> 凭证 -> 生成 -> 发布 -> 记录。
// 调用方断开不会中断已开始的发布，每次外部调用受各自的超时约束
func (s *PublishService) Publish(ctx context.Context, in PublishInput) (*dto.PublishResponse, error) {
	ctx = context.WithoutCancel(ctx)
	run := &publishRun{in: in, stage: StageIdle, started: time.Now()}

	if err := s.validate(run); err != nil {
		return nil, s.fail(ctx, run, err)
	}

	steps := []struct {
		stage Stage
		fn    func(context.Context, *publishRun) error
	}{
		{StageQuotaChecking, s.checkQuota},
		{StageTokenResolving, s.resolveToken},
		{StageGenerating, s.generate},
		{StagePublishing, s.publish},
	}
	for _, step := range steps {
		s.enter(ctx, run, step.stage)
		if err := step.fn(ctx, run); err != nil {
			return nil, s.fail(ctx, run, err)
		}
	}

	if in.User != nil {
		s.enter(ctx, run, StageRecording)
		s.record(run)
	}

	s.enter(ctx, run, StageDone)
	s.deps.Metrics.RecordPublish("success")
	s.observe(ctx, StageEvent{SessionID: in.SessionID, Stage: StageDone, URL: run.result.URL})

	return &dto.PublishResponse{
		URL:    run.result.URL,
		Title:  run.article.Title,
		PostID: run.result.ID,
	}, nil
}

func (s *PublishService) validate(run *publishRun) error {
	req := run.in.Request
	if req == nil {
		return fmt.Errorf("%w: empty request", ErrValidation)
	}

	run.topic = strings.TrimSpace(req.Topic)
	if run.topic == "" {
		return fmt.Errorf("%w: topic is required", ErrValidation)
	}
	run.category = prompt.Normalize(req.Category)

	run.blogID = strings.TrimSpace(req.BlogID)
	if run.blogID == "" && run.in.User != nil {
		run.blogID = run.in.User.BlogID
	}
	if run.blogID == "" {
		return fmt.Errorf("%w: blog id is required", ErrValidation)
	}
	return nil
}

func (s *PublishService) checkQuota(ctx context.Context, run *publishRun) error {
	if run.in.User != nil {
		_, err := s.deps.Quota.Check(run.in.User)
		return err
	}

	res, err := s.deps.Limiter.Allow(ctx, run.in.Fingerprint)
	if err != nil {
		return fmt.Errorf("rate limiter unavailable: %w", err)
	}
	if !res.Allowed {
		s.deps.Metrics.RecordAnonymousThrottle()
		return &RateLimitError{ResetAt: res.ResetAt}
	}
	return nil
}

func (s *PublishService) resolveToken(ctx context.Context, run *publishRun) error {
	// 调用方直接提供的 token 优先
	if token := strings.TrimSpace(run.in.Request.AccessToken); token != "" {
		run.token = token
		return nil
	}
	if run.in.SessionID == "" {
		return ErrAuthRequired
	}

	token, err := s.deps.Tokens.GetValidAccessToken(ctx, run.in.SessionID)
	if err != nil {
		return err
	}
	run.token = token
	return nil
}

func (s *PublishService) generate(ctx context.Context, run *publishRun) error {
	apiKey, err := s.apiKeyFor(run)
	if err != nil {
		return err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	article, err := s.deps.Generator.Generate(genCtx, apiKey,
		prompt.Build(run.category, run.topic, run.in.Request.CustomInstructions))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrGenerationTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if strings.TrimSpace(article.Content) == "" {
		return fmt.Errorf("%w: empty article", ErrGeneration)
	}
	if article.Title == "" {
		article.Title = run.topic
	}
	run.article = article

	html, err := s.deps.Renderer.HTML(article.Content)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	run.html = html
	return nil
}

// apiKeyFor 请求中的 key 优先，其次是用户保存的 key，最后是服务默认 key
func (s *PublishService) apiKeyFor(run *publishRun) (string, error) {
	if key := strings.TrimSpace(run.in.Request.GenerationAPIKey); key != "" {
		return key, nil
	}
	if run.in.User != nil && run.in.User.GenerationAPIKey != "" {
		key, err := s.deps.Cipher.Decrypt(run.in.User.GenerationAPIKey)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt stored api key: %w", err)
		}
		return key, nil
	}
	if s.defaultAPIKey == "" {
		return "", fmt.Errorf("%w: generation api key is required", ErrValidation)
	}
	return s.defaultAPIKey, nil
}

func (s *PublishService) publish(ctx context.Context, run *publishRun) error {
	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	result, err := s.deps.Publisher.Publish(pubCtx, run.token, run.blogID, blogger.Post{
		Title:   run.article.Title,
		Content: run.html,
		Labels:  []string{run.category},
	})
	if err != nil {
		var apiErr *blogger.APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: %w", ErrPublishAuth, err)
		case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrPublishPermission, err)
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(pubCtx.Err(), context.DeadlineExceeded):
			return fmt.Errorf("%w: %w", ErrPublishTimeout, err)
		default:
			return fmt.Errorf("%w: %w", ErrPublish, err)
		}
	}
	run.result = result
	return nil
}

// record 文章已经发布成功，这里的失败只记日志
func (s *PublishService) record(run *publishRun) {
	user := run.in.User
	logger := log.WithFields(log.Fields{"user_id": user.ID, "url": run.result.URL})

	post := &model.Post{
		UserID:       user.ID,
		Title:        run.article.Title,
		Topic:        run.topic,
		Category:     run.category,
		URL:          run.result.URL,
		Content:      run.html,
		RemotePostID: run.result.ID,
	}
	if err := s.deps.PostRepo.Create(post); err != nil {
		logger.WithError(err).Error("failed to record post")
	}

	if err := s.deps.Quota.Consume(user); err != nil {
		logger.WithError(err).Warn("failed to consume quota")
	}

	if user.BlogID == "" {
		if err := s.deps.UserRepo.SetBlogIDIfEmpty(user.ID, run.blogID); err != nil {
			logger.WithError(err).Warn("failed to remember blog id")
		}
	}

	if key := strings.TrimSpace(run.in.Request.GenerationAPIKey); key != "" && user.GenerationAPIKey == "" {
		encrypted, err := s.deps.Cipher.Encrypt(key)
		if err == nil {
			err = s.deps.UserRepo.SetAPIKeyIfEmpty(user.ID, encrypted)
		}
		if err != nil {
			logger.WithError(err).Warn("failed to remember api key")
		}
	}

	if s.deps.Archiver != nil && post.ID != 0 {
		if _, err := s.deps.Archiver.ArchivePost(user.ID, post.ID, []byte(run.html)); err != nil {
			logger.WithError(err).Warn("failed to archive post")
		}
	}
}

func (s *PublishService) enter(ctx context.Context, run *publishRun, stage Stage) {
	now := time.Now()
	if run.stage != StageIdle {
		s.deps.Metrics.RecordStage(string(run.stage), now.Sub(run.started))
	}
	run.stage = stage
	run.started = now

	if stage != StageDone {
		s.observe(ctx, StageEvent{SessionID: run.in.SessionID, Stage: stage})
	}
}

func (s *PublishService) fail(ctx context.Context, run *publishRun, err error) error {
	stageErr := &StageError{Stage: run.stage, Err: err}

	s.deps.Metrics.RecordPublish(outcome(err))
	fields := log.Fields{"stage": run.stage, "category": run.category}
	if run.in.User != nil {
		fields["user_id"] = run.in.User.ID
	}
	log.WithFields(fields).WithError(err).Warn("publish failed")

	s.observe(ctx, StageEvent{SessionID: run.in.SessionID, Stage: StageFailed, Err: stageErr})
	return stageErr
}

func (s *PublishService) observe(ctx context.Context, ev StageEvent) {
	if s.deps.Observer != nil && ev.SessionID != "" {
		s.deps.Observer.Observe(ctx, ev)
	}
}

// outcome 指标中的结果标签
func outcome(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrAnonymousRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrAuthRequired), errors.Is(err, ErrReauthenticationRequired), errors.Is(err, ErrAuthentication):
		return "auth"
	case errors.Is(err, ErrGenerationTimeout), errors.Is(err, ErrPublishTimeout):
		return "timeout"
	case errors.Is(err, ErrGeneration):
		return "generation_failed"
	case errors.Is(err, ErrPublishAuth), errors.Is(err, ErrPublishPermission), errors.Is(err, ErrPublish):
		return "publish_failed"
	default:
		return "error"
	}
}
