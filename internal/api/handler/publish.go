package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/brevity_server/config"
	"github.com/qs3c/brevity_server/internal/api/middleware"
	"github.com/qs3c/brevity_server/internal/model"
	"github.com/qs3c/brevity_server/internal/model/dto"
	"github.com/qs3c/brevity_server/internal/pkg/ratelimit"
	"github.com/qs3c/brevity_server/internal/pkg/response"
	"github.com/qs3c/brevity_server/internal/service"
)

type PublishHandler struct {
	publishService *service.PublishService
	anonymous      config.AnonymousLimitConfig
}

func NewPublishHandler(publishService *service.PublishService, cfg *config.Config) *PublishHandler {
	return &PublishHandler{
		publishService: publishService,
		anonymous:      cfg.RateLimit.Anonymous,
	}
}

// Publish 生成文章并发布到 Blogger；未登录时按匿名频率限制
// POST /api/v1/posts/publish
func (h *PublishHandler) Publish(c *gin.Context) {
	var req dto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	in := service.PublishInput{Request: &req}
	in.SessionID, _ = middleware.GetSessionID(c)
	if user, ok := middleware.GetUser(c); ok {
		in.User = user
	} else {
		in.Fingerprint = ratelimit.Fingerprint(c.ClientIP(), c.Request.UserAgent(), h.anonymous.UserAgentLen)
	}

	resp, err := h.publishService.Publish(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "发布成功", resp)
}

func (h *PublishHandler) writeError(c *gin.Context, err error) {
	msg := service.PublicMessage(err)

	var limitErr *service.LimitError
	var rateErr *service.RateLimitError
	switch {
	case errors.As(err, &limitErr):
		response.ErrorWithData(c, response.CodeQuotaExceeded, msg, limitInfo(limitErr))
	case errors.As(err, &rateErr):
		response.RateLimitError(c, msg, dto.LimitInfo{
			LimitType:    "anonymous",
			CurrentUsage: h.anonymous.Limit,
			Limit:        h.anonymous.Limit,
			ResetTime:    rateErr.ResetAt.UTC().Format(time.RFC3339),
		})
	case errors.Is(err, service.ErrValidation):
		var stageErr *service.StageError
		if errors.As(err, &stageErr) {
			err = stageErr.Err
		}
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrReauthenticationRequired):
		response.ReauthError(c, msg)
	case errors.Is(err, service.ErrAuthRequired),
		errors.Is(err, service.ErrAuthentication),
		errors.Is(err, service.ErrPublishAuth):
		response.AuthError(c, msg)
	case errors.Is(err, service.ErrPublishPermission):
		response.PermissionError(c, msg)
	case errors.Is(err, service.ErrGenerationTimeout), errors.Is(err, service.ErrPublishTimeout):
		response.Error(c, response.CodeUpstreamTimeout, msg)
	case errors.Is(err, service.ErrGeneration):
		response.Error(c, response.CodeGenerationFailed, msg)
	case errors.Is(err, service.ErrPublish):
		response.Error(c, response.CodePublishFailed, msg)
	default:
		response.ServerError(c, "")
	}
}

// limitInfo 限额详情，月度超限时附带可升级的套餐
func limitInfo(e *service.LimitError) dto.LimitInfo {
	info := dto.LimitInfo{
		LimitType:    string(e.Type),
		CurrentUsage: e.Current,
		Limit:        e.Limit,
		ResetTime:    e.ResetAt.UTC().Format(time.RFC3339),
		PlanID:       e.Plan.ID,
	}
	if e.Type == service.LimitMonthly {
		if plan, ok := model.UpgradePlanFor(e.Current); ok && plan.ID != e.Plan.ID {
			info.UpgradePlan = plan.ID
		}
	}
	return info
}
