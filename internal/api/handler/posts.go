package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/brevity_server/internal/api/middleware"
	"github.com/qs3c/brevity_server/internal/model/dto"
	"github.com/qs3c/brevity_server/internal/pkg/response"
	"github.com/qs3c/brevity_server/internal/service"
)

type PostHandler struct {
	postService  *service.PostService
	quotaService *service.QuotaService
}

func NewPostHandler(postService *service.PostService, quotaService *service.QuotaService) *PostHandler {
	return &PostHandler{
		postService:  postService,
		quotaService: quotaService,
	}
}

// List 当前用户发布过的文章
// GET /api/v1/posts?page=1&limit=10
func (h *PostHandler) List(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.PostListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	items, total, err := h.postService.ListPosts(user.ID, req.Page, req.Limit)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, req.Page, req.Limit, items)
}

// Usage 获取当前用户的用量
// GET /api/v1/user/usage
func (h *PostHandler) Usage(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	usage, err := h.quotaService.GetUsage(user)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, usage)
}
