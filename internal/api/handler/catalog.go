package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/brevity_server/internal/model"
	"github.com/qs3c/brevity_server/internal/pkg/prompt"
	"github.com/qs3c/brevity_server/internal/pkg/response"
)

// Plans 套餐列表
// GET /api/v1/plans
func Plans(c *gin.Context) {
	response.Success(c, gin.H{
		"plans": model.Plans(),
	})
}

// Categories 文章分类
// GET /api/v1/categories
func Categories(c *gin.Context) {
	response.Success(c, gin.H{
		"categories": prompt.Categories(),
		"default":    prompt.DefaultCategory,
	})
}
