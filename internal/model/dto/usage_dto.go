package dto

// UsageResponse 用量统计
type UsageResponse struct {
	Daily   UsageWindow `json:"daily"`
	Monthly UsageWindow `json:"monthly"`
	Plan    PlanSummary `json:"plan"`
}

// UsageWindow 单个统计窗口；Limit 为 -1 表示不限
type UsageWindow struct {
	Current   int    `json:"current"`
	Limit     int    `json:"limit"`
	ResetTime string `json:"reset_time"`
}

type PlanSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PostListRequest 文章列表请求参数
type PostListRequest struct {
	Page  int `form:"page,default=1" binding:"min=1"`
	Limit int `form:"limit,default=10" binding:"min=1,max=100"`
}

// PostItem 文章列表项
type PostItem struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Topic     string `json:"topic"`
	Category  string `json:"category"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}
