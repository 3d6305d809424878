package dto

// PublishRequest 生成并发布文章请求
type PublishRequest struct {
	Topic              string `json:"topic" binding:"required,max=500"`
	Category           string `json:"category" binding:"omitempty,max=30"`
	CustomInstructions string `json:"custom_instructions" binding:"omitempty,max=2000"`
	BlogID             string `json:"blog_id" binding:"omitempty,max=64"`
	GenerationAPIKey   string `json:"gemini_api_key" binding:"omitempty,max=256"`
	AccessToken        string `json:"access_token" binding:"omitempty"`
}

// PublishResponse 发布结果
type PublishResponse struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	PostID string `json:"post_id,omitempty"`
}

// LimitInfo 限额信息，用于前端展示重试时间
type LimitInfo struct {
	LimitType    string `json:"limit_type"` // monthly, daily, anonymous
	CurrentUsage int    `json:"current_usage"`
	Limit        int    `json:"limit"`
	ResetTime    string `json:"reset_time"`
	PlanID       string `json:"plan_id,omitempty"`
	UpgradePlan  string `json:"upgrade_plan,omitempty"`
}
