package model

// Unlimited 表示该维度不设上限
const Unlimited = -1

const (
	PlanFree     = "free"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

type PlanPrice struct {
	USD float64 `json:"usd"`
	INR float64 `json:"inr"`
}

type PlanLimits struct {
	PostsPerMonth int `json:"posts_per_month"`
	PostsPerDay   int `json:"posts_per_day"`
}

type Plan struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       PlanPrice  `json:"price"`
	Limits      PlanLimits `json:"limits"`
	Features    []string   `json:"features"`
}

// HasMonthlyLimit 月度上限是否生效
func (p Plan) HasMonthlyLimit() bool {
	return p.Limits.PostsPerMonth != Unlimited
}

// HasDailyLimit 每日上限是否生效
func (p Plan) HasDailyLimit() bool {
	return p.Limits.PostsPerDay != Unlimited
}

var plans = []Plan{
	{
		ID:          PlanFree,
		Name:        "Free",
		Description: "Basic plan for occasional bloggers",
		Price:       PlanPrice{USD: 0, INR: 0},
		Limits:      PlanLimits{PostsPerMonth: 5, PostsPerDay: 2},
		Features: []string{
			"5 blog posts per month",
			"Basic AI content generation",
			"Standard blog templates",
		},
	},
	{
		ID:          PlanStandard,
		Name:        "Standard",
		Description: "Perfect for regular content creators",
		Price:       PlanPrice{USD: 5, INR: 400},
		Limits:      PlanLimits{PostsPerMonth: 150, PostsPerDay: 10},
		Features: []string{
			"150 blog posts per month",
			"Advanced AI content generation",
			"Priority support",
			"Custom blog templates",
		},
	},
	{
		ID:          PlanPremium,
		Name:        "Premium",
		Description: "For professional bloggers and businesses",
		Price:       PlanPrice{USD: 9, INR: 700},
		Limits:      PlanLimits{PostsPerMonth: 300, PostsPerDay: 20},
		Features: []string{
			"300 blog posts per month",
			"Premium AI content generation",
			"Priority support",
			"Custom blog templates",
			"Analytics dashboard",
			"SEO optimization tools",
		},
	},
}

// Plans 返回套餐目录的副本，Features 也一并复制
func Plans() []Plan {
	out := make([]Plan, len(plans))
	for i, p := range plans {
		out[i] = p.clone()
	}
	return out
}

func (p Plan) clone() Plan {
	p.Features = append([]string(nil), p.Features...)
	return p
}

// GetPlan 按 ID 查找套餐，未知 ID 回退到 free
func GetPlan(id string) Plan {
	for _, p := range plans {
		if p.ID == id {
			return p.clone()
		}
	}
	return plans[0].clone()
}

// UpgradePlanFor 找到第一个月度上限高于当前用量的付费套餐
func UpgradePlanFor(currentUsage int) (Plan, bool) {
	for _, p := range plans {
		if p.ID == PlanFree {
			continue
		}
		if !p.HasMonthlyLimit() || p.Limits.PostsPerMonth > currentUsage {
			return p.clone(), true
		}
	}
	return Plan{}, false
}
