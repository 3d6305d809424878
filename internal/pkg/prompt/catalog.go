package prompt

import (
	"fmt"
	"strings"
)

const DefaultCategory = "general"

// Category 文章分类及其写作角色
type Category struct {
	Value string `json:"value"`
	Label string `json:"label"`
	role  string
	focus string
	words string
}

var categories = []Category{
	{"technology", "Technology", "a technology journalist who breaks down complex tech concepts for mainstream readers",
		"the latest developments, real-world implications and expert perspectives", "800-1200"},
	{"health", "Health & Wellness", "a certified health professional and evidence-based wellness writer",
		"recent research, practical tips and a compassionate tone without exaggerated claims", "900-1300"},
	{"finance", "Finance & Money", "a financial advisor who simplifies complex financial concepts",
		"economic context, common misconceptions and actionable advice without specific investment recommendations", "800-1200"},
	{"travel", "Travel", "an experienced travel writer",
		"vivid sensory details, cultural insight, hidden gems and practical logistics", "900-1300"},
	{"food", "Food & Cooking", "a culinary expert with deep knowledge of cooking techniques and food science",
		"step-by-step guidance, substitutions and troubleshooting", "800-1200"},
	{"marketing", "Marketing & Business", "a digital marketing strategist",
		"current trends, case study examples and actionable frameworks", "900-1300"},
	{"lifestyle", "Lifestyle", "a lifestyle writer",
		"personal anecdotes, expert perspectives and budget-friendly ideas", "800-1200"},
	{"education", "Education & Learning", "an education specialist versed in learning science",
		"learning theories, implementation strategies and concrete examples", "900-1300"},
	{"entertainment", "Entertainment", "an entertainment journalist",
		"cultural analysis, industry insight and thoughtful critique without clickbait", "800-1200"},
	{"general", "General", "a professional content writer who explains new and complex topics in simple language",
		"an SEO friendly, keyword rich structure with a catchy title", "800-1300"},
}

// Categories 可选分类列表
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Normalize 未知或空分类回退到 general
func Normalize(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	for _, c := range categories {
		if c.Value == category {
			return category
		}
	}
	return DefaultCategory
}

func lookup(category string) Category {
	value := Normalize(category)
	for _, c := range categories {
		if c.Value == value {
			return c
		}
	}
	return categories[len(categories)-1]
}

// Build 组装生成提示词：分类模板 + 主题 + 用户附加要求
func Build(category, topic, customInstructions string) string {
	c := lookup(category)

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. Write an engaging, factually accurate article about %q. ", c.role, strings.TrimSpace(topic))
	fmt.Fprintf(&b, "Cover %s. The article should be %s words. ", c.focus, c.words)
	b.WriteString("Format it in Markdown: put the title alone on the first line, then the body with headings and bullet points where useful.")

	if extra := strings.TrimSpace(customInstructions); extra != "" {
		b.WriteString("\n\nAdditional instructions: ")
		b.WriteString(extra)
	}
	return b.String()
}
