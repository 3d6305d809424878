package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// APIError 生成接口返回非 200
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api error: status %d: %s", e.StatusCode, e.Message)
}

// Article 生成结果，标题取自首行
type Article struct {
	Title   string
	Content string // markdown 正文，不含标题行
}

type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

func NewClient(endpoint, model string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// Generate 调用 generateContent，apiKey 由调用方按请求决定
func (c *Client) Generate(ctx context.Context, apiKey, prompt string) (*Article, error) {
	if apiKey == "" {
		return nil, &APIError{StatusCode: http.StatusUnauthorized, Message: "missing api key"}
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return nil, err
	}

	// key 放在请求头里，网络错误中的 URL 不会带出 key
	u := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	text := gjson.GetBytes(raw, "candidates.0.content.parts.0.text").String()
	if strings.TrimSpace(text) == "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "empty generation result"}
	}

	return ParseArticle(text), nil
}

// ParseArticle 首个非空行作为标题，去掉 markdown 标题符号和 "Title:" 前缀
func ParseArticle(text string) *Article {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return &Article{}
	}

	title := strings.TrimSpace(lines[i])
	title = strings.TrimSpace(strings.TrimLeft(title, "#"))
	if len(title) >= 6 && strings.EqualFold(title[:6], "title:") {
		title = strings.TrimSpace(title[6:])
	}
	title = strings.Trim(title, "*\"")

	return &Article{
		Title:   title,
		Content: strings.TrimSpace(strings.Join(lines[i+1:], "\n")),
	}
}
