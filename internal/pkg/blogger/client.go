package blogger

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	bloggerapi "google.golang.org/api/blogger/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// APIError Blogger 返回的错误，StatusCode 用于区分授权失效和无权限
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("blogger api error: status %d: %s", e.StatusCode, e.Message)
}

type Post struct {
	Title   string
	Content string // HTML
	Labels  []string
}

type Published struct {
	ID  string
	URL string
}

type Client struct {
	endpoint string
}

// NewClient endpoint 为空时使用官方地址
func NewClient(endpoint string) *Client {
	return &Client{endpoint: endpoint}
}

// Publish 以用户的 access token 发布文章
func (c *Client) Publish(ctx context.Context, accessToken, blogID string, post Post) (*Published, error) {
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := bloggerapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create blogger client: %w", err)
	}

	created, err := svc.Posts.Insert(blogID, &bloggerapi.Post{
		Title:   post.Title,
		Content: post.Content,
		Labels:  post.Labels,
	}).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, &APIError{StatusCode: gerr.Code, Message: gerr.Message}
		}
		return nil, fmt.Errorf("blogger request failed: %w", err)
	}

	return &Published{ID: created.Id, URL: created.Url}, nil
}
