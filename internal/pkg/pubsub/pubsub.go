package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelPublishProgress = "publish_progress"
	MessageTypeProgress    = "publish_progress"
)

// ProgressMessage 发布流程的阶段进度
type ProgressMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"` // 路由到对应的 WebSocket 连接，下发前清空
	Stage     string `json:"stage"`
	Progress  int    `json:"progress"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	URL       string `json:"url,omitempty"`
}

// 阶段常量，与发布状态机一致
const (
	StageQuotaChecking  = "quota_checking"
	StageTokenResolving = "token_resolving"
	StageGenerating     = "generating"
	StagePublishing     = "publishing"
	StageRecording      = "recording"
	StageDone           = "done"
	StageFailed         = "failed"
)

// 阶段对应的进度百分比
var StageProgress = map[string]int{
	StageQuotaChecking:  10,
	StageTokenResolving: 20,
	StageGenerating:     40,
	StagePublishing:     70,
	StageRecording:      90,
	StageDone:           100,
}

var StageMessages = map[string]string{
	StageQuotaChecking:  "Checking your quota",
	StageTokenResolving: "Verifying your Google session",
	StageGenerating:     "Writing your article",
	StagePublishing:     "Publishing to Blogger",
	StageRecording:      "Saving your post",
	StageDone:           "Published",
	StageFailed:         "Publishing failed",
}

type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishProgress 发布进度消息，未填的进度和文案按阶段补齐
func (p *Publisher) PublishProgress(ctx context.Context, msg *ProgressMessage) error {
	msg.Type = MessageTypeProgress

	if msg.Progress == 0 {
		msg.Progress = StageProgress[msg.Stage]
	}
	if msg.Message == "" {
		msg.Message = StageMessages[msg.Stage]
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal progress message: %w", err)
	}

	return p.client.Publish(ctx, ChannelPublishProgress, data).Err()
}

type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 阻塞订阅进度消息，直到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ProgressMessage)) error {
	ps := s.client.Subscribe(ctx, ChannelPublishProgress)
	defer ps.Close()

	// 等待订阅确认，避免订阅建立前的消息丢失
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var progress ProgressMessage
			if err := json.Unmarshal([]byte(msg.Payload), &progress); err != nil {
				continue // 忽略解析错误
			}

			handler(&progress)
		}
	}
}
