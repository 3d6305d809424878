package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageProgress(t *testing.T) {
	stages := []string{StageQuotaChecking, StageTokenResolving, StageGenerating, StagePublishing, StageRecording, StageDone}

	for i, stage := range stages {
		progress, ok := StageProgress[stage]
		assert.True(t, ok, "stage %s should have progress value", stage)
		assert.NotEmpty(t, StageMessages[stage])
		if i > 0 {
			assert.Less(t, StageProgress[stages[i-1]], progress)
		}
	}
	assert.Equal(t, 100, StageProgress[StageDone])
	assert.NotEmpty(t, StageMessages[StageFailed])
}

func TestProgressMessage_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(&ProgressMessage{Stage: StageGenerating})
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, key := range []string{"session_id", "message", "error", "url"} {
		_, ok := raw[key]
		assert.False(t, ok, "empty %s should be omitted", key)
	}
}

func TestPublisherSubscriber(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *ProgressMessage, 1)
	go func() {
		NewSubscriber(client).Subscribe(ctx, func(msg *ProgressMessage) {
			received <- msg
		})
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(ChannelPublishProgress)[ChannelPublishProgress] == 1
	}, 2*time.Second, 10*time.Millisecond)

	err := NewPublisher(client).PublishProgress(ctx, &ProgressMessage{
		SessionID: "sess-1",
		Stage:     StageGenerating,
	})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, MessageTypeProgress, msg.Type)
		assert.Equal(t, "sess-1", msg.SessionID)
		assert.Equal(t, StageGenerating, msg.Stage)
		assert.Equal(t, 40, msg.Progress) // 按阶段补齐
		assert.Equal(t, StageMessages[StageGenerating], msg.Message)
	case <-ctx.Done():
		t.Fatal("timeout waiting for message")
	}
}

func TestSubscriber_StopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewSubscriber(client).Subscribe(ctx, func(*ProgressMessage) {})
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(ChannelPublishProgress)[ChannelPublishProgress] == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
