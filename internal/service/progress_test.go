package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qs3c/brevity_server/internal/pkg/pubsub"
)

type capturePublisher struct {
	msgs []*pubsub.ProgressMessage
	err  error
}

func (p *capturePublisher) PublishProgress(ctx context.Context, msg *pubsub.ProgressMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestProgressObserver_Observe(t *testing.T) {
	pub := &capturePublisher{}
	o := &ProgressObserver{pub: pub}

	o.Observe(context.Background(), StageEvent{SessionID: "s1", Stage: StageGenerating})
	o.Observe(context.Background(), StageEvent{SessionID: "s1", Stage: StageDone, URL: "https://x.blogspot.com/1"})
	o.Observe(context.Background(), StageEvent{
		SessionID: "s1",
		Stage:     StageFailed,
		Err:       &StageError{Stage: StagePublishing, Err: ErrPublishPermission},
	})

	if assert.Len(t, pub.msgs, 3) {
		assert.Equal(t, "s1", pub.msgs[0].SessionID)
		assert.Equal(t, pubsub.StageGenerating, pub.msgs[0].Stage)
		assert.Empty(t, pub.msgs[0].Error)
		assert.Equal(t, "https://x.blogspot.com/1", pub.msgs[1].URL)
		assert.Equal(t, "You do not have permission to publish to this blog", pub.msgs[2].Error)
	}
}

func TestProgressObserver_PublishFailureIgnored(t *testing.T) {
	pub := &capturePublisher{err: errors.New("redis down")}
	o := &ProgressObserver{pub: pub}

	assert.NotPanics(t, func() {
		o.Observe(context.Background(), StageEvent{SessionID: "s1", Stage: StageGenerating})
	})
	assert.Len(t, pub.msgs, 1)
}
