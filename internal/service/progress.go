package service

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/qs3c/brevity_server/internal/pkg/pubsub"
)

type progressPublisher interface {
	PublishProgress(ctx context.Context, msg *pubsub.ProgressMessage) error
}

// ProgressObserver 把发布阶段推送到 Redis，由 WebSocket 端转发给浏览器
type ProgressObserver struct {
	pub progressPublisher
}

func NewProgressObserver(pub *pubsub.Publisher) *ProgressObserver {
	return &ProgressObserver{pub: pub}
}

func (o *ProgressObserver) Observe(ctx context.Context, ev StageEvent) {
	msg := &pubsub.ProgressMessage{
		SessionID: ev.SessionID,
		Stage:     string(ev.Stage),
		URL:       ev.URL,
	}
	if ev.Err != nil {
		msg.Error = PublicMessage(ev.Err)
	}

	if err := o.pub.PublishProgress(ctx, msg); err != nil {
		log.WithError(err).WithField("stage", ev.Stage).Debug("failed to publish progress")
	}
}
