package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/logger"
)

const defaultPublishTimeout = 10 * time.Second

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

// PubSubNotifier publishes order events as JSON messages on a Pub/Sub topic.
type PubSubNotifier struct {
	pub     publisher
	logg    *logger.Logger
	timeout time.Duration
}

// NewPubSubNotifier wraps a Pub/Sub publisher handle.
func NewPubSubNotifier(p *gcppubsub.Publisher, logg *logger.Logger) (*PubSubNotifier, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return &PubSubNotifier{pub: &gcpPublisher{Publisher: p}, logg: logg, timeout: defaultPublishTimeout}, nil
}

func (n *PubSubNotifier) Notify(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id":     event.ID.String(),
			"event_type":   string(event.Type),
			"order_id":     event.OrderID.String(),
			"order_number": event.OrderNumber,
			"occurred_at":  event.OccurredAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	result := n.pub.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	serverID, err := result.Get(publishCtx)
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	if n.logg != nil {
		logCtx := n.logg.WithFields(ctx, map[string]any{
			"order_id":   event.OrderID.String(),
			"event_type": string(event.Type),
			"message_id": serverID,
		})
		n.logg.Debug(logCtx, "notification published")
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
