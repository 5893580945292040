package notifications

import (
	"context"

	"github.com/higorocha/SistemaWebAlencarFrutas-sub007/pkg/logger"
)

// LogNotifier writes events to the structured log. It is used when no
// Pub/Sub project is configured.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.logg == nil {
		return nil
	}
	logCtx := n.logg.WithFields(ctx, map[string]any{
		"order_id":     event.OrderID.String(),
		"order_number": event.OrderNumber,
		"event_type":   string(event.Type),
		"status":       string(event.Status),
	})
	n.logg.Info(logCtx, "order notification")
	return nil
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
