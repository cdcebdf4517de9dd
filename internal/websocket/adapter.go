package websocket

import (
	"context"
	"log/slog"

	"survdash/internal/infrastructure"
	"survdash/pkg/contracts/events"
)

// EventAdapter turns service lifecycle events into hub broadcasts
type EventAdapter struct {
	hub    *Hub
	logger *slog.Logger
}

// NewEventAdapter creates an adapter publishing to hub
func NewEventAdapter(hub *Hub, logger *slog.Logger) *EventAdapter {
	if logger == nil {
		logger = hub.logger
	}
	return &EventAdapter{
		hub:    hub,
		logger: logger.With(slog.String("component", "websocket_adapter")),
	}
}

// PublishDatasetEvent broadcasts a dataset:* message carrying the caller's trace ID
func (a *EventAdapter) PublishDatasetEvent(ctx context.Context, msgType events.MessageType, event events.DatasetEvent) {
	msg := events.NewMessage(msgType, infrastructure.GetTraceID(ctx), event)
	if err := a.hub.Publish(msg); err != nil {
		a.logger.WarnContext(ctx, "Dataset event not published",
			slog.String("type", string(msgType)),
			slog.String("dataset_id", event.Dataset.ID),
			slog.String("error", err.Error()))
		return
	}

	a.logger.DebugContext(ctx, "Dataset event published",
		slog.String("type", string(msgType)),
		slog.String("dataset_id", event.Dataset.ID),
		slog.String("reason", event.Reason))
}

// PublishStatus broadcasts a system:status message
func (a *EventAdapter) PublishStatus(ctx context.Context, status string, detail map[string]interface{}) {
	data := map[string]interface{}{"status": status}
	for k, v := range detail {
		data[k] = v
	}
	if err := a.hub.Publish(events.NewMessage(events.MessageTypeSystemStatus, infrastructure.GetTraceID(ctx), data)); err != nil {
		a.logger.DebugContext(ctx, "Status not published", slog.String("error", err.Error()))
	}
}
