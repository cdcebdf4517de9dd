package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "survdash.websocket"
)

// OTelMetrics provides OpenTelemetry metrics for WebSocket operations.
// A nil *OTelMetrics records nothing.
type OTelMetrics struct {
	// Connection metrics
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram

	// Message metrics
	messagesTotal   metric.Int64Counter
	messageBytes    metric.Int64Counter
	droppedMessages metric.Int64Counter

	// Hub metrics
	broadcastOperations metric.Int64Counter
	clientCount         metric.Int64Gauge
}

// NewOTelMetrics creates the WebSocket instruments on meter. A nil meter
// uses the global meter provider.
func NewOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	m := &OTelMetrics{}
	var err error

	if m.connectionsTotal, err = meter.Int64Counter(
		"websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections"),
	); err != nil {
		return nil, err
	}

	if m.connectionsActive, err = meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections"),
	); err != nil {
		return nil, err
	}

	if m.connectionDuration, err = meter.Float64Histogram(
		"websocket_connection_duration_seconds",
		metric.WithDescription("Duration of WebSocket connections"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.messagesTotal, err = meter.Int64Counter(
		"websocket_messages_total",
		metric.WithDescription("Total number of WebSocket messages"),
	); err != nil {
		return nil, err
	}

	if m.messageBytes, err = meter.Int64Counter(
		"websocket_message_bytes_total",
		metric.WithDescription("Total bytes of WebSocket messages"),
	); err != nil {
		return nil, err
	}

	if m.droppedMessages, err = meter.Int64Counter(
		"websocket_dropped_messages_total",
		metric.WithDescription("Messages not delivered to a client"),
	); err != nil {
		return nil, err
	}

	if m.broadcastOperations, err = meter.Int64Counter(
		"websocket_broadcasts_total",
		metric.WithDescription("Total number of hub broadcasts"),
	); err != nil {
		return nil, err
	}

	if m.clientCount, err = meter.Int64Gauge(
		"websocket_clients",
		metric.WithDescription("Current number of connected WebSocket clients"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordConnection records a new WebSocket connection
func (m *OTelMetrics) RecordConnection(ctx context.Context) {
	if m == nil {
		return
	}
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

// RecordDisconnection records a WebSocket disconnection
func (m *OTelMetrics) RecordDisconnection(ctx context.Context, duration time.Duration, reason string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("disconnect_reason", reason))
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordMessageSent records an outbound message
func (m *OTelMetrics) RecordMessageSent(ctx context.Context, messageType string, size int64) {
	m.recordMessage(ctx, "outbound", messageType, size)
}

// RecordMessageReceived records an inbound message
func (m *OTelMetrics) RecordMessageReceived(ctx context.Context, messageType string, size int64) {
	m.recordMessage(ctx, "inbound", messageType, size)
}

func (m *OTelMetrics) recordMessage(ctx context.Context, direction, messageType string, size int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.String("message_type", messageType),
	)
	m.messagesTotal.Add(ctx, 1, attrs)
	m.messageBytes.Add(ctx, size, attrs)
}

// RecordDroppedMessage records a message that was not delivered
func (m *OTelMetrics) RecordDroppedMessage(ctx context.Context, messageType, reason string) {
	if m == nil {
		return
	}
	m.droppedMessages.Add(ctx, 1, metric.WithAttributes(
		attribute.String("message_type", messageType),
		attribute.String("drop_reason", reason),
	))
}

// RecordBroadcast records one fan-out; failed counts clients dropped for
// being too slow to receive it
func (m *OTelMetrics) RecordBroadcast(ctx context.Context, messageType string, failed int64) {
	if m == nil {
		return
	}
	m.broadcastOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("message_type", messageType),
		attribute.Bool("complete", failed == 0),
	))
	if failed > 0 {
		m.droppedMessages.Add(ctx, failed, metric.WithAttributes(
			attribute.String("message_type", messageType),
			attribute.String("drop_reason", "slow_client"),
		))
	}
}

// RecordClientCount records the current number of connected clients
func (m *OTelMetrics) RecordClientCount(ctx context.Context, count int64) {
	if m == nil {
		return
	}
	m.clientCount.Record(ctx, count)
}
