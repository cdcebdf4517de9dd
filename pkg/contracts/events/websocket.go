// Package events contains the WebSocket event contracts pushed to open
// dashboards when the set of stored datasets changes.
package events

import (
	"time"

	"survdash/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Dataset lifecycle messages
	MessageTypeDatasetLoaded  MessageType = "dataset:loaded"
	MessageTypeDatasetDeleted MessageType = "dataset:deleted"
	MessageTypeDatasetExpired MessageType = "dataset:expired"

	// System messages
	MessageTypeSystemStatus MessageType = "system:status"

	// Connection messages
	MessageTypeConnect MessageType = "connect"
)

// Eviction reasons carried by dataset:expired
const (
	ReasonTTL      = "ttl"
	ReasonCapacity = "capacity"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// DatasetEvent is the payload of every dataset:* message. A client holding a
// dashboard for Dataset.ID re-fetches it on dataset:loaded and drops it on
// dataset:deleted or dataset:expired.
type DatasetEvent struct {
	Dataset domain.DatasetInfo `json:"dataset"`
	Reason  string             `json:"reason,omitempty"`
}

// NewMessage builds a message stamped with the current time
func NewMessage(msgType MessageType, traceID string, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	}
}
