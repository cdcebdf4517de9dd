package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"survdash/internal/infrastructure"
	"survdash/pkg/contracts/events"
)

// broadcastQueue bounds the messages waiting for the hub loop
const broadcastQueue = 64

// ErrHubStopped is returned when publishing to a stopped hub
var ErrHubStopped = errors.New("websocket hub stopped")

// outbound is a marshaled message queued for fan-out
type outbound struct {
	msgType string
	data    []byte
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	// Mutex for thread-safe operations
	mu sync.RWMutex

	logger  *slog.Logger
	metrics *OTelMetrics

	// Counters
	totalConnections int64
	messagesSent     int64
	messagesDropped  int64

	// Control
	quit    chan struct{}
	done    chan struct{}
	running bool
	stopped bool
}

// HubStats is a snapshot of the hub counters
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
}

// NewHub creates a new Hub instance. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *OTelMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running || h.stopped {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop ends the hub loop and closes every client's send channel
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	wasRunning := h.running
	h.mu.Unlock()

	close(h.quit)
	if wasRunning {
		<-h.done
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.logger.Info("Hub stopped")
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.totalConnections++
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	h.metrics.RecordConnection(ctx)
	h.metrics.RecordClientCount(ctx, int64(count))

	welcome := events.NewMessage(events.MessageTypeConnect, client.traceID, map[string]interface{}{
		"status":    "connected",
		"client_id": client.id,
	})
	data, err := json.Marshal(welcome)
	if err != nil {
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	duration := time.Since(client.connectedAt)
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", duration))

	h.metrics.RecordDisconnection(ctx, duration, "normal")
	h.metrics.RecordClientCount(ctx, int64(count))
}

func (h *Hub) fanOut(msg outbound) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	var sent, failed int64
	for _, client := range clients {
		select {
		case client.send <- msg.data:
			sent++
		default:
			failed++
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()

			h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
			h.metrics.RecordDisconnection(client.context(), time.Since(client.connectedAt), "slow_client")
		}
	}

	h.mu.Lock()
	h.messagesSent += sent
	h.messagesDropped += failed
	h.mu.Unlock()

	h.logger.Debug("Broadcast delivered",
		slog.String("message_type", msg.msgType),
		slog.Int("client_count", len(clients)),
		slog.Int("message_size", len(msg.data)),
		slog.Int64("failed", failed))

	h.metrics.RecordBroadcast(context.Background(), msg.msgType, failed)
}

// Publish queues a message for every connected client. It never blocks:
// when the queue is full the message is dropped.
func (h *Hub) Publish(msg events.WebSocketMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msg.Type, err)
	}

	select {
	case <-h.quit:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- outbound{msgType: string(msg.Type), data: data}:
		return nil
	default:
		h.mu.Lock()
		h.messagesDropped++
		h.mu.Unlock()

		h.logger.Warn("Broadcast queue full, dropping message",
			slog.String("message_type", string(msg.Type)))
		h.metrics.RecordDroppedMessage(context.Background(), string(msg.Type), "queue_full")
		return nil
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.quit:
		return ErrHubStopped
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns current hub counters
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return HubStats{
		ActiveClients:    len(h.clients),
		TotalConnections: h.totalConnections,
		MessagesSent:     h.messagesSent,
		MessagesDropped:  h.messagesDropped,
	}
}
