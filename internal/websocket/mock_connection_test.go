package websocket

import (
	"errors"
	"net"
	"sync"
	"time"
)

var errMockClosed = errors.New("mock connection closed")

// MockConnection is an in-memory Connection. Reads block until a message is
// queued or the connection is closed.
type MockConnection struct {
	mu sync.Mutex

	written []MockMessage
	reads   chan MockMessage
	closed  chan struct{}
	once    sync.Once

	// WriteErr fails every write when set
	WriteErr error

	ReadLimit   int64
	PongHandler func(string) error
}

// MockMessage represents a message for mocking
type MockMessage struct {
	Type int
	Data []byte
	Err  error
}

// NewMockConnection creates a new mock connection
func NewMockConnection() *MockConnection {
	return &MockConnection{
		reads:  make(chan MockMessage, 16),
		closed: make(chan struct{}),
	}
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.written = append(m.written, MockMessage{Type: messageType, Data: append([]byte(nil), data...)})
	return nil
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.reads:
		return msg.Type, msg.Data, msg.Err
	case <-m.closed:
		return 0, nil, errMockClosed
	}
}

func (m *MockConnection) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

func (m *MockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *MockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	m.ReadLimit = limit
	m.mu.Unlock()
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	m.PongHandler = h
	m.mu.Unlock()
}

func (m *MockConnection) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 52100}
}

// AddReadMessage queues a message for ReadMessage
func (m *MockConnection) AddReadMessage(messageType int, data []byte, err error) {
	m.reads <- MockMessage{Type: messageType, Data: data, Err: err}
}

// Written returns a copy of every written message
func (m *MockConnection) Written() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockMessage(nil), m.written...)
}

// IsClosed reports whether Close was called
func (m *MockConnection) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}
