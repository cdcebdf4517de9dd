package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"survdash/internal/config"
	"survdash/internal/dataprocessing"
	"survdash/internal/shared/testutil"
	"survdash/pkg/contracts/events"
)

// MockEventPublisher is a mock for the EventPublisher interface
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishDatasetEvent(ctx context.Context, msgType events.MessageType, event events.DatasetEvent) {
	m.Called(ctx, msgType, event)
}

// recordingPublisher keeps every event for later inspection
type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Type  events.MessageType
	Event events.DatasetEvent
}

func (p *recordingPublisher) PublishDatasetEvent(_ context.Context, msgType events.MessageType, event events.DatasetEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: msgType, Event: event})
}

func (p *recordingPublisher) all() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

// fakeClock is a settable clock for TTL tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// lineListDataset parses the shared workbook fixture
func lineListDataset(t *testing.T) *dataprocessing.Dataset {
	t.Helper()
	table, err := dataprocessing.Parse("line_list.xlsx", testutil.LineListWorkbook(t), dataprocessing.ParseOptions{})
	require.NoError(t, err)
	return dataprocessing.NewDataset(table)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Store.SweepSchedule = ""
	return cfg
}
