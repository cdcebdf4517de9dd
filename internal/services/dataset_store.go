package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"survdash/internal/dataprocessing"
	"survdash/internal/infrastructure"
	"survdash/pkg/contracts/domain"
	"survdash/pkg/contracts/events"
)

// Snapshot is one ingested upload. Its dataset is never modified after
// Put, so readers share it without locking.
type Snapshot struct {
	info      domain.DatasetInfo
	dataset   *dataprocessing.Dataset
	seq       uint64
	dashboard atomic.Pointer[domain.Dashboard]
}

// Info returns the snapshot's metadata
func (s *Snapshot) Info() domain.DatasetInfo {
	return s.info
}

// Dataset returns the immutable parsed dataset
func (s *Snapshot) Dataset() *dataprocessing.Dataset {
	return s.dataset
}

// StoreConfig bounds the dataset store
type StoreConfig struct {
	// TTL is how long a snapshot lives after upload. Zero keeps snapshots
	// until they are deleted or pushed out by capacity.
	TTL time.Duration
	// MaxDatasets caps the number of snapshots; the oldest is evicted first
	MaxDatasets int
	// SweepSchedule is a cron expression for the expiry sweep
	SweepSchedule string
	// Now overrides the clock; tests pin it
	Now func() time.Time
}

// EvictionHandler is called after snapshots leave the store on their own
// (expiry or capacity), never for explicit deletes
type EvictionHandler func(ctx context.Context, evicted []domain.DatasetInfo, reason string)

// DatasetStore keeps ingested snapshots in memory keyed by UUID
type DatasetStore struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
	seq       uint64

	cfg     StoreConfig
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
	onEvict EvictionHandler

	builds singleflight.Group

	scheduler *cron.Cron
	closed    bool
}

// NewDatasetStore creates an empty store. Call Start to run the expiry sweep.
func NewDatasetStore(cfg StoreConfig, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *DatasetStore {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxDatasets <= 0 {
		cfg.MaxDatasets = 20
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &DatasetStore{
		snapshots: make(map[string]*Snapshot),
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "dataset_store")),
		metrics:   metrics,
	}
}

// OnEvict registers the handler notified of expiry and capacity evictions
func (s *DatasetStore) OnEvict(handler EvictionHandler) {
	s.mu.Lock()
	s.onEvict = handler
	s.mu.Unlock()
}

// Start schedules the expiry sweep. It is a no-op without a TTL or schedule.
func (s *DatasetStore) Start() error {
	if s.cfg.TTL <= 0 || s.cfg.SweepSchedule == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if s.scheduler != nil {
		return nil
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(s.cfg.SweepSchedule, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.cfg.SweepSchedule, err)
	}
	scheduler.Start()
	s.scheduler = scheduler

	s.logger.Info("Dataset sweep scheduled",
		slog.String("schedule", s.cfg.SweepSchedule),
		slog.Duration("ttl", s.cfg.TTL),
		slog.Int("max_datasets", s.cfg.MaxDatasets))
	return nil
}

// Stop halts the sweep and waits for a running sweep to finish
func (s *DatasetStore) Stop() {
	s.mu.Lock()
	scheduler := s.scheduler
	s.scheduler = nil
	s.closed = true
	s.mu.Unlock()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
}

// Put stores a dataset under a new ID and returns its metadata
func (s *DatasetStore) Put(ctx context.Context, filename string, ds *dataprocessing.Dataset) (domain.DatasetInfo, error) {
	now := s.cfg.Now()

	info := domain.DatasetInfo{
		ID:             uuid.NewString(),
		Filename:       filename,
		Sheet:          ds.Raw.Sheet(),
		HeaderRow:      ds.Raw.HeaderRow(),
		Columns:        ds.Raw.Headers(),
		MissingColumns: ds.MissingColumns(),
		RawRows:        len(ds.Records),
		CleanedRows:    len(ds.CleanRecords),
		UnparsedAges:   ds.UnparsedAges,
		UnparsedDates:  ds.UnparsedDates,
		UploadedAt:     now,
	}
	if s.cfg.TTL > 0 {
		info.ExpiresAt = now.Add(s.cfg.TTL)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.DatasetInfo{}, ErrStoreClosed
	}
	s.seq++
	s.snapshots[info.ID] = &Snapshot{info: info, dataset: ds, seq: s.seq}
	evicted := s.evictOverCapacityLocked()
	handler := s.onEvict
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Dataset stored",
		slog.String("dataset_id", info.ID),
		slog.String("filename", filename),
		slog.Int("raw_rows", info.RawRows),
		slog.Int("cleaned_rows", info.CleanedRows))

	s.notify(ctx, handler, evicted, events.ReasonCapacity)
	return info, nil
}

// evictOverCapacityLocked removes the oldest snapshots until the store fits
func (s *DatasetStore) evictOverCapacityLocked() []domain.DatasetInfo {
	over := len(s.snapshots) - s.cfg.MaxDatasets
	if over <= 0 {
		return nil
	}

	ordered := s.orderedLocked()
	evicted := make([]domain.DatasetInfo, 0, over)
	for _, snap := range ordered[:over] {
		delete(s.snapshots, snap.info.ID)
		s.builds.Forget(snap.info.ID)
		evicted = append(evicted, snap.info)
	}
	return evicted
}

// orderedLocked returns snapshots oldest first
func (s *DatasetStore) orderedLocked() []*Snapshot {
	out := make([]*Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (s *DatasetStore) expired(snap *Snapshot, now time.Time) bool {
	return !snap.info.ExpiresAt.IsZero() && !now.Before(snap.info.ExpiresAt)
}

// Get returns a live snapshot. Expired snapshots are reported as not found
// even before the sweep removes them.
func (s *DatasetStore) Get(id string) (*Snapshot, error) {
	s.mu.RLock()
	snap, ok := s.snapshots[id]
	s.mu.RUnlock()

	if !ok || s.expired(snap, s.cfg.Now()) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return snap, nil
}

// List returns live snapshot metadata, newest first
func (s *DatasetStore) List() []domain.DatasetInfo {
	now := s.cfg.Now()

	s.mu.RLock()
	ordered := s.orderedLocked()
	s.mu.RUnlock()

	out := make([]domain.DatasetInfo, 0, len(ordered))
	for i := len(ordered) - 1; i >= 0; i-- {
		if !s.expired(ordered[i], now) {
			out = append(out, ordered[i].info)
		}
	}
	return out
}

// Delete removes a snapshot
func (s *DatasetStore) Delete(ctx context.Context, id string) (domain.DatasetInfo, error) {
	s.mu.Lock()
	snap, ok := s.snapshots[id]
	if ok {
		delete(s.snapshots, id)
		s.builds.Forget(id)
	}
	s.mu.Unlock()

	if !ok {
		return domain.DatasetInfo{}, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}

	s.logger.InfoContext(ctx, "Dataset deleted", slog.String("dataset_id", id))
	return snap.info, nil
}

// Len returns the number of snapshots held, including any awaiting the sweep
func (s *DatasetStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// Sweep removes expired snapshots and returns how many were dropped
func (s *DatasetStore) Sweep(ctx context.Context) int {
	now := s.cfg.Now()

	s.mu.Lock()
	var evicted []domain.DatasetInfo
	for id, snap := range s.snapshots {
		if s.expired(snap, now) {
			delete(s.snapshots, id)
			s.builds.Forget(id)
			evicted = append(evicted, snap.info)
		}
	}
	handler := s.onEvict
	s.mu.Unlock()

	if len(evicted) > 0 {
		sort.Slice(evicted, func(i, j int) bool { return evicted[i].UploadedAt.Before(evicted[j].UploadedAt) })
		s.logger.InfoContext(ctx, "Expired datasets swept", slog.Int("count", len(evicted)))
	}

	s.notify(ctx, handler, evicted, events.ReasonTTL)
	return len(evicted)
}

func (s *DatasetStore) notify(ctx context.Context, handler EvictionHandler, evicted []domain.DatasetInfo, reason string) {
	if len(evicted) == 0 {
		return
	}

	for _, info := range evicted {
		s.logger.InfoContext(ctx, "Dataset evicted",
			slog.String("dataset_id", info.ID),
			slog.String("reason", reason))
	}

	infrastructure.RecordEviction(ctx, s.metrics, reason, len(evicted))
	if handler != nil {
		handler(ctx, evicted, reason)
	}
}

// Dashboard returns the snapshot's full dashboard, building it at most once.
// Concurrent first requests for the same snapshot share one build.
func (s *DatasetStore) Dashboard(ctx context.Context, id string, build func(context.Context, *dataprocessing.Dataset) *domain.Dashboard) (*domain.Dashboard, error) {
	snap, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if d := snap.dashboard.Load(); d != nil {
		return d, nil
	}

	v, err, shared := s.builds.Do(id, func() (interface{}, error) {
		if d := snap.dashboard.Load(); d != nil {
			return d, nil
		}
		d := build(ctx, snap.dataset)
		d.DatasetID = id
		snap.dashboard.Store(d)
		return d, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		s.logger.DebugContext(ctx, "Dashboard build shared", slog.String("dataset_id", id))
	}
	return v.(*domain.Dashboard), nil
}
