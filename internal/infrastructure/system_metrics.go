package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// GaugeSources supplies the values read on every metrics collection
type GaugeSources struct {
	// ActiveDatasets reports the number of datasets currently held
	ActiveDatasets func() int
	// StartTime is the process start used for uptime
	StartTime time.Time
}

// SystemMetrics holds observable gauges and their callback registration
type SystemMetrics struct {
	activeDatasets metric.Int64ObservableGauge
	uptime         metric.Float64ObservableGauge
	registration   metric.Registration
}

// NewSystemMetrics registers datasets_active and process uptime gauges.
// Values are pulled at collection time so they never drift from the store.
func NewSystemMetrics(meter metric.Meter, sources GaugeSources) (*SystemMetrics, error) {
	activeDatasets, err := meter.Int64ObservableGauge(
		"datasets_active",
		metric.WithDescription("Datasets currently held in memory"),
	)
	if err != nil {
		return nil, err
	}

	uptime, err := meter.Float64ObservableGauge(
		"system_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	if sources.StartTime.IsZero() {
		sources.StartTime = time.Now()
	}

	sm := &SystemMetrics{activeDatasets: activeDatasets, uptime: uptime}
	sm.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		if sources.ActiveDatasets != nil {
			o.ObserveInt64(activeDatasets, int64(sources.ActiveDatasets()))
		}
		o.ObserveFloat64(uptime, time.Since(sources.StartTime).Seconds())
		return nil
	}, activeDatasets, uptime)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// Stop unregisters the gauge callback
func (sm *SystemMetrics) Stop() error {
	if sm == nil || sm.registration == nil {
		return nil
	}
	return sm.registration.Unregister()
}
