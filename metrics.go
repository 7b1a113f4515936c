package vmemgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordAlloc is called after each Alloc. bytes is the granted size
	// (0 on failure), duration is the total time taken, err is nil if
	// successful.
	RecordAlloc(bytes uint64, duration time.Duration, err error)

	// RecordFree is called after each Free. bytes is the freed span size,
	// trimmed is the number of bytes the watermark dropped by.
	RecordFree(bytes, trimmed uint64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(uint64, time.Duration, error)        {}
func (NoopMetricsCollector) RecordFree(uint64, uint64, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocCount      atomic.Int64
	AllocErrors     atomic.Int64
	AllocBytes      atomic.Int64
	AllocTotalNanos atomic.Int64
	FreeCount       atomic.Int64
	FreeErrors      atomic.Int64
	FreeBytes       atomic.Int64
	TrimmedBytes    atomic.Int64
	FreeTotalNanos  atomic.Int64
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(bytes uint64, duration time.Duration, err error) {
	b.AllocCount.Add(1)
	b.AllocTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AllocErrors.Add(1)
		return
	}
	b.AllocBytes.Add(int64(bytes)) //nolint:gosec // granted sizes fit int64
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(bytes, trimmed uint64, duration time.Duration, err error) {
	b.FreeCount.Add(1)
	b.FreeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FreeErrors.Add(1)
		return
	}
	b.FreeBytes.Add(int64(bytes))      //nolint:gosec // span sizes fit int64
	b.TrimmedBytes.Add(int64(trimmed)) //nolint:gosec // span sizes fit int64
}
