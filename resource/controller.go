package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds simulated device resource limits.
type Config struct {
	// DeviceMemoryBytes is the hard limit for physical device memory.
	// If 0, no hard limit is enforced (only tracking).
	DeviceMemoryBytes int64

	// MapBytesPerSec is the maximum throughput for map operations.
	// If 0, unlimited. Useful for simulating slow devices in stress tests.
	MapBytesPerSec int64
}

// Controller tracks and limits the physical resources of a simulated device.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Map throughput
	mapLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.DeviceMemoryBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.DeviceMemoryBytes)
	}

	if cfg.MapBytesPerSec > 0 {
		c.mapLimiter = rate.NewLimiter(rate.Limit(cfg.MapBytesPerSec), int(cfg.MapBytesPerSec))
	}

	return c
}

// TryAcquireMemory attempts to reserve physical memory without blocking.
// Returns true if acquired, false if the limit would be exceeded.
//
// Map calls are synchronous and must fail immediately on exhaustion, so
// this is the variant the simulated provider uses.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return false
		}
	}

	c.memUsed.Add(bytes)
	return true
}

// AcquireMemory reserves physical memory, blocking until it is available or
// ctx is canceled. Intended for stress tests that want back-pressure instead
// of immediate mapping failures.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved physical memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the currently reserved physical memory in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured hard limit, or 0 if unlimited.
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.DeviceMemoryBytes
}

// WaitMap applies the map throughput limit for an operation of the given
// size, blocking until the limiter admits it or ctx is canceled.
func (c *Controller) WaitMap(ctx context.Context, bytes int) error {
	if c == nil || c.mapLimiter == nil || bytes <= 0 {
		return nil
	}

	// Admit oversized bursts in limiter-sized slices.
	burst := c.mapLimiter.Burst()
	for bytes > 0 {
		n := bytes
		if n > burst {
			n = burst
		}
		if err := c.mapLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
