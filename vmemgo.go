package vmemgo

import (
	"fmt"
	"time"

	"github.com/hupe1980/vmemgo/driver"
	"github.com/hupe1980/vmemgo/internal/arena"
)

// Allocator manages a single device virtual address range with
// grow-at-the-watermark, shrink-on-free semantics.
//
// An Allocator exclusively owns its virtual range and every chunk mapped
// into it for its whole lifetime. Pointers returned by Alloc are views
// into the range; they are released via Free, never individually.
//
// Allocator is not safe for concurrent use.
type Allocator struct {
	arena   *arena.Arena
	device  driver.DeviceID
	logger  *Logger
	metrics MetricsCollector
}

// Create reserves virtualAddressSpaceSize bytes of device virtual address
// space under deviceCtx and returns an allocator over it. No physical
// memory is committed until the first Alloc.
//
// The capacity is fixed for the allocator's lifetime; it is rounded to the
// provider's mapping granularity by the provider. access lists peer
// devices that may access mapped memory; nil or empty grants no peer
// access.
func Create(provider driver.Provider, deviceCtx driver.Context, deviceID driver.DeviceID, virtualAddressSpaceSize uint64, access []driver.AccessDescriptor, optFns ...Option) (*Allocator, error) {
	o := applyOptions(optFns)

	if provider == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrInvalidConfig)
	}
	if virtualAddressSpaceSize == 0 {
		return nil, fmt.Errorf("%w: zero virtual address space size", ErrInvalidConfig)
	}

	ar, err := arena.New(provider, deviceCtx, virtualAddressSpaceSize, access)
	if err != nil {
		return nil, translateError(err)
	}

	logger := o.logger.WithDevice(deviceID)
	logger.LogCreate(ar.Base(), ar.Capacity(), ar.Granularity())

	return &Allocator{
		arena:   ar,
		device:  deviceID,
		logger:  logger,
		metrics: o.metricsCollector,
	}, nil
}

// Alloc maps numBytes of physical memory at the top of the arena and
// returns its device address together with the number of bytes actually
// granted. Requests are padded to the mapping granularity, so granted may
// exceed numBytes; the padding belongs to the allocation and must be
// included when freeing.
//
// alignment 0 means "use the mapping granularity"; any other value must be
// a power-of-two multiple of it.
//
// On failure the null pointer and a non-nil error are returned and the
// allocator is left byte-for-byte unchanged. ErrCapacityExceeded and
// ErrMapping are non-fatal: the caller may free memory or retry with a
// smaller request.
func (a *Allocator) Alloc(alignment, numBytes uint64) (driver.DevicePtr, uint64, error) {
	start := time.Now()

	offset, granted, err := a.arena.Alloc(alignment, numBytes)
	a.metrics.RecordAlloc(granted, time.Since(start), err)
	if err != nil {
		a.logger.LogAlloc(0, numBytes, 0, a.arena.Watermark(), err)
		return 0, 0, translateError(err)
	}

	ptr := a.arena.Base().Add(offset)
	a.logger.LogAlloc(ptr, numBytes, granted, a.arena.Watermark(), nil)
	return ptr, granted, nil
}

// Free returns [ptr, ptr+numBytes) to the allocator. The span must lie
// inside the occupied region but is otherwise trusted: the allocator keeps
// no per-allocation boundaries, so one call may free several prior
// allocations at once. Freed space adjacent to the top of the arena is
// unmapped immediately; interior holes are recorded and reclaimed when
// later frees connect them to the top.
//
// Freeing bytes that were never allocated, or freeing twice, is a caller
// error with unspecified results.
func (a *Allocator) Free(ptr driver.DevicePtr, numBytes uint64) error {
	start := time.Now()

	base := a.arena.Base()
	if ptr < base {
		err := fmt.Errorf("%w: pointer %s below range base %s", ErrInvalidArgument, ptr, base)
		a.metrics.RecordFree(numBytes, 0, time.Since(start), err)
		a.logger.LogFree(ptr, numBytes, 0, a.arena.Watermark(), err)
		return err
	}

	markBefore := a.arena.Watermark()
	err := a.arena.Free(ptr.Sub(base), numBytes)
	trimmed := markBefore - a.arena.Watermark()

	a.metrics.RecordFree(numBytes, trimmed, time.Since(start), err)
	if err != nil {
		a.logger.LogFree(ptr, numBytes, 0, a.arena.Watermark(), err)
		return translateError(err)
	}
	a.logger.LogFree(ptr, numBytes, trimmed, a.arena.Watermark(), nil)
	return nil
}

// Base returns the base address of the reserved range.
func (a *Allocator) Base() driver.DevicePtr { return a.arena.Base() }

// Capacity returns the total reserved capacity in bytes.
func (a *Allocator) Capacity() uint64 { return a.arena.Capacity() }

// Granularity returns the mapping granularity in bytes.
func (a *Allocator) Granularity() uint64 { return a.arena.Granularity() }

// Watermark returns the current watermark offset: everything below it is
// physically backed, everything at or above it is unmapped reserve.
func (a *Allocator) Watermark() uint64 { return a.arena.Watermark() }

// Device returns the device this allocator allocates on.
func (a *Allocator) Device() driver.DeviceID { return a.device }

// Stats is a point-in-time snapshot of the allocator's bookkeeping.
type Stats struct {
	Capacity      uint64
	Watermark     uint64
	MappedBytes   uint64
	LiveBytes     uint64
	FreeBytes     uint64
	FreeIntervals int
	Chunks        int
}

// Stats returns a snapshot of the allocator's bookkeeping.
func (a *Allocator) Stats() Stats {
	return Stats{
		Capacity:      a.arena.Capacity(),
		Watermark:     a.arena.Watermark(),
		MappedBytes:   a.arena.MappedBytes(),
		LiveBytes:     a.arena.LiveBytes(),
		FreeBytes:     a.arena.FreeBytes(),
		FreeIntervals: a.arena.FreeIntervalCount(),
		Chunks:        a.arena.ChunkCount(),
	}
}

// Close unmaps every chunk and releases the virtual address range back to
// the provider. It is idempotent.
func (a *Allocator) Close() error {
	if a == nil {
		return nil
	}
	err := a.arena.Close()
	a.logger.LogClose(err)
	return err
}
