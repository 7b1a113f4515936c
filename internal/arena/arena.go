package arena

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vmemgo/driver"
)

var (
	// ErrCapacity is returned when an allocation would push the watermark
	// past the reserved capacity. The arena is left unchanged.
	ErrCapacity = errors.New("arena: virtual address space exhausted")

	// ErrAlignment is returned when the requested alignment is not a
	// power-of-two multiple of the mapping granularity.
	ErrAlignment = errors.New("arena: unsupported alignment")

	// ErrInvalidSize is returned when a size argument is zero.
	ErrInvalidSize = errors.New("arena: size must be positive")

	// ErrSpanOutOfRange is returned when a freed span does not lie inside
	// the occupied region [0, watermark).
	ErrSpanOutOfRange = errors.New("arena: span outside occupied region")

	// ErrClosed is returned when operating on a closed arena.
	ErrClosed = errors.New("arena: closed")
)

// chunk is one physically backed piece of the occupied region. Chunks
// exactly tile [0, watermark) in offset order.
type chunk struct {
	offset uint64
	size   uint64
	handle driver.ChunkHandle
}

// Arena manages a single reserved virtual address range, growing and
// shrinking the physically backed prefix [0, watermark) on demand.
//
// The arena deliberately never reuses a hole that is not adjacent to the
// watermark: Alloc only ever grows the mark, Free only ever shrinks it. It
// is a growth-and-shrink arena, not a general free-list allocator.
//
// Arena is not safe for concurrent use; callers needing concurrency must
// serialize externally.
type Arena struct {
	provider driver.Provider
	ctx      driver.Context
	access   []driver.AccessDescriptor

	rng    driver.Range
	mark   uint64 // boundary between mapped [0, mark) and unmapped reserve
	free   freeList
	chunks []chunk
	closed bool
}

// New reserves a virtual address range of size bytes and returns an arena
// over it. No physical memory is committed until the first Alloc.
//
// access lists peer devices that may access mapped chunks; an empty slice
// grants no peer access.
func New(provider driver.Provider, ctx driver.Context, size uint64, access []driver.AccessDescriptor) (*Arena, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: zero capacity", ErrInvalidSize)
	}

	granularity, err := provider.Granularity(ctx)
	if err != nil {
		return nil, fmt.Errorf("arena: query granularity: %w", err)
	}
	if granularity == 0 || granularity&(granularity-1) != 0 {
		return nil, fmt.Errorf("arena: provider reported invalid granularity %d", granularity)
	}

	rng, err := provider.ReserveRange(ctx, size)
	if err != nil {
		return nil, fmt.Errorf("arena: reserve %d bytes: %w", size, err)
	}

	return &Arena{
		provider: provider,
		ctx:      ctx,
		access:   access,
		rng:      rng,
	}, nil
}

// Alloc maps numBytes of physical memory at the watermark and returns the
// byte offset of the new block together with the number of bytes actually
// granted (numBytes rounded up to the granularity).
//
// alignment 0 means "use the mapping granularity". Any other alignment must
// be a power-of-two multiple of the granularity.
//
// On any failure the arena is left byte-for-byte unchanged. Capacity is
// evaluated purely against the current watermark; existing holes below it
// are never consulted.
func (a *Arena) Alloc(alignment, numBytes uint64) (offset, granted uint64, err error) {
	if a.closed {
		return 0, 0, ErrClosed
	}
	if numBytes == 0 {
		return 0, 0, ErrInvalidSize
	}

	g := a.rng.Granularity
	effAlignment := alignment
	if effAlignment == 0 {
		effAlignment = g
	}
	if effAlignment%g != 0 || effAlignment&(effAlignment-1) != 0 {
		return 0, 0, fmt.Errorf("%w: %d is not a power-of-two multiple of granularity %d", ErrAlignment, alignment, g)
	}

	padded := roundUp(numBytes, g)
	if padded < numBytes || padded > a.rng.Capacity-a.mark {
		return 0, 0, fmt.Errorf("%w: need %d bytes at mark %d, capacity %d", ErrCapacity, padded, a.mark, a.rng.Capacity)
	}

	handle, err := a.provider.CreateAndMapChunk(a.ctx, a.rng, a.mark, padded, a.access)
	if err != nil {
		return 0, 0, fmt.Errorf("arena: map %d bytes at offset %d: %w", padded, a.mark, err)
	}

	offset = a.mark
	a.chunks = append(a.chunks, chunk{offset: offset, size: padded, handle: handle})
	a.mark += padded
	return offset, padded, nil
}

// Free records [offset, offset+numBytes) as free, coalescing it with any
// directly adjacent free interval. If the coalesced interval reaches the
// watermark, the watermark is pulled down past it and the covered chunks
// are unmapped; this cascades through every interval the shrink exposes.
//
// The span is trusted: the arena tracks no per-allocation boundaries, so a
// single Free may cover several prior allocations at once. It only has to
// lie inside [0, watermark). Freeing bytes that were never allocated, or
// freeing twice, is a caller error with unspecified results.
func (a *Arena) Free(offset, numBytes uint64) error {
	if a.closed {
		return ErrClosed
	}
	if numBytes == 0 {
		return ErrInvalidSize
	}
	end := offset + numBytes
	if end < offset || end > a.mark {
		return fmt.Errorf("%w: [%d, %d) with watermark %d", ErrSpanOutOfRange, offset, end, a.mark)
	}

	g := a.rng.Granularity
	lo := roundDown(offset, g)
	hi := roundUp(end, g)

	a.free.insert(lo, hi)

	// Shrink while the topmost free interval touches the watermark.
	// Coalescing usually leaves a single qualifying interval, but the loop
	// keeps the cascade explicit.
	for {
		start, ok := a.free.popEndingAt(a.mark)
		if !ok {
			break
		}
		a.trimTo(start)
	}
	return nil
}

// trimTo unmaps every chunk at or above the given offset and pulls the
// watermark down to it.
func (a *Arena) trimTo(offset uint64) {
	for len(a.chunks) > 0 {
		top := a.chunks[len(a.chunks)-1]
		if top.offset < offset {
			break
		}
		a.provider.UnmapAndDestroyChunk(a.ctx, top.handle)
		a.chunks = a.chunks[:len(a.chunks)-1]
	}
	a.mark = offset
}

// Close unmaps every chunk and releases the virtual range. It is
// idempotent; only the first call talks to the provider.
func (a *Arena) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	for i := len(a.chunks) - 1; i >= 0; i-- {
		a.provider.UnmapAndDestroyChunk(a.ctx, a.chunks[i].handle)
	}
	a.chunks = nil
	a.mark = 0
	a.free = freeList{}

	if err := a.provider.ReleaseRange(a.ctx, a.rng); err != nil {
		return fmt.Errorf("arena: release range: %w", err)
	}
	return nil
}

// Range returns the reserved virtual range.
func (a *Arena) Range() driver.Range { return a.rng }

// Base returns the base address of the reserved range.
func (a *Arena) Base() driver.DevicePtr { return a.rng.Base }

// Capacity returns the total reserved capacity in bytes.
func (a *Arena) Capacity() uint64 { return a.rng.Capacity }

// Granularity returns the mapping granularity in bytes.
func (a *Arena) Granularity() uint64 { return a.rng.Granularity }

// Watermark returns the current watermark offset: the boundary between the
// mapped region [0, Watermark) and the unmapped reserve.
func (a *Arena) Watermark() uint64 { return a.mark }

// MappedBytes returns the number of physically backed bytes.
func (a *Arena) MappedBytes() uint64 {
	var total uint64
	for _, c := range a.chunks {
		total += c.size
	}
	return total
}

// FreeBytes returns the number of freed-but-untrimmed bytes below the
// watermark.
func (a *Arena) FreeBytes() uint64 { return a.free.totalBytes() }

// LiveBytes returns the number of live allocated bytes.
func (a *Arena) LiveBytes() uint64 { return a.mark - a.free.totalBytes() }

// ChunkCount returns the number of mapped chunks.
func (a *Arena) ChunkCount() int { return len(a.chunks) }

// FreeIntervalCount returns the number of recorded free intervals.
func (a *Arena) FreeIntervalCount() int { return a.free.len() }

// Validate checks the arena's structural invariants: the watermark is a
// granularity multiple within capacity, chunks exactly tile the occupied
// region, and free intervals are sorted, disjoint, non-adjacent,
// granularity-aligned and bounded by the watermark.
func (a *Arena) Validate() error {
	g := a.rng.Granularity
	if a.mark%g != 0 {
		return fmt.Errorf("arena: watermark %d not a multiple of granularity %d", a.mark, g)
	}
	if a.mark > a.rng.Capacity {
		return fmt.Errorf("arena: watermark %d exceeds capacity %d", a.mark, a.rng.Capacity)
	}

	var next uint64
	for i, c := range a.chunks {
		if c.offset != next {
			return fmt.Errorf("arena: chunk %d at offset %d, want %d (gap or overlap)", i, c.offset, next)
		}
		if c.size == 0 || c.size%g != 0 {
			return fmt.Errorf("arena: chunk %d has invalid size %d", i, c.size)
		}
		next = c.offset + c.size
	}
	if next != a.mark {
		return fmt.Errorf("arena: chunks end at %d, watermark is %d", next, a.mark)
	}

	var prevEnd uint64
	for i, iv := range a.free.intervals {
		if iv.start >= iv.end {
			return fmt.Errorf("arena: free interval %d is empty or inverted", i)
		}
		if iv.start%g != 0 || iv.end%g != 0 {
			return fmt.Errorf("arena: free interval %d [%d, %d) not granularity-aligned", i, iv.start, iv.end)
		}
		if i > 0 && iv.start <= prevEnd {
			return fmt.Errorf("arena: free interval %d overlaps or touches its predecessor", i)
		}
		if iv.end > a.mark {
			return fmt.Errorf("arena: free interval %d ends at %d, past watermark %d", i, iv.end, a.mark)
		}
		prevEnd = iv.end
	}
	return nil
}

func roundUp(n, multiple uint64) uint64 {
	return (n + multiple - 1) / multiple * multiple
}

func roundDown(n, multiple uint64) uint64 {
	return n / multiple * multiple
}
