package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/vmemgo/driver"
	"github.com/hupe1980/vmemgo/internal/hostmem"
	"github.com/hupe1980/vmemgo/resource"
)

// ErrLeak is returned by ReleaseRange when chunks are still mapped inside
// the range being released.
var ErrLeak = errors.New("sim: range released with chunks still mapped")

// ErrNotMapped is returned by the copy helpers when the addressed bytes
// are not backed by a mapped chunk.
var ErrNotMapped = errors.New("sim: address not mapped")

type rangeState struct {
	rng driver.Range
	// chunks mapped into this range, keyed by range-relative offset.
	chunks map[uint64]*chunkState
}

type chunkState struct {
	owner  *rangeState
	offset uint64
	size   uint64
	block  *hostmem.Block
}

// Provider is a deterministic in-memory driver.Provider.
//
// Chunks are backed by host memory, mapped granules are tracked in a
// bitmap over the fake device address space, and every contract violation
// the real driver would punish (double-map, misalignment, leaked chunks)
// is reported eagerly.
type Provider struct {
	opts options
	ctrl *resource.Controller

	mu         sync.Mutex
	nextBase   uint64
	reserved   uint64
	nextHandle driver.ChunkHandle
	ranges     map[driver.DevicePtr]*rangeState
	chunks     map[driver.ChunkHandle]*chunkState
	mapped     *roaring64.Bitmap // mapped granule indices, device-wide

	mapCalls   atomic.Int64
	unmapCalls atomic.Int64
}

var _ driver.Provider = (*Provider)(nil)

// New creates a simulated provider.
func New(optFns ...Option) *Provider {
	o := applyOptions(optFns)

	return &Provider{
		opts: o,
		ctrl: resource.NewController(resource.Config{
			DeviceMemoryBytes: o.deviceMemory,
			MapBytesPerSec:    o.mapBytesPerSec,
		}),
		nextBase: defaultBaseAddress,
		ranges:   make(map[driver.DevicePtr]*rangeState),
		chunks:   make(map[driver.ChunkHandle]*chunkState),
		mapped:   roaring64.New(),
	}
}

// Granularity implements driver.Provider.
func (p *Provider) Granularity(driver.Context) (uint64, error) {
	return p.opts.granularity, nil
}

// ReserveRange implements driver.Provider. The requested size is rounded
// up to the granularity.
func (p *Provider) ReserveRange(_ driver.Context, size uint64) (driver.Range, error) {
	if size == 0 {
		return driver.Range{}, fmt.Errorf("sim: zero-sized reservation: %w", driver.ErrReservation)
	}

	g := p.opts.granularity
	rounded := (size + g - 1) / g * g
	if rounded < size {
		return driver.Range{}, fmt.Errorf("sim: reservation overflows: %w", driver.ErrReservation)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if limit := p.opts.addressSpaceSize; limit > 0 && p.reserved+rounded > limit {
		return driver.Range{}, fmt.Errorf("sim: address space exhausted (%d of %d bytes reserved): %w",
			p.reserved, limit, driver.ErrReservation)
	}

	rng := driver.Range{
		Base:        driver.DevicePtr(p.nextBase),
		Capacity:    rounded,
		Granularity: g,
	}
	p.nextBase += rounded + g // guard granule between ranges
	p.reserved += rounded
	p.ranges[rng.Base] = &rangeState{
		rng:    rng,
		chunks: make(map[uint64]*chunkState),
	}
	return rng, nil
}

// CreateAndMapChunk implements driver.Provider.
func (p *Provider) CreateAndMapChunk(ctx driver.Context, rng driver.Range, offset, size uint64, access []driver.AccessDescriptor) (driver.ChunkHandle, error) {
	g := p.opts.granularity
	if size == 0 || offset%g != 0 || size%g != 0 {
		return 0, fmt.Errorf("sim: offset %d / size %d not granularity-aligned: %w", offset, size, driver.ErrMapping)
	}
	if offset+size < offset || offset+size > rng.Capacity {
		return 0, fmt.Errorf("sim: chunk [%d, %d) outside range capacity %d: %w", offset, offset+size, rng.Capacity, driver.ErrMapping)
	}
	if err := p.checkAccess(ctx, access); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rs, ok := p.ranges[rng.Base]
	if !ok {
		return 0, fmt.Errorf("sim: map into %s: %w", rng.Base, driver.ErrUnknownRange)
	}

	firstGranule := (uint64(rng.Base) + offset) / g
	lastGranule := firstGranule + size/g // exclusive
	for i := firstGranule; i < lastGranule; i++ {
		if p.mapped.Contains(i) {
			return 0, fmt.Errorf("sim: granule at %s already mapped: %w",
				rng.Base.Add(offset), driver.ErrMapping)
		}
	}

	if !p.ctrl.TryAcquireMemory(int64(size)) {
		return 0, fmt.Errorf("sim: device memory exhausted (%d of %d bytes in use): %w",
			p.ctrl.MemoryUsage(), p.ctrl.MemoryLimit(), driver.ErrMapping)
	}
	if err := p.ctrl.WaitMap(context.Background(), int(size)); err != nil {
		p.ctrl.ReleaseMemory(int64(size))
		return 0, fmt.Errorf("sim: map throttled: %w", driver.ErrMapping)
	}

	block, err := hostmem.Alloc(int(size))
	if err != nil {
		p.ctrl.ReleaseMemory(int64(size))
		return 0, fmt.Errorf("sim: back chunk with host memory: %w", driver.ErrMapping)
	}

	p.mapped.AddRange(firstGranule, lastGranule)
	p.nextHandle++
	cs := &chunkState{owner: rs, offset: offset, size: size, block: block}
	p.chunks[p.nextHandle] = cs
	rs.chunks[offset] = cs
	p.mapCalls.Add(1)
	return p.nextHandle, nil
}

func (p *Provider) checkAccess(ctx driver.Context, access []driver.AccessDescriptor) error {
	for _, ad := range access {
		if ad.Device == ctx.Device() {
			continue
		}
		if _, ok := p.opts.peers[ad.Device]; !ok {
			return fmt.Errorf("sim: access descriptor names unknown peer device %d: %w", ad.Device, driver.ErrMapping)
		}
	}
	return nil
}

// UnmapAndDestroyChunk implements driver.Provider. It panics on a handle
// this provider did not issue: that is a contract violation the simulation
// exists to catch.
func (p *Provider) UnmapAndDestroyChunk(_ driver.Context, handle driver.ChunkHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs, ok := p.chunks[handle]
	if !ok {
		panic(fmt.Sprintf("sim: unmap of unknown chunk handle %d", handle))
	}
	delete(p.chunks, handle)
	delete(cs.owner.chunks, cs.offset)

	g := p.opts.granularity
	firstGranule := (uint64(cs.owner.rng.Base) + cs.offset) / g
	p.mapped.RemoveRange(firstGranule, firstGranule+cs.size/g)

	p.ctrl.ReleaseMemory(int64(cs.size))
	_ = cs.block.Release()
	p.unmapCalls.Add(1)
}

// ReleaseRange implements driver.Provider. Releasing a range that still
// has mapped chunks fails with ErrLeak, so leaked chunks surface in tests.
func (p *Provider) ReleaseRange(_ driver.Context, rng driver.Range) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rs, ok := p.ranges[rng.Base]
	if !ok {
		return fmt.Errorf("sim: release of %s: %w", rng.Base, driver.ErrUnknownRange)
	}
	if n := len(rs.chunks); n > 0 {
		return fmt.Errorf("%w: %d chunks in [%s, %s)", ErrLeak, n, rng.Base, rng.End())
	}
	delete(p.ranges, rng.Base)
	p.reserved -= rng.Capacity
	return nil
}

// CopyToDevice copies src to the device memory at ptr. The destination
// must be fully mapped; copies may span chunk boundaries.
func (p *Provider) CopyToDevice(ptr driver.DevicePtr, src []byte) error {
	return p.walk(ptr, uint64(len(src)), func(dst []byte, off uint64) {
		copy(dst, src[off:])
	})
}

// CopyFromDevice copies device memory at ptr into dst.
func (p *Provider) CopyFromDevice(dst []byte, ptr driver.DevicePtr) error {
	return p.walk(ptr, uint64(len(dst)), func(src []byte, off uint64) {
		copy(dst[off:], src)
	})
}

// Memset fills n bytes of device memory at ptr with b.
func (p *Provider) Memset(ptr driver.DevicePtr, b byte, n uint64) error {
	return p.walk(ptr, n, func(dst []byte, _ uint64) {
		for i := range dst {
			dst[i] = b
		}
	})
}

// walk visits the host backing of [ptr, ptr+n) chunk piece by chunk piece.
// fn receives the backing slice for the piece and the piece's offset
// relative to ptr.
func (p *Provider) walk(ptr driver.DevicePtr, n uint64, fn func(backing []byte, off uint64)) error {
	if n == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rs := p.findRange(ptr)
	if rs == nil {
		return fmt.Errorf("%w: %s", ErrNotMapped, ptr)
	}

	offset := ptr.Sub(rs.rng.Base)
	if offset+n > rs.rng.Capacity {
		return fmt.Errorf("%w: [%s, %s) crosses range end", ErrNotMapped, ptr, ptr.Add(n))
	}

	var done uint64
	for done < n {
		cs := rs.chunkAt(offset + done)
		if cs == nil {
			return fmt.Errorf("%w: %s", ErrNotMapped, ptr.Add(done))
		}
		inChunk := offset + done - cs.offset
		piece := cs.size - inChunk
		if piece > n-done {
			piece = n - done
		}
		fn(cs.block.Bytes()[inChunk:inChunk+piece], done)
		done += piece
	}
	return nil
}

func (p *Provider) findRange(ptr driver.DevicePtr) *rangeState {
	for _, rs := range p.ranges {
		if rs.rng.Contains(ptr, 0) && ptr < rs.rng.End() {
			return rs
		}
	}
	return nil
}

// chunkAt returns the chunk covering the range-relative offset, or nil.
func (rs *rangeState) chunkAt(offset uint64) *chunkState {
	g := rs.rng.Granularity
	// Chunk sizes are unbounded, so probe granule-aligned start offsets
	// downward until a covering chunk is found.
	for probe := offset / g * g; ; probe -= g {
		if cs, ok := rs.chunks[probe]; ok {
			if offset < cs.offset+cs.size {
				return cs
			}
			return nil
		}
		if probe == 0 {
			return nil
		}
	}
}

// MappedBytes returns the total bytes currently backed by host memory.
func (p *Provider) MappedBytes() int64 {
	return p.ctrl.MemoryUsage()
}

// ReservedBytes returns the total reserved virtual address space.
func (p *Provider) ReservedBytes() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reserved
}

// MappedGranules returns the number of granules currently mapped.
func (p *Provider) MappedGranules() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mapped.GetCardinality()
}

// MapCalls returns the number of successful map operations.
func (p *Provider) MapCalls() int64 { return p.mapCalls.Load() }

// UnmapCalls returns the number of unmap operations.
func (p *Provider) UnmapCalls() int64 { return p.unmapCalls.Load() }
