package driver

// Provider is the physical-memory backend behind an allocator.
//
// The allocator queries Granularity once at creation time and sizes every
// mapping request to a multiple of it. All calls are synchronous; a call
// either returns or fails immediately, there is no cancellation.
type Provider interface {
	// Granularity returns the minimum mapping granularity in bytes for the
	// device behind ctx. All chunk offsets and sizes must be multiples of
	// this value. It is a power of two.
	Granularity(ctx Context) (uint64, error)

	// ReserveRange reserves an unmapped virtual address range of size bytes.
	// No physical memory is committed. The provider may round size up to its
	// granularity. Fails with an error wrapping ErrReservation if the range
	// cannot be reserved.
	ReserveRange(ctx Context, size uint64) (Range, error)

	// CreateAndMapChunk creates a physical memory chunk of size bytes and
	// maps it at rng.Base+offset, granting peer devices the access described
	// by access. offset and size must be granularity-aligned and lie within
	// the range. Fails with an error wrapping ErrMapping on misalignment,
	// physical memory exhaustion, or rejected access descriptors.
	CreateAndMapChunk(ctx Context, rng Range, offset, size uint64, access []AccessDescriptor) (ChunkHandle, error)

	// UnmapAndDestroyChunk unmaps and destroys a chunk previously returned
	// by CreateAndMapChunk. It must not fail under correct usage; it is only
	// ever called with handles this provider issued.
	UnmapAndDestroyChunk(ctx Context, handle ChunkHandle)

	// ReleaseRange releases a reserved range. All chunks mapped into the
	// range must have been unmapped first.
	ReleaseRange(ctx Context, rng Range) error
}
