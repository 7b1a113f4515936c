// Package arena implements the core address-space management algorithm
// behind the vmemgo allocator.
//
// An Arena owns exactly one reserved device virtual address range for its
// lifetime. A watermark splits the range into a physically backed prefix
// and an unmapped reserve. Allocations always happen at the watermark and
// map a fresh chunk; frees record granularity-aligned intervals that are
// coalesced on insert and, once the topmost interval touches the watermark,
// trimmed away by unmapping the covering chunks.
//
// # Invariant
//
// At all times the occupied region [0, watermark) is exactly the disjoint
// union of live-allocation bytes and free-interval bytes, and is exactly
// tiled by the mapped chunks. Everything at or above the watermark is
// neither mapped nor addressable.
//
// The arena talks to physical memory exclusively through driver.Provider,
// so its logic can be exercised against the deterministic simulation in
// driver/sim without any device hardware.
package arena
