// Package vmemgo provides a device virtual-memory arena allocator.
//
// An Allocator owns a single reserved device virtual address range and
// backs it incrementally with physical memory as allocations grow a
// watermark. Frees below the watermark are recorded and coalesced; as soon
// as the freed space reaches the top, the watermark shrinks and the
// covering chunks are unmapped. The allocator never reuses a hole that is
// not adjacent to the watermark, which keeps every allocation contiguous
// with its predecessors.
//
// # Quick Start
//
//	provider := sim.New(sim.WithGranularity(2 << 20))
//	ctx := driver.NewContext(0, 1)
//
//	alloc, err := vmemgo.Create(provider, ctx, 0, 8<<20, nil)
//	if err != nil { ... }
//	defer alloc.Close()
//
//	ptr, granted, err := alloc.Alloc(0, 256)  // granted == 2 MiB
//	if err != nil { ... }
//	err = alloc.Free(ptr, granted)
//
// The physical backend is pluggable via driver.Provider; driver/sim ships
// a deterministic in-memory implementation backed by host memory.
//
// # Concurrency
//
// A single Allocator is not safe for concurrent use. Callers needing
// concurrent access must serialize externally, e.g. with one mutex per
// instance. Distinct instances are independent.
package vmemgo
