// Package hostmem provides anonymous read-write memory blocks used by the
// simulated physical-memory provider to back device chunks.
//
// On Unix platforms blocks come from anonymous mmap(2), keeping large
// simulated device memory outside the Go garbage collector's control. Other
// platforms fall back to heap-allocated slices; the behavior is identical,
// only the residency differs.
package hostmem
