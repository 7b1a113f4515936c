// Package driver defines the contract between the vmemgo allocator and a
// physical-memory provider.
//
// A Provider reserves device virtual address ranges, backs sub-ranges of them
// with physical memory chunks, and releases both again. The allocator never
// talks to device hardware directly; everything goes through this interface,
// which keeps the arena logic testable against the deterministic simulation
// in driver/sim.
//
// # Addresses
//
// Device addresses are represented by the opaque DevicePtr type. Only two
// arithmetic operations are defined: advancing a pointer by a byte offset
// (Add) and recovering the byte offset between a pointer and the base of its
// range (Sub). Returned pointers are views into an allocator-owned range and
// carry no ownership of their own.
//
// # Thread Safety
//
// Implementations must tolerate concurrent calls from different allocator
// instances. A single allocator serializes its own provider calls.
package driver
