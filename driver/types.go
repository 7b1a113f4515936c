package driver

import "fmt"

// DevicePtr is an opaque device virtual address.
//
// The zero value is the null pointer. DevicePtr carries no ownership; the
// memory behind it belongs to the allocator that handed it out.
type DevicePtr uint64

// Add returns the pointer advanced by offset bytes.
func (p DevicePtr) Add(offset uint64) DevicePtr {
	return p + DevicePtr(offset)
}

// Sub returns the byte offset of p relative to base.
// It panics if p is below base; a pointer is only ever subtracted from the
// base of the range it was allocated from.
func (p DevicePtr) Sub(base DevicePtr) uint64 {
	if p < base {
		panic(fmt.Sprintf("driver: pointer %#x below range base %#x", uint64(p), uint64(base)))
	}
	return uint64(p - base)
}

// IsNull reports whether p is the null pointer.
func (p DevicePtr) IsNull() bool {
	return p == 0
}

// String formats the pointer as a hex address.
func (p DevicePtr) String() string {
	return fmt.Sprintf("0x%x", uint64(p))
}

// DeviceID identifies a device within the platform.
type DeviceID int32

// Context is an opaque driver context under which address ranges are
// reserved and chunks are mapped. It is created during device initialization
// (outside this package) and passed explicitly to every provider call; there
// is no process-wide current context.
type Context struct {
	device DeviceID
	handle uint64
}

// NewContext wraps a raw driver context handle for the given device.
func NewContext(device DeviceID, handle uint64) Context {
	return Context{device: device, handle: handle}
}

// Device returns the device this context belongs to.
func (c Context) Device() DeviceID { return c.device }

// Handle returns the raw driver handle.
func (c Context) Handle() uint64 { return c.handle }

// AccessFlags enumerates the access a peer device is granted on mapped
// memory.
type AccessFlags uint32

const (
	// AccessNone grants no access.
	AccessNone AccessFlags = iota
	// AccessRead grants read-only access.
	AccessRead
	// AccessReadWrite grants full access.
	AccessReadWrite
)

// AccessDescriptor grants a peer device access to every chunk mapped into a
// range. An empty descriptor slice means no peer access; the owning device
// always has full access to its own mappings.
type AccessDescriptor struct {
	Device DeviceID
	Flags  AccessFlags
}

// Range describes a reserved device virtual address range.
//
// Capacity is always a multiple of Granularity. A Range is immutable after
// reservation; it is handed back to the provider via ReleaseRange.
type Range struct {
	Base        DevicePtr
	Capacity    uint64
	Granularity uint64
}

// End returns the first address past the range.
func (r Range) End() DevicePtr {
	return r.Base.Add(r.Capacity)
}

// Contains reports whether [p, p+n) lies entirely inside the range.
func (r Range) Contains(p DevicePtr, n uint64) bool {
	return p >= r.Base && uint64(p-r.Base)+n <= r.Capacity
}

// ChunkHandle identifies a mapped physical chunk. Handles are only
// meaningful to the provider that issued them.
type ChunkHandle uint64
