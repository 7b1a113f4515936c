package sim

import "github.com/hupe1980/vmemgo/driver"

const (
	// DefaultGranularity matches the minimum mapping granularity observed
	// on real devices (2 MiB).
	DefaultGranularity = uint64(2 << 20)

	// defaultBaseAddress is where the fake device address space starts.
	// Non-zero so a DevicePtr of 0 stays an unambiguous null.
	defaultBaseAddress = uint64(0x7f_0000_0000)
)

type options struct {
	granularity      uint64
	deviceMemory     int64
	mapBytesPerSec   int64
	addressSpaceSize uint64
	peers            map[driver.DeviceID]struct{}
}

// Option configures the simulated provider.
type Option func(*options)

// WithGranularity sets the minimum mapping granularity in bytes.
// It must be a power of two; the default is 2 MiB. Tests typically use a
// much smaller value to keep host memory usage down.
func WithGranularity(granularity uint64) Option {
	return func(o *options) {
		o.granularity = granularity
	}
}

// WithDeviceMemory caps the simulated physical memory. Mapping beyond the
// cap fails the way a real device fails when its memory is exhausted.
// 0 means unlimited.
func WithDeviceMemory(bytes int64) Option {
	return func(o *options) {
		o.deviceMemory = bytes
	}
}

// WithMapBytesPerSec throttles map operations to the given throughput,
// simulating a slow device. 0 means unlimited.
func WithMapBytesPerSec(bytesPerSec int64) Option {
	return func(o *options) {
		o.mapBytesPerSec = bytesPerSec
	}
}

// WithAddressSpaceSize caps the total virtual address space the provider
// can reserve across all ranges. Reservations beyond the cap fail,
// simulating device address space exhaustion. 0 means unlimited.
func WithAddressSpaceSize(bytes uint64) Option {
	return func(o *options) {
		o.addressSpaceSize = bytes
	}
}

// WithPeerDevices registers devices that may appear in access descriptors.
// Mapping with a descriptor naming an unregistered device fails, the way a
// real driver rejects access grants to unreachable peers.
func WithPeerDevices(devices ...driver.DeviceID) Option {
	return func(o *options) {
		for _, d := range devices {
			o.peers[d] = struct{}{}
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		granularity: DefaultGranularity,
		peers:       make(map[driver.DeviceID]struct{}),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
