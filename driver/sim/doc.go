// Package sim provides a deterministic in-memory implementation of
// driver.Provider for testing allocators without device hardware.
//
// The simulation hands out ranges from a fake device address space and
// backs every mapped chunk with real host memory, so data written through
// a DevicePtr can be read back byte for byte. It tracks mapped granules in
// a bitmap to catch double-maps and leaked chunks, enforces an optional
// physical-memory budget, and can throttle map throughput to imitate a
// slow device.
//
//	provider := sim.New(
//	    sim.WithGranularity(64<<10),
//	    sim.WithDeviceMemory(256<<20),
//	)
//	ctx := driver.NewContext(0, 1)
//
// All methods are safe for concurrent use.
package sim
