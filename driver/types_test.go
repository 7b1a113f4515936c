package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDevicePtr(t *testing.T) {
	base := DevicePtr(0x1000)

	assert.Equal(t, DevicePtr(0x1040), base.Add(0x40))
	assert.Equal(t, uint64(0x40), base.Add(0x40).Sub(base))
	assert.True(t, DevicePtr(0).IsNull())
	assert.False(t, base.IsNull())
	assert.Equal(t, "0x1000", base.String())

	assert.Panics(t, func() {
		_ = base.Sub(base.Add(1))
	})
}

func TestRange(t *testing.T) {
	rng := Range{Base: 0x1000, Capacity: 0x400, Granularity: 0x100}

	assert.Equal(t, DevicePtr(0x1400), rng.End())
	assert.True(t, rng.Contains(0x1000, 0x400))
	assert.True(t, rng.Contains(0x13ff, 1))
	assert.False(t, rng.Contains(0x1000, 0x401))
	assert.False(t, rng.Contains(0xfff, 1))
}

func TestContext(t *testing.T) {
	ctx := NewContext(2, 99)
	assert.Equal(t, DeviceID(2), ctx.Device())
	assert.Equal(t, uint64(99), ctx.Handle())
}
