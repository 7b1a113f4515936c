package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vmemgo/driver"
	"github.com/hupe1980/vmemgo/testutil"
)

const g = uint64(1 << 16)

func newTestProvider(optFns ...Option) *Provider {
	return New(append([]Option{WithGranularity(g)}, optFns...)...)
}

func TestReserveRange(t *testing.T) {
	p := newTestProvider()
	ctx := driver.NewContext(0, 1)

	got, err := p.Granularity(ctx)
	require.NoError(t, err)
	assert.Equal(t, g, got)

	rng, err := p.ReserveRange(ctx, 4*g)
	require.NoError(t, err)
	assert.Equal(t, 4*g, rng.Capacity)
	assert.Equal(t, g, rng.Granularity)
	assert.False(t, rng.Base.IsNull())
	assert.Equal(t, uint64(4*g), p.ReservedBytes())

	// Size is rounded up to the granularity.
	rng2, err := p.ReserveRange(ctx, g+1)
	require.NoError(t, err)
	assert.Equal(t, 2*g, rng2.Capacity)

	// Ranges never overlap.
	assert.True(t, rng2.Base >= rng.End() || rng2.End() <= rng.Base)

	require.NoError(t, p.ReleaseRange(ctx, rng))
	require.NoError(t, p.ReleaseRange(ctx, rng2))
	assert.Zero(t, p.ReservedBytes())
}

func TestReserveRange_Exhaustion(t *testing.T) {
	p := newTestProvider(WithAddressSpaceSize(4 * g))
	ctx := driver.NewContext(0, 1)

	rng, err := p.ReserveRange(ctx, 3*g)
	require.NoError(t, err)

	_, err = p.ReserveRange(ctx, 2*g)
	assert.ErrorIs(t, err, driver.ErrReservation)

	// Releasing makes room again.
	require.NoError(t, p.ReleaseRange(ctx, rng))
	_, err = p.ReserveRange(ctx, 2*g)
	assert.NoError(t, err)
}

func TestReserveRange_ZeroSize(t *testing.T) {
	p := newTestProvider()
	_, err := p.ReserveRange(driver.Context{}, 0)
	assert.ErrorIs(t, err, driver.ErrReservation)
}

func TestCreateAndMapChunk(t *testing.T) {
	p := newTestProvider()
	ctx := driver.NewContext(0, 1)

	rng, err := p.ReserveRange(ctx, 4*g)
	require.NoError(t, err)

	h, err := p.CreateAndMapChunk(ctx, rng, 0, 2*g, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), p.MappedGranules())
	assert.Equal(t, int64(2*g), p.MappedBytes())

	p.UnmapAndDestroyChunk(ctx, h)
	assert.Zero(t, p.MappedGranules())
	assert.Zero(t, p.MappedBytes())

	require.NoError(t, p.ReleaseRange(ctx, rng))
}

func TestCreateAndMapChunk_Rejections(t *testing.T) {
	p := newTestProvider()
	ctx := driver.NewContext(0, 1)

	rng, err := p.ReserveRange(ctx, 4*g)
	require.NoError(t, err)
	defer p.ReleaseRange(ctx, rng)

	tests := []struct {
		name   string
		offset uint64
		size   uint64
	}{
		{"misaligned offset", g / 2, g},
		{"misaligned size", 0, g + 1},
		{"zero size", 0, 0},
		{"past capacity", 3 * g, 2 * g},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.CreateAndMapChunk(ctx, rng, tt.offset, tt.size, nil)
			assert.ErrorIs(t, err, driver.ErrMapping)
		})
	}

	t.Run("unknown range", func(t *testing.T) {
		bogus := driver.Range{Base: 0x1000, Capacity: 4 * g, Granularity: g}
		_, err := p.CreateAndMapChunk(ctx, bogus, 0, g, nil)
		assert.ErrorIs(t, err, driver.ErrUnknownRange)
	})

	t.Run("double map", func(t *testing.T) {
		h, err := p.CreateAndMapChunk(ctx, rng, 0, g, nil)
		require.NoError(t, err)
		defer p.UnmapAndDestroyChunk(ctx, h)

		_, err = p.CreateAndMapChunk(ctx, rng, 0, g, nil)
		assert.ErrorIs(t, err, driver.ErrMapping)
	})
}

func TestCreateAndMapChunk_DeviceMemoryExhaustion(t *testing.T) {
	p := newTestProvider(WithDeviceMemory(int64(2 * g)))
	ctx := driver.NewContext(0, 1)

	rng, err := p.ReserveRange(ctx, 4*g)
	require.NoError(t, err)
	defer p.ReleaseRange(ctx, rng)

	h, err := p.CreateAndMapChunk(ctx, rng, 0, 2*g, nil)
	require.NoError(t, err)

	_, err = p.CreateAndMapChunk(ctx, rng, 2*g, g, nil)
	assert.ErrorIs(t, err, driver.ErrMapping)

	// Unmapping returns budget.
	p.UnmapAndDestroyChunk(ctx, h)
	h, err = p.CreateAndMapChunk(ctx, rng, 2*g, g, nil)
	require.NoError(t, err)
	p.UnmapAndDestroyChunk(ctx, h)
}

func TestCreateAndMapChunk_PeerAccess(t *testing.T) {
	p := newTestProvider(WithPeerDevices(1))
	ctx := driver.NewContext(0, 1)

	rng, err := p.ReserveRange(ctx, 4*g)
	require.NoError(t, err)
	defer p.ReleaseRange(ctx, rng)

	// Own device and registered peer are fine.
	h, err := p.CreateAndMapChunk(ctx, rng, 0, g, []driver.AccessDescriptor{
		{Device: 0, Flags: driver.AccessReadWrite},
		{Device: 1, Flags: driver.AccessRead},
	})
	require.NoError(t, err)
	p.UnmapAndDestroyChunk(ctx, h)

	// Unknown peer is rejected.
	_, err = p.CreateAndMapChunk(ctx, rng, 0, g, []driver.AccessDescriptor{
		{Device: 7, Flags: driver.AccessRead},
	})
	assert.ErrorIs(t, err, driver.ErrMapping)
}

func TestReleaseRange_LeakDetection(t *testing.T) {
	p := newTestProvider()
	ctx := driver.NewContext(0, 1)

	rng, err := p.ReserveRange(ctx, 4*g)
	require.NoError(t, err)

	h, err := p.CreateAndMapChunk(ctx, rng, 0, g, nil)
	require.NoError(t, err)

	err = p.ReleaseRange(ctx, rng)
	assert.ErrorIs(t, err, ErrLeak)

	p.UnmapAndDestroyChunk(ctx, h)
	assert.NoError(t, p.ReleaseRange(ctx, rng))
}

func TestCopyRoundTrip(t *testing.T) {
	p := newTestProvider()
	ctx := driver.NewContext(0, 1)

	rng, err := p.ReserveRange(ctx, 4*g)
	require.NoError(t, err)
	defer p.ReleaseRange(ctx, rng)

	// Two separately mapped chunks; the copy spans both.
	h1, err := p.CreateAndMapChunk(ctx, rng, 0, g, nil)
	require.NoError(t, err)
	defer p.UnmapAndDestroyChunk(ctx, h1)
	h2, err := p.CreateAndMapChunk(ctx, rng, g, g, nil)
	require.NoError(t, err)
	defer p.UnmapAndDestroyChunk(ctx, h2)

	src := make([]byte, g)
	testutil.FillPattern(src, 'z')

	// Write at an unaligned offset crossing the chunk boundary.
	ptr := rng.Base.Add(g / 2)
	require.NoError(t, p.CopyToDevice(ptr, src))

	dst := make([]byte, g)
	require.NoError(t, p.CopyFromDevice(dst, ptr))
	assert.Equal(t, -1, testutil.CheckPattern(dst, 'z'))
}

func TestMemset(t *testing.T) {
	p := newTestProvider()
	ctx := driver.NewContext(0, 1)

	rng, err := p.ReserveRange(ctx, 2*g)
	require.NoError(t, err)
	defer p.ReleaseRange(ctx, rng)

	h, err := p.CreateAndMapChunk(ctx, rng, 0, g, nil)
	require.NoError(t, err)
	defer p.UnmapAndDestroyChunk(ctx, h)

	require.NoError(t, p.Memset(rng.Base.Add(16), 0xab, 64))

	buf := make([]byte, 96)
	require.NoError(t, p.CopyFromDevice(buf, rng.Base))
	for i := 0; i < 16; i++ {
		assert.Zero(t, buf[i])
	}
	for i := 16; i < 80; i++ {
		assert.EqualValues(t, 0xab, buf[i])
	}
	for i := 80; i < 96; i++ {
		assert.Zero(t, buf[i])
	}
}

func TestCopy_NotMapped(t *testing.T) {
	p := newTestProvider()
	ctx := driver.NewContext(0, 1)

	rng, err := p.ReserveRange(ctx, 4*g)
	require.NoError(t, err)
	defer p.ReleaseRange(ctx, rng)

	buf := make([]byte, 16)

	// Nothing mapped at all.
	assert.ErrorIs(t, p.CopyToDevice(rng.Base, buf), ErrNotMapped)

	// Mapped chunk at granule 0; granule 1 stays unmapped.
	h, err := p.CreateAndMapChunk(ctx, rng, 0, g, nil)
	require.NoError(t, err)
	defer p.UnmapAndDestroyChunk(ctx, h)

	assert.NoError(t, p.CopyToDevice(rng.Base, buf))
	assert.ErrorIs(t, p.CopyToDevice(rng.Base.Add(g), buf), ErrNotMapped)

	// Copy that starts mapped but runs off the mapped prefix.
	big := make([]byte, 2*g)
	assert.ErrorIs(t, p.CopyToDevice(rng.Base, big), ErrNotMapped)

	// Address outside every range.
	assert.ErrorIs(t, p.CopyToDevice(driver.DevicePtr(0x10), buf), ErrNotMapped)
}

func TestUnmapUnknownHandlePanics(t *testing.T) {
	p := newTestProvider()
	assert.Panics(t, func() {
		p.UnmapAndDestroyChunk(driver.Context{}, 42)
	})
}
