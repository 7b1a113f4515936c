package resource

import (
	"context"
	"testing"
)

func TestTryAcquireMemory(t *testing.T) {
	c := NewController(Config{DeviceMemoryBytes: 100})

	if !c.TryAcquireMemory(60) {
		t.Fatal("TryAcquireMemory(60) = false, want true")
	}
	if c.MemoryUsage() != 60 {
		t.Errorf("MemoryUsage() = %v, want 60", c.MemoryUsage())
	}

	if c.TryAcquireMemory(50) {
		t.Fatal("TryAcquireMemory(50) over limit = true, want false")
	}
	if c.MemoryUsage() != 60 {
		t.Errorf("MemoryUsage() after failed acquire = %v, want 60", c.MemoryUsage())
	}

	c.ReleaseMemory(60)
	if c.MemoryUsage() != 0 {
		t.Errorf("MemoryUsage() after release = %v, want 0", c.MemoryUsage())
	}

	if !c.TryAcquireMemory(100) {
		t.Error("TryAcquireMemory(100) after release = false, want true")
	}
}

func TestTryAcquireMemory_Unlimited(t *testing.T) {
	c := NewController(Config{})

	if !c.TryAcquireMemory(1 << 40) {
		t.Error("unlimited controller rejected acquire")
	}
	if c.MemoryUsage() != 1<<40 {
		t.Errorf("MemoryUsage() = %v, want %v", c.MemoryUsage(), int64(1<<40))
	}
}

func TestNilController(t *testing.T) {
	var c *Controller

	if !c.TryAcquireMemory(1) {
		t.Error("nil controller should allow acquire")
	}
	c.ReleaseMemory(1)
	if c.MemoryUsage() != 0 {
		t.Error("nil controller usage should be 0")
	}
	if err := c.WaitMap(context.Background(), 10); err != nil {
		t.Errorf("WaitMap() on nil = %v, want nil", err)
	}
}

func TestWaitMap_Canceled(t *testing.T) {
	c := NewController(Config{MapBytesPerSec: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Burst of 1 byte/s: a 10-byte op cannot be admitted at once, so the
	// canceled context must surface.
	if err := c.WaitMap(ctx, 10); err == nil {
		t.Error("WaitMap() with canceled context = nil, want error")
	}
}
