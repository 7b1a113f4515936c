package hostmem

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrClosed is returned when accessing a released block.
	ErrClosed = errors.New("hostmem: block is released")
	// ErrInvalidSize is returned when the requested size is not positive.
	ErrInvalidSize = errors.New("hostmem: invalid block size")
)

// Block is a fixed-size read-write memory block.
// It owns the underlying bytes and is responsible for releasing them.
type Block struct {
	data     []byte
	released atomic.Bool
	// release is the platform-specific function to free the memory.
	release func([]byte) error
}

// Alloc allocates a zero-filled block of size bytes.
func Alloc(size int) (*Block, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	data, release, err := osAlloc(size)
	if err != nil {
		return nil, err
	}
	return &Block{data: data, release: release}, nil
}

// Bytes returns the block's bytes. The slice is valid until Release.
func (b *Block) Bytes() []byte {
	if b.released.Load() {
		return nil
	}
	return b.data
}

// Size returns the block size in bytes.
func (b *Block) Size() int {
	if b.released.Load() {
		return 0
	}
	return len(b.data)
}

// Release frees the block. It is idempotent.
func (b *Block) Release() error {
	if b == nil || !b.released.CompareAndSwap(false, true) {
		return nil
	}
	data := b.data
	b.data = nil
	if b.release != nil {
		return b.release(data)
	}
	return nil
}
