package vmemgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vmemgo/driver"
	"github.com/hupe1980/vmemgo/internal/arena"
)

var (
	// ErrInvalidConfig is returned by Create for invalid parameters
	// (nil provider, zero capacity). No resources are leaked.
	ErrInvalidConfig = errors.New("vmemgo: invalid configuration")

	// ErrReservation is returned by Create when the provider cannot
	// reserve the requested virtual address range.
	ErrReservation = errors.New("vmemgo: cannot reserve virtual address space")

	// ErrCapacityExceeded is returned by Alloc when the request would push
	// the watermark past the reserved capacity. Non-fatal: the allocator
	// is unchanged and smaller requests may still succeed.
	ErrCapacityExceeded = errors.New("vmemgo: virtual address space exhausted")

	// ErrMapping is returned by Alloc when the provider cannot back the
	// request with physical memory. Non-fatal: the allocator is unchanged.
	ErrMapping = errors.New("vmemgo: cannot map physical memory")

	// ErrInvalidArgument is returned for malformed alignments, zero sizes
	// and out-of-range Free spans. Caller programming error.
	ErrInvalidArgument = errors.New("vmemgo: invalid argument")

	// ErrClosed is returned when using an allocator after Close.
	ErrClosed = errors.New("vmemgo: allocator is closed")
)

// translateError maps internal arena and driver errors onto the public
// taxonomy, keeping the original chain reachable via errors.Unwrap.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, arena.ErrCapacity):
		return fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
	case errors.Is(err, arena.ErrAlignment),
		errors.Is(err, arena.ErrInvalidSize),
		errors.Is(err, arena.ErrSpanOutOfRange):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case errors.Is(err, arena.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, driver.ErrReservation):
		return fmt.Errorf("%w: %w", ErrReservation, err)
	case errors.Is(err, driver.ErrMapping):
		return fmt.Errorf("%w: %w", ErrMapping, err)
	}

	return err
}
