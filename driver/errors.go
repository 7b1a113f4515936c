package driver

import "errors"

var (
	// ErrReservation is returned when the provider cannot reserve a virtual
	// address range (e.g. device address space exhaustion).
	ErrReservation = errors.New("driver: cannot reserve virtual address range")

	// ErrMapping is returned when the provider cannot back a range with
	// physical memory (e.g. device memory exhaustion, rejected access
	// descriptors, misaligned offset).
	ErrMapping = errors.New("driver: cannot map physical chunk")

	// ErrUnknownRange is returned when a Range was not reserved by this
	// provider or has already been released.
	ErrUnknownRange = errors.New("driver: unknown virtual address range")
)
