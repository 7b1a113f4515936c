//go:build !unix

package hostmem

// Heap fallback for platforms without anonymous mmap support.
func osAlloc(size int) ([]byte, func([]byte) error, error) {
	return make([]byte, size), nil, nil
}
