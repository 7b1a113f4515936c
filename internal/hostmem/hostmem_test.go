package hostmem

import (
	"errors"
	"testing"
)

func TestAlloc(t *testing.T) {
	b, err := Alloc(4096)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	defer b.Release()

	if b.Size() != 4096 {
		t.Errorf("Size() = %v, want 4096", b.Size())
	}

	data := b.Bytes()
	if len(data) != 4096 {
		t.Fatalf("len(Bytes()) = %v, want 4096", len(data))
	}

	// Anonymous mappings are zero-filled.
	for i, v := range data {
		if v != 0 {
			t.Fatalf("byte %d = %v, want 0", i, v)
		}
	}

	// Must be writable and readable.
	data[0] = 'z'
	data[4095] = 'y'
	if b.Bytes()[0] != 'z' || b.Bytes()[4095] != 'y' {
		t.Error("written bytes not read back")
	}
}

func TestAlloc_InvalidSize(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"zero", 0},
		{"negative", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Alloc(tt.size)
			if !errors.Is(err, ErrInvalidSize) {
				t.Errorf("Alloc(%d) error = %v, want ErrInvalidSize", tt.size, err)
			}
		})
	}
}

func TestRelease_Idempotent(t *testing.T) {
	b, err := Alloc(64)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}

	if err := b.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := b.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
	if b.Bytes() != nil {
		t.Error("Bytes() after Release should be nil")
	}
	if b.Size() != 0 {
		t.Errorf("Size() after Release = %v, want 0", b.Size())
	}
}

func TestRelease_NilReceiver(t *testing.T) {
	var b *Block
	if err := b.Release(); err != nil {
		t.Errorf("Release() on nil = %v, want nil", err)
	}
}
