package vmemgo_test

import (
	"fmt"
	"log"

	"github.com/hupe1980/vmemgo"
	"github.com/hupe1980/vmemgo/driver"
	"github.com/hupe1980/vmemgo/driver/sim"
)

func ExampleCreate() {
	// The simulated provider stands in for a real device driver.
	provider := sim.New(sim.WithGranularity(1 << 16))
	ctx := driver.NewContext(0, 1)

	alloc, err := vmemgo.Create(provider, ctx, 0, 1<<24, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer alloc.Close()

	// Requests are padded to the mapping granularity.
	ptr, granted, err := alloc.Alloc(0, 256)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("granted:", granted)
	fmt.Println("offset:", ptr.Sub(alloc.Base()))

	// Freeing the padded span at the top of the arena unmaps it.
	if err := alloc.Free(ptr, granted); err != nil {
		log.Fatal(err)
	}
	fmt.Println("watermark:", alloc.Watermark())

	// Output:
	// granted: 65536
	// offset: 0
	// watermark: 0
}
