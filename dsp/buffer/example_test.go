package buffer_test

import (
	"fmt"

	"github.com/cwbudde/algo-rta/dsp/buffer"
)

func ExampleRing() {
	r := buffer.NewRing[float64](3)
	for _, v := range []float64{1, 2, 3, 4} {
		r.Write(v)
	}

	fmt.Println(r.Collected(), r.Read(), r.Read())
	// Output:
	// 3 2 3
}
