package weighting_test

import (
	"fmt"

	"github.com/cwbudde/algo-rta/dsp/filter/weighting"
)

func ExampleNew() {
	chain := weighting.New(weighting.TypeA, 48000)

	for _, freq := range []float64{100, 4000, 10000} {
		fmt.Printf("%6.0f Hz: %+.1f dB\n", freq, chain.MagnitudeDB(freq, 48000))
	}
	// Output:
	//    100 Hz: -19.2 dB
	//   4000 Hz: +1.3 dB
	//  10000 Hz: -1.9 dB
}
