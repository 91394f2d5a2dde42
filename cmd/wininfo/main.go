// Command wininfo prints spectral properties of the measurement windows.
//
// Usage:
//
//	wininfo [flags] [window-name ...]
//
// Without arguments it prints info for all measurement windows.
//
// Examples:
//
//	wininfo hann
//	wininfo -size 16384 blackmanharris flattop
//	wininfo -list
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-rta/dsp/window"
)

func main() {
	size := flag.Int("size", 1024, "window length in samples")
	list := flag.Bool("list", false, "list available window names")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wininfo [flags] [window-name ...]\n\n")
		fmt.Fprintf(os.Stderr, "Prints spectral properties of the measurement windows.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *list {
		for _, t := range window.Types {
			fmt.Println(t)
		}

		return
	}

	if *size < 2 {
		fmt.Fprintf(os.Stderr, "error: size must be at least 2\n")
		os.Exit(2)
	}

	types, err := resolve(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v (use -list to see available)\n", err)
		os.Exit(1)
	}

	if err := printAnalysis(os.Stdout, types, *size); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func resolve(names []string) ([]window.Type, error) {
	if len(names) == 0 {
		return window.Types, nil
	}

	types := make([]window.Type, 0, len(names))
	for _, name := range names {
		t, err := window.ParseType(name)
		if err != nil {
			return nil, err
		}

		types = append(types, t)
	}

	return types, nil
}

func printAnalysis(w io.Writer, types []window.Type, size int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Window\tSize\tCoherent Gain\tENBW [bins]\tBW 3dB [bins]\tScallop [dB]\n")
	fmt.Fprintf(tw, "------\t----\t-------------\t-----------\t-------------\t------------\n")

	for _, t := range types {
		a := window.Analyze(window.Generate(t, size))
		fmt.Fprintf(tw, "%s\t%d\t%.6f\t%.4f\t%.4f\t%.4f\n",
			t, size, a.CoherentGain, a.ENBW, a.Bandwidth3dB, a.ScallopLossdB)
	}

	return tw.Flush()
}
