package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-rta/dsp/filter/weighting"
	"github.com/cwbudde/algo-rta/measure/measurement"
	"github.com/cwbudde/algo-rta/measure/meter"
	"github.com/cwbudde/algo-rta/measure/snapshot"
)

func formatDB(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "-"
	}

	return fmt.Sprintf("%.2f", v)
}

// printLevels writes the level table: one row per weighting curve with
// the Fast and Slow levels and the Slow peak.
func printLevels(w io.Writer, lp measurement.LevelProvider) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "Curve\tFast [dBFS]\tSlow [dBFS]\tPeak [dBFS]\t\n")

	for _, curve := range weighting.Types {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", curve,
			formatDB(lp.Level(curve, meter.Fast)),
			formatDB(lp.Level(curve, meter.Slow)),
			formatDB(lp.Peak(curve, meter.Slow)))
	}

	fmt.Fprintf(tw, "Reference\t\t%s\t\t\n", formatDB(lp.ReferenceLevel()))

	return tw.Flush()
}

func writeJSON(path string, s *snapshot.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := s.WriteJSON(f); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

// writeParquet writes <prefix>-bins.parquet and <prefix>-impulse.parquet.
func writeParquet(prefix string, s *snapshot.Snapshot) error {
	bins, err := os.Create(prefix + "-bins.parquet")
	if err != nil {
		return err
	}
	defer bins.Close()

	impulse, err := os.Create(prefix + "-impulse.parquet")
	if err != nil {
		return err
	}
	defer impulse.Close()

	if err := s.WriteParquet(bins, impulse); err != nil {
		return err
	}

	if err := bins.Close(); err != nil {
		return err
	}

	return impulse.Close()
}
