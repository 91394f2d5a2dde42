package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cwbudde/algo-rta/dsp/window"
)

func TestResolve(t *testing.T) {
	all, err := resolve(nil)
	if err != nil || len(all) != len(window.Types) {
		t.Fatalf("resolve(nil) = %v, %v", all, err)
	}

	got, err := resolve([]string{"hann", "FlatTop"})
	if err != nil {
		t.Fatal(err)
	}

	if got[0] != window.TypeHann || got[1] != window.TypeFlatTop {
		t.Fatalf("resolve = %v", got)
	}

	if _, err := resolve([]string{"kaiser"}); err == nil {
		t.Fatal("expected error for unknown window")
	}
}

func TestPrintAnalysis(t *testing.T) {
	var buf bytes.Buffer
	if err := printAnalysis(&buf, []window.Type{window.TypeRectangular, window.TypeHann}, 1024); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}

	if !strings.HasPrefix(lines[2], "Rectangular") || !strings.Contains(lines[2], "1.000000") {
		t.Errorf("rectangular row = %q", lines[2])
	}

	if !strings.HasPrefix(lines[3], "Hann") || !strings.Contains(lines[3], "0.500000") {
		t.Errorf("hann row = %q", lines[3])
	}
}
