// Package core holds the small numeric helpers shared by the dsp and
// measure packages: decibel conversion with a defined "no data" value and
// guards against non-finite intermediate results.
package core
