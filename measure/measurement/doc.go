// Package measurement runs a dual-channel transfer-function measurement.
//
// A Controller receives interleaved float32 PCM from an Input, keeps the
// measured and reference channels in ring buffers and feeds the level
// meters on the write path. A periodic tick drains the buffers into the
// spectrum analyzer, the deconvolver and the delay finder, averages and
// calibrates the per-bin results and publishes them as an immutable
// Result. Readers poll Generation or wait on Ready and then load Result
// without taking the controller lock.
package measurement
