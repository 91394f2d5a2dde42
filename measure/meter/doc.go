// Package meter implements sliding-window RMS metering.
//
// A Meter integrates squared samples over a fixed window and tracks the
// exact windowed peak. A Bank combines a shared input filter, the four
// frequency weightings and the Fast/Slow time constants into the level
// grid a sound level meter displays.
package meter
