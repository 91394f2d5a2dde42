// Package design computes RBJ-cookbook biquad coefficients for the
// input pre-filters: low-pass, band-pass and notch sections.
//
// Every designer validates its arguments and returns [ErrInvalidFrequency]
// or [ErrInvalidQ] instead of an unusable section.
package design
