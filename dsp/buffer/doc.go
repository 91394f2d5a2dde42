// Package buffer provides the fixed-capacity circular queue used by every
// streaming stage of the measurement engine.
//
// A [Ring] never blocks and never grows: writing into a full ring silently
// replaces the oldest unread value. The bookkeeping counters are atomic so
// that a monitoring goroutine can observe fill levels without tearing, but
// the payload itself is not synchronized. A producer and a consumer on
// different goroutines must share an external lock.
package buffer
