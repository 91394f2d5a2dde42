package buffer

import "sync/atomic"

// Ring is a fixed-capacity circular queue of T.
//
// Write stores at the write cursor and advances it. Once the ring holds
// Size unread values, further writes overwrite the oldest unread value and
// move the read cursor along with it. Read returns the oldest unread value.
type Ring[T any] struct {
	data []T

	size      atomic.Int64
	readPos   atomic.Int64
	writePos  atomic.Int64
	collected atomic.Int64
}

// NewRing returns an empty ring holding at most capacity values.
// A non-positive capacity yields a ring that discards every write.
func NewRing[T any](capacity int) *Ring[T] {
	r := &Ring[T]{}
	r.Resize(capacity)

	return r
}

// Resize reallocates the ring to the given capacity and clears it.
func (r *Ring[T]) Resize(capacity int) {
	if capacity < 0 {
		capacity = 0
	}

	r.data = make([]T, capacity)
	r.size.Store(int64(capacity))
	r.Reset()
}

// Reset drops all values and rewinds both cursors. The payload is zeroed
// so that Last observes silence rather than stale history.
func (r *Ring[T]) Reset() {
	clear(r.data)
	r.readPos.Store(0)
	r.writePos.Store(0)
	r.collected.Store(0)
}

// Size returns the capacity.
func (r *Ring[T]) Size() int { return int(r.size.Load()) }

// Collected returns the number of unread values.
func (r *Ring[T]) Collected() int { return int(r.collected.Load()) }

// Write appends v, overwriting the oldest unread value when full.
func (r *Ring[T]) Write(v T) {
	r.Push(v)
}

// Push appends v like Write and returns the value that previously occupied
// the slot. evicted reports whether the ring was full, i.e. whether old
// was a live value rather than an empty slot.
func (r *Ring[T]) Push(v T) (old T, evicted bool) {
	size := r.size.Load()
	if size == 0 {
		return old, false
	}

	w := r.writePos.Load()
	old = r.data[w]
	r.data[w] = v
	r.writePos.Store((w + 1) % size)

	if r.collected.Load() == size {
		r.readPos.Store((r.readPos.Load() + 1) % size)

		return old, true
	}

	r.collected.Add(1)

	return old, false
}

// Read removes and returns the oldest unread value. When nothing is
// collected it returns the zero value of T.
func (r *Ring[T]) Read() T {
	var zero T
	if r.collected.Load() == 0 {
		return zero
	}

	p := r.readPos.Load()
	v := r.data[p]
	r.readPos.Store((p + 1) % r.size.Load())
	r.collected.Add(-1)

	return v
}

// Last copies the len(dst) most recently written values into dst, oldest
// first, regardless of whether they were read. Slots never written hold
// the zero value. It returns the number of values copied, which is
// min(len(dst), Size()).
func (r *Ring[T]) Last(dst []T) int {
	size := int(r.size.Load())

	n := min(len(dst), size)
	if n == 0 {
		return 0
	}

	start := (int(r.writePos.Load()) - n + size) % size

	first := copy(dst[:n], r.data[start:])
	if first < n {
		copy(dst[first:n], r.data[:n-first])
	}

	return n
}
