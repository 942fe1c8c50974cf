// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package detector

// Ring is a fixed-capacity circular buffer with a monotonically increasing
// write cursor. Values are written at counter % capacity; once full, the
// oldest value is overwritten.
type Ring[T any] struct {
	data    []T
	counter int
}

// NewRing creates a Ring with the given capacity. Capacity must be positive.
func NewRing[T any](capacity int) *Ring[T] {
	return &Ring[T]{data: make([]T, capacity)}
}

// Push writes v at the cursor and advances it.
func (r *Ring[T]) Push(v T) {
	r.data[r.counter%len(r.data)] = v
	r.counter++
}

// Counter returns how many values have ever been pushed.
func (r *Ring[T]) Counter() int {
	return r.counter
}

// Cap returns the buffer capacity.
func (r *Ring[T]) Cap() int {
	return len(r.data)
}

// Len returns the number of retained values, min(counter, capacity).
func (r *Ring[T]) Len() int {
	return min(r.counter, len(r.data))
}

// Values returns the backing array in slot order. Slots not yet written hold
// the zero value. The slice aliases the buffer and must not be modified.
func (r *Ring[T]) Values() []T {
	return r.data
}

// Ordered returns the retained values, oldest first.
func (r *Ring[T]) Ordered() []T {
	return r.AppendOrdered(make([]T, 0, r.Len()))
}

// AppendOrdered appends the retained values, oldest first, to dst.
func (r *Ring[T]) AppendOrdered(dst []T) []T {
	n := len(r.data)
	if r.counter <= n {
		return append(dst, r.data[:r.counter]...)
	}
	pos := r.counter % n
	dst = append(dst, r.data[pos:]...)
	return append(dst, r.data[:pos]...)
}

// Oldest returns the oldest retained value.
func (r *Ring[T]) Oldest() (T, bool) {
	var zero T
	if r.counter == 0 {
		return zero, false
	}
	if r.counter <= len(r.data) {
		return r.data[0], true
	}
	return r.data[r.counter%len(r.data)], true
}

// Newest returns the most recently pushed value.
func (r *Ring[T]) Newest() (T, bool) {
	var zero T
	if r.counter == 0 {
		return zero, false
	}
	return r.data[(r.counter-1)%len(r.data)], true
}

// Reset zeroes every slot and the cursor.
func (r *Ring[T]) Reset() {
	clear(r.data)
	r.counter = 0
}
