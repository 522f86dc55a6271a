// secure.go: Fixed-capacity accumulators for key material, IVs and partial blocks.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package blockcipher

import (
	"runtime"
)

// Word is the element type a SecureBuffer can hold: bytes for blocks and IVs,
// 32-bit words for word-oriented key schedules.
type Word interface {
	~byte | ~uint32
}

// SecureBuffer is a fixed-size accumulator that wipes its backing storage
// whenever contents are handed out, replaced or destroyed.
//
// A buffer starts empty with Capacity() == Size(). Push and PushSlice fill it
// until IsFull; Extract returns the contents and resets the buffer.
//
// SecureBuffer is not safe for concurrent use. Blocks that cross into a
// pipeline are copies taken by Extract, never the buffer itself.
type SecureBuffer[T Word] struct {
	buf      []T
	capacity int
}

// NewSecureBuffer creates an empty buffer holding size elements.
func NewSecureBuffer[T Word](size int) *SecureBuffer[T] {
	b := &SecureBuffer[T]{
		buf:      make([]T, size),
		capacity: size,
	}
	// Backstop for buffers dropped without Destroy. The cleanup only holds the
	// backing array, never b itself.
	runtime.AddCleanup(b, func(buf []T) { wipe(buf) }, b.buf)
	return b
}

// NewSecureBufferFrom creates a full buffer holding a copy of src.
func NewSecureBufferFrom[T Word](src []T) *SecureBuffer[T] {
	b := NewSecureBuffer[T](len(src))
	b.PushSlice(src)
	return b
}

// Size returns the total number of elements the buffer holds when full.
func (b *SecureBuffer[T]) Size() int { return len(b.buf) }

// Capacity returns the number of elements that can still be pushed.
func (b *SecureBuffer[T]) Capacity() int { return b.capacity }

// Len returns the number of elements currently stored.
func (b *SecureBuffer[T]) Len() int { return len(b.buf) - b.capacity }

// IsFull reports whether no more elements can be pushed.
func (b *SecureBuffer[T]) IsFull() bool { return b.capacity == 0 }

// IsEmpty reports whether nothing has been pushed since the last reset.
func (b *SecureBuffer[T]) IsEmpty() bool { return b.capacity == len(b.buf) }

// Push appends one element. It returns false when the buffer is full.
func (b *SecureBuffer[T]) Push(v T) bool {
	if b.capacity == 0 {
		return false
	}
	b.buf[b.Len()] = v
	b.capacity--
	return true
}

// PushSlice appends as many elements of s as fit and returns how many were taken.
func (b *SecureBuffer[T]) PushSlice(s []T) int {
	n := copy(b.buf[b.Len():], s)
	b.capacity -= n
	return n
}

// Bytes returns the backing storage. The slice aliases the buffer and is only
// valid until the next Extract, Reset or Destroy.
func (b *SecureBuffer[T]) Bytes() []T { return b.buf }

// Extract returns a copy of the stored elements and resets the buffer. The
// internal copy is wiped before the buffer is reused.
func (b *SecureBuffer[T]) Extract() []T {
	out := make([]T, b.Len())
	copy(out, b.buf)
	b.Reset()
	return out
}

// ExtractInto copies the stored elements into dst, resets the buffer and
// returns the number of elements copied.
func (b *SecureBuffer[T]) ExtractInto(dst []T) int {
	n := copy(dst, b.buf[:b.Len()])
	b.Reset()
	return n
}

// OverrideContents overwrites the first n elements of the buffer with s[:n]
// without touching the remaining capacity. It is used to slide a chaining
// value forward in place. It returns the number of elements written.
func (b *SecureBuffer[T]) OverrideContents(s []T, n int) int {
	if n > len(s) {
		n = len(s)
	}
	return copy(b.buf, s[:n])
}

// Reset wipes the contents and makes the whole buffer available again.
func (b *SecureBuffer[T]) Reset() {
	wipe(b.buf)
	b.capacity = len(b.buf)
}

// Destroy wipes the contents and drops the backing storage. A destroyed
// buffer has size zero and accepts no further elements.
func (b *SecureBuffer[T]) Destroy() {
	wipe(b.buf)
	b.buf = nil
	b.capacity = 0
}

// wipe clears s. KeepAlive keeps the slice reachable until the stores are done
// so the clear cannot be treated as dead.
func wipe[T Word](s []T) {
	clear(s)
	runtime.KeepAlive(s)
}
