/*
 * This file is part of voz.
 * Copyright (C) 2026 Voz Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package rollbuffer implements the bounded shift-FIFO shared by every
// stage of the audio pipeline: a fixed-capacity buffer that shifts its
// contents left in place instead of wrapping, plus a mutex/condition-variable
// wrapper giving single-producer/single-consumer stages wait-for-N and
// cancel/reset semantics.
package rollbuffer

import "sync"

// Buffer is a fixed-capacity contiguous shift-FIFO. It is not safe for
// concurrent use; Sync wraps one with the locking this package's callers
// need across threads.
type Buffer[T any] struct {
	buf  []T
	head int
}

// New creates a Buffer with the given capacity. Capacity must be >= 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		panic("rollbuffer: capacity must be >= 1")
	}
	return &Buffer[T]{buf: make([]T, capacity)}
}

// Cap returns the buffer's fixed capacity.
func (b *Buffer[T]) Cap() int { return len(b.buf) }

// Len returns the number of valid elements currently held.
func (b *Buffer[T]) Len() int { return b.head }

// Get returns a view over the valid elements [0, head). The slice aliases
// the buffer's backing array and is only valid until the next mutation.
func (b *Buffer[T]) Get() []T { return b.buf[:b.head] }

// Shift copies buf[n:head] to buf[0:], decrementing head by n. n == 0 is a
// no-op; n >= head resets the buffer to empty.
func (b *Buffer[T]) Shift(n int) {
	if n <= 0 {
		return
	}
	if n >= b.head {
		b.head = 0
		return
	}
	copy(b.buf[0:], b.buf[n:b.head])
	b.head -= n
}

// Append copies as many tail elements of xs as fit, shifting the existing
// prefix left to make room. If len(xs) > capacity, only the last capacity
// elements of xs are kept.
func (b *Buffer[T]) Append(xs []T) {
	cap := len(b.buf)
	if len(xs) > cap {
		xs = xs[len(xs)-cap:]
	}
	room := cap - b.head
	if len(xs) > room {
		b.Shift(len(xs) - room)
	}
	n := copy(b.buf[b.head:], xs)
	b.head += n
}

// AppendOne is the single-element specialization of Append.
func (b *Buffer[T]) AppendOne(x T) {
	b.Append([]T{x})
}

// Reset sets head back to zero, discarding all buffered data without
// releasing the backing array.
func (b *Buffer[T]) Reset() { b.head = 0 }

// Status is the two-bit cancel/reset signal a Sync buffer's consumer polls
// for alongside the fill level. cancel is monotonic once set; reset is
// one-shot and is cleared by the consumer when it acknowledges it.
type Status struct {
	Cancel bool
	Reset  bool
}

// Flagged reports whether either bit is set.
func (s Status) Flagged() bool { return s.Cancel || s.Reset }

// Sync wraps a Buffer with a mutex, a condition variable, a
// broadcast-vs-signal policy, and the Status bits. All status mutation
// happens under the mutex.
type Sync[T any] struct {
	mu        sync.Mutex
	cond      *sync.Cond
	buf       *Buffer[T]
	status    Status
	broadcast bool
}

// NewSync creates a Sync buffer of the given capacity. If broadcast is
// true, Append/Reset/Cancel wake every waiter with Broadcast instead of
// Signal — set this when more than one goroutine may be waiting on the
// same buffer.
func NewSync[T any](capacity int, broadcast bool) *Sync[T] {
	s := &Sync[T]{buf: New[T](capacity), broadcast: broadcast}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Sync[T]) wake() {
	if s.broadcast {
		s.cond.Broadcast()
	} else {
		s.cond.Signal()
	}
}

// Append performs the shift-append under lock, then wakes the consumer.
// The producer never blocks.
func (s *Sync[T]) Append(xs []T) {
	s.mu.Lock()
	s.buf.Append(xs)
	s.mu.Unlock()
	s.wake()
}

// AppendOne is the single-element specialization of Append.
func (s *Sync[T]) AppendOne(x T) {
	s.Append([]T{x})
}

// Reset sets the reset status bit and wakes waiters; it does not itself
// clear the buffered data — the consumer does that via the Handle it gets
// back from WaitAtLeast once it observes the flag.
func (s *Sync[T]) Reset() {
	s.mu.Lock()
	s.status.Reset = true
	s.mu.Unlock()
	s.wake()
}

// Cancel sets the (monotonic) cancel status bit and wakes waiters. Unlike
// Reset, it does not discard buffered data — it forbids further production
// from being meaningfully consumed.
func (s *Sync[T]) Cancel() {
	s.mu.Lock()
	s.status.Cancel = true
	s.mu.Unlock()
	s.wake()
}

// Handle is a locked view over a Sync buffer's contents, returned by
// WaitAtLeast. Callers must not hold a Handle across blocking I/O — doing
// so deadlocks every other user of the buffer. Every exit path must call
// either Release or ReleaseAndSignal exactly once.
type Handle[T any] struct {
	s        *Sync[T]
	released bool
}

// Get returns the valid elements under the lock.
func (h *Handle[T]) Get() []T { return h.s.buf.Get() }

// Len returns the number of valid elements under the lock.
func (h *Handle[T]) Len() int { return h.s.buf.Len() }

// Append appends under the lock without releasing it.
func (h *Handle[T]) Append(xs []T) { h.s.buf.Append(xs) }

// Shift shifts under the lock without releasing it.
func (h *Handle[T]) Shift(n int) { h.s.buf.Shift(n) }

// Reset clears the buffer's contents under the lock without releasing it.
func (h *Handle[T]) Reset() { h.s.buf.Reset() }

// Status returns the current status bits under the lock.
func (h *Handle[T]) Status() Status { return h.s.status }

// Release drops the mutex without signalling anyone.
func (h *Handle[T]) Release() {
	if h.released {
		return
	}
	h.released = true
	h.s.mu.Unlock()
}

// ReleaseAndSignal clears the reset flag (acknowledging it), drops the
// mutex, then wakes waiters — used after a consumer has drained or reset
// its own buffer and needs to propagate that downstream.
func (h *Handle[T]) ReleaseAndSignal() {
	if h.released {
		return
	}
	h.s.status.Reset = false
	h.released = true
	h.s.mu.Unlock()
	h.s.wake()
}

// WaitAtLeast blocks until the buffer holds at least n elements or the
// status is flagged, then returns a locked Handle. The caller owns the
// Handle until it calls Release or ReleaseAndSignal.
func (s *Sync[T]) WaitAtLeast(n int) *Handle[T] {
	s.mu.Lock()
	for s.buf.Len() < n && !s.status.Flagged() {
		s.cond.Wait()
	}
	return &Handle[T]{s: s}
}

// StatusSnapshot returns a copy of the current status bits without
// requiring a WaitAtLeast round-trip — useful for a quick non-blocking
// cancellation check.
func (s *Sync[T]) StatusSnapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ClearReset clears the reset bit under lock without touching cancel or
// waking anyone; used by a consumer that observed reset via StatusSnapshot
// rather than through a Handle.
func (s *Sync[T]) ClearReset() {
	s.mu.Lock()
	s.status.Reset = false
	s.mu.Unlock()
}
