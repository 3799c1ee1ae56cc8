// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package boundq

import (
	"fmt"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Bounded is a CAS-based multi-producer multi-consumer bounded queue.
//
// Each slot carries a sequence number tied to the logical position that
// may touch it next:
//   - seq == pos:            writable by the producer that claims pos
//   - seq == pos+1:          readable by the consumer that claims pos
//   - seq == pos+capacity:   released for the producer one lap ahead
//
// Producers and consumers claim positions with a CAS on tail and head
// respectively, so every successful Enqueue or Dequeue maps to exactly one
// winning CAS. The sequence store-release / load-acquire pair is the only
// hand-off between the writer and the reader of a slot.
//
// Positions are uint64 and wrap modulo 2^64. Capacity is a power of two no
// larger than MaxCapacity, so pos&mask stays consistent across the wrap and
// the signed modular difference between a slot sequence and a position
// always classifies the slot correctly.
//
// Memory: n slots (16+ bytes per slot)
type Bounded[T any] struct {
	_        pad
	tail     atomix.Uint64 // Enqueue position
	_        pad
	head     atomix.Uint64 // Dequeue position
	_        pad
	buffer   []slot[T]
	mask     uint64
	capacity uint64
}

type slot[T any] struct {
	seq  atomix.Uint64
	data T
	_    padShort // Pad to cache line
}

// New creates a bounded MPMC queue.
// Capacity rounds up to the next power of 2.
//
// Returns an error wrapping ErrCapacity if capacity < 2 or capacity > MaxCapacity.
func New[T any](capacity int) (*Bounded[T], error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	return newAt[T](capacity, 0), nil
}

// MustNew is like New but panics if capacity is invalid.
func MustNew[T any](capacity int) *Bounded[T] {
	q, err := New[T](capacity)
	if err != nil {
		panic(err)
	}
	return q
}

func checkCapacity(capacity int) error {
	if capacity < 2 {
		return fmt.Errorf("boundq: capacity %d: must be >= 2: %w", capacity, ErrCapacity)
	}
	if capacity > MaxCapacity {
		return fmt.Errorf("boundq: capacity %d: must be <= %d: %w", capacity, MaxCapacity, ErrCapacity)
	}
	return nil
}

// newAt builds a queue whose first position is start.
func newAt[T any](capacity int, start uint64) *Bounded[T] {
	n := uint64(roundToPow2(capacity))
	q := &Bounded[T]{
		buffer:   make([]slot[T], n),
		mask:     n - 1,
		capacity: n,
	}

	for i := uint64(0); i < n; i++ {
		pos := start + i
		q.buffer[pos&q.mask].seq.StoreRelaxed(pos)
	}
	q.tail.StoreRelaxed(start)
	q.head.StoreRelaxed(start)

	return q
}

// Enqueue adds an element to the queue.
// The element is copied into the claimed slot.
// Returns ErrWouldBlock if the queue is full.
func (q *Bounded[T]) Enqueue(elem *T) error {
	var sw spin.Wait
	for {
		pos := q.tail.LoadAcquire()
		s := &q.buffer[pos&q.mask]
		switch d := distance(s.seq.LoadAcquire(), pos); {
		case d < 0:
			// The slot still holds the element written one lap behind.
			return ErrWouldBlock
		case d == 0 && q.tail.CompareAndSwapAcqRel(pos, pos+1):
			s.data = *elem
			s.seq.StoreRelease(pos + 1)
			return nil
		}
		// Lost the CAS, or another producer already took pos.
		sw.Once()
	}
}

// Dequeue removes and returns an element from the queue.
// The slot is cleared so referenced objects can be collected.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *Bounded[T]) Dequeue() (T, error) {
	var (
		sw   spin.Wait
		zero T
	)
	for {
		pos := q.head.LoadAcquire()
		s := &q.buffer[pos&q.mask]
		switch d := distance(s.seq.LoadAcquire(), pos+1); {
		case d < 0:
			// No producer has published pos yet.
			return zero, ErrWouldBlock
		case d == 0 && q.head.CompareAndSwapAcqRel(pos, pos+1):
			elem := s.data
			s.data = zero
			// Hand the slot to the producer of pos+capacity.
			s.seq.StoreRelease(pos + q.capacity)
			return elem, nil
		}
		sw.Once()
	}
}

// distance is the signed offset of a slot sequence from a position.
// Both wrap modulo 2^64 and so does the subtraction; the sign stays exact
// while the true gap is below 2^63, which MaxCapacity guarantees.
func distance(seq, pos uint64) int64 {
	return int64(seq - pos)
}

// TryEnqueue adds v to the queue and reports whether it was accepted.
func (q *Bounded[T]) TryEnqueue(v T) bool {
	return q.Enqueue(&v) == nil
}

// TryDequeue removes an element and reports whether one was available.
func (q *Bounded[T]) TryDequeue() (T, bool) {
	v, err := q.Dequeue()
	return v, err == nil
}

// Cap returns the queue capacity.
func (q *Bounded[T]) Cap() int {
	return int(q.capacity)
}
