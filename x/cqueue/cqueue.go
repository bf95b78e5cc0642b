// Package cqueue provides a fixed-capacity circular queue over a
// caller-supplied backing slice.
//
// A Queue never allocates after construction and never grows. It is not
// safe for concurrent use: when one side runs in interrupt context the
// other side must mask interrupts around each access (see package irq).
package cqueue

import "mcuhal-go/errcode"

// Queue is a ring buffer of T with head/tail indices and an explicit length.
type Queue[T any] struct {
	buf       []T
	head      int // next element to pop
	tail      int // next slot to push
	n         int
	overwrite bool
}

// New returns a queue that stores its elements in buf. The queue owns buf
// from here on; its capacity is len(buf). When overwrite is true, Push on a
// full queue evicts the oldest element instead of dropping the new one.
func New[T any](buf []T, overwrite bool) (*Queue[T], error) {
	if len(buf) == 0 {
		return nil, &errcode.E{C: errcode.ZeroCapacity, Op: "cqueue.New", Msg: "backing buffer is empty"}
	}
	return &Queue[T]{buf: buf, overwrite: overwrite}, nil
}

// MustNew is New for statically sized buffers known to be non-empty.
func MustNew[T any](buf []T, overwrite bool) *Queue[T] {
	q, err := New(buf, overwrite)
	if err != nil {
		panic(err)
	}
	return q
}

// Push appends v. It reports false, leaving the queue unchanged, when the
// queue is full and overwrite is disabled.
func (q *Queue[T]) Push(v T) bool {
	if q.n == len(q.buf) {
		if !q.overwrite {
			return false
		}
		// Evict the oldest; length stays at capacity.
		q.head = q.next(q.head)
		q.n--
	}
	q.buf[q.tail] = v
	q.tail = q.next(q.tail)
	q.n++
	return true
}

// Pop removes and returns the oldest element. ok is false on an empty queue.
func (q *Queue[T]) Pop() (v T, ok bool) {
	if q.n == 0 {
		return v, false
	}
	v = q.buf[q.head]
	q.head = q.next(q.head)
	q.n--
	return v, true
}

// Peek returns the oldest element without removing it.
func (q *Queue[T]) Peek() (v T, ok bool) {
	if q.n == 0 {
		return v, false
	}
	return q.buf[q.head], true
}

func (q *Queue[T]) Len() int      { return q.n }
func (q *Queue[T]) Cap() int      { return len(q.buf) }
func (q *Queue[T]) Space() int    { return len(q.buf) - q.n }
func (q *Queue[T]) IsEmpty() bool { return q.n == 0 }
func (q *Queue[T]) IsFull() bool  { return q.n == len(q.buf) }

// Overwrite reports whether the queue evicts on a full Push.
func (q *Queue[T]) Overwrite() bool { return q.overwrite }

// Flush empties the queue. Backing storage is left as is.
func (q *Queue[T]) Flush() {
	q.head, q.tail, q.n = 0, 0, 0
}

func (q *Queue[T]) next(i int) int {
	i++
	if i == len(q.buf) {
		return 0
	}
	return i
}
