// Package ring provides a single-producer, single-consumer FIFO of fixed-size
// records. The producer never blocks: a push into a full ring is dropped and
// counted. Neither side needs an external lock.
package ring

import "sync/atomic"

// Ring is a lock-free SPSC ring of T.
type Ring[T any] struct {
	buf  []T
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)

	drops atomic.Uint32

	readable chan struct{} // empty -> non-empty edge
}

// New allocates a ring holding size records. size must be a power of two >= 2.
func New[T any](size int) *Ring[T] {
	if size < 2 || (size&(size-1)) != 0 {
		panic("ring: size must be power of two >= 2")
	}
	return &Ring[T]{
		buf:      make([]T, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
	}
}

func (r *Ring[T]) size() uint32 { return uint32(len(r.buf)) }

// Cap returns the ring capacity in records.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Len returns the number of queued records.
func (r *Ring[T]) Len() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	return int(wr - rd)
}

// Drops returns the number of records rejected because the ring was full.
func (r *Ring[T]) Drops() uint32 { return r.drops.Load() }

// Producer side

// TryPush appends v. It returns false, and counts a drop, when full.
func (r *Ring[T]) TryPush(v T) bool {
	rd := r.rd.Load()
	wr := r.wr.Load()
	before := wr - rd
	if before >= r.size() {
		r.drops.Add(1)
		return false
	}
	r.buf[wr&r.mask] = v
	r.wr.Store(wr + 1) // release

	if before == 0 {
		select {
		case r.readable <- struct{}{}:
		default:
		}
	}
	return true
}

// Consumer side

// PopInto moves up to len(dst) records into dst and returns the count.
func (r *Ring[T]) PopInto(dst []T) (n int) {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	avail := int(wr - rd)
	if avail <= 0 {
		return 0
	}
	if len(dst) < avail {
		avail = len(dst)
	}
	var zero T
	for i := 0; i < avail; i++ {
		idx := (rd + uint32(i)) & r.mask
		dst[i] = r.buf[idx]
		r.buf[idx] = zero
	}
	r.rd.Store(rd + uint32(avail)) // release
	return avail
}

// Pop removes one record.
func (r *Ring[T]) Pop() (T, bool) {
	var one [1]T
	if r.PopInto(one[:]) == 0 {
		return one[0], false
	}
	return one[0], true
}

// Readable fires once each time the ring goes from empty to non-empty.
func (r *Ring[T]) Readable() <-chan struct{} { return r.readable }
