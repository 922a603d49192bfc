// SPDX-License-Identifier: MIT

/*
Package ring implements the lock-free single-producer/single-consumer sample
buffer that carries audio between the real-time callback and the processing
goroutine.

Thread Safety:
  - Exactly one goroutine may call the producer methods (Push, AdvanceWrite)
    and exactly one the consumer methods (Pop).
  - Cursors are monotonic uint32 counters published with atomic stores; a
    slot written before the write cursor passes it is visible to the reader.
  - Cells are stored as float64 bits in atomic words so single-writer and
    single-reader access is free of data races without any lock.

The buffer never refuses a write. Pushing more than Cap() unread samples
overwrites the oldest ones.
*/
package ring

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"vocalfx/pkg/bitint"
)

// ErrCapacity is returned for capacities that are not a positive power of two.
var ErrCapacity = errors.New("ring capacity must be a power of two")

// Buffer is a fixed-capacity SPSC ring of float64 samples.
type Buffer struct {
	cells []atomic.Uint64
	mask  uint32
	write atomic.Uint32
	read  atomic.Uint32
}

// New creates a zero-filled buffer with both cursors at zero.
func New(capacity int) (*Buffer, error) {
	return WithOffset(capacity, 0)
}

// WithOffset creates a buffer whose write cursor starts offset samples ahead
// of the read cursor. An output ring created this way yields offset samples
// of silence before anything written at the read cursor plus offset.
func WithOffset(capacity int, offset uint32) (*Buffer, error) {
	if !bitint.IsPowerOfTwo(capacity) || capacity > math.MaxUint32/2 {
		return nil, fmt.Errorf("%w: %d", ErrCapacity, capacity)
	}
	b := &Buffer{
		cells: make([]atomic.Uint64, capacity),
		mask:  bitint.Mask(capacity),
	}
	b.write.Store(offset)
	return b, nil
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.cells) }

func (b *Buffer) load(idx uint32) float64 {
	return math.Float64frombits(b.cells[idx&b.mask].Load())
}

func (b *Buffer) store(idx uint32, v float64) {
	b.cells[idx&b.mask].Store(math.Float64bits(v))
}

// Push writes v at the write cursor and then publishes the advanced cursor.
func (b *Buffer) Push(v float64) {
	w := b.write.Load()
	b.store(w, v)
	b.write.Store(w + 1)
}

// Pop returns the sample at the read cursor, clears the slot and advances.
// Popping an empty buffer returns whatever the slot holds, which is zero for
// slots that were already consumed.
func (b *Buffer) Pop() float64 {
	r := b.read.Load()
	cell := &b.cells[r&b.mask]
	v := math.Float64frombits(cell.Swap(0))
	b.read.Store(r + 1)
	return v
}

// Available returns write - read modulo 2^32.
func (b *Buffer) Available() uint32 {
	return b.write.Load() - b.read.Load()
}

// WriteIndex returns the monotonic write cursor.
func (b *Buffer) WriteIndex() uint32 { return b.write.Load() }

// ReadIndex returns the monotonic read cursor.
func (b *Buffer) ReadIndex() uint32 { return b.read.Load() }

// AdvanceWrite moves the write cursor n slots without writing.
func (b *Buffer) AdvanceWrite(n uint32) {
	b.write.Add(n)
}

// AddAtOffset adds v to the slot offset samples past the read cursor.
func (b *Buffer) AddAtOffset(offset uint32, v float64) {
	b.AddAt(b.read.Load()+offset, v)
}

// AddAt adds v to the slot at absolute cursor position idx. Overlap-add
// writers use absolute positions so a moving read cursor cannot shift them.
func (b *Buffer) AddAt(idx uint32, v float64) {
	cell := &b.cells[idx&b.mask]
	cell.Store(math.Float64bits(math.Float64frombits(cell.Load()) + v))
}

// SetAt overwrites the slot at absolute cursor position idx.
func (b *Buffer) SetAt(idx uint32, v float64) {
	b.store(idx, v)
}

// LatestBlock fills dst with the last len(dst) samples written, oldest first.
func (b *Buffer) LatestBlock(dst []float64) {
	b.BlockFrom(b.write.Load(), dst)
}

// BlockFrom fills dst with the len(dst) samples written immediately before
// cursor position writeIdx, oldest first. Callers cache writeIdx at a hop
// boundary so later pushes do not shift the frame.
func (b *Buffer) BlockFrom(writeIdx uint32, dst []float64) {
	start := writeIdx - uint32(len(dst))
	for i := range dst {
		dst[i] = b.load(start + uint32(i))
	}
}

// Reset zeroes every cell and both cursors. It must not race with either side.
func (b *Buffer) Reset(offset uint32) {
	for i := range b.cells {
		b.cells[i].Store(0)
	}
	b.read.Store(0)
	b.write.Store(offset)
}
