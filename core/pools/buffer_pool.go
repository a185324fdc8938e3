package pools

import (
	"errors"
	"sync/atomic"
)

// Default pool geometry for request body buffers
const (
	DefaultBufferSize = 16 * 1024 // 16KB per slot
	DefaultPoolSlots  = 1000
)

var ErrPoolExhausted = errors.New("buffer pool exhausted")

// BufferPool is a fixed pool of pre-allocated, fixed-capacity byte buffers
// used to absorb request bodies without per-request allocation.
//
// Every Acquire hands out a slot exclusively until its Release; when all
// slots are out, Acquire fails with ErrPoolExhausted instead of aliasing a
// buffer that another request is still writing into.
type BufferPool struct {
	free    chan *Buffer
	slots   int
	bufSize int

	// Statistics
	acquires  atomic.Uint64
	exhausted atomic.Uint64
	releases  atomic.Uint64
}

// Buffer is a pooled byte buffer. B always has the slot's full capacity;
// callers track how much of it they filled.
type Buffer struct {
	B    []byte
	pool *BufferPool
}

// NewBufferPool creates a pool of slots buffers of bufSize bytes each,
// all allocated up front.
func NewBufferPool(slots, bufSize int) *BufferPool {
	if slots <= 0 {
		slots = DefaultPoolSlots
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	p := &BufferPool{
		free:    make(chan *Buffer, slots),
		slots:   slots,
		bufSize: bufSize,
	}

	for i := 0; i < slots; i++ {
		p.free <- &Buffer{
			B:    make([]byte, bufSize),
			pool: p,
		}
	}

	return p
}

// Acquire takes a buffer out of the pool. It never blocks: when every slot
// is in flight it returns ErrPoolExhausted so the caller can shed load.
func (p *BufferPool) Acquire() (*Buffer, error) {
	p.acquires.Add(1)

	select {
	case buf := <-p.free:
		return buf, nil
	default:
		p.exhausted.Add(1)
		return nil, ErrPoolExhausted
	}
}

// Release returns the buffer to the pool. A buffer must be released exactly
// once; releasing twice would let two requests share the same slot.
func (b *Buffer) Release() {
	if b == nil || b.pool == nil {
		return
	}
	b.pool.releases.Add(1)
	b.pool.free <- b
}

// Cap returns the fixed capacity of every buffer in the pool.
func (p *BufferPool) Cap() int {
	return p.bufSize
}

// Stats returns pool statistics
func (p *BufferPool) Stats() BufferPoolStats {
	return BufferPoolStats{
		Slots:     p.slots,
		Free:      len(p.free),
		Acquires:  p.acquires.Load(),
		Exhausted: p.exhausted.Load(),
		Releases:  p.releases.Load(),
	}
}

// BufferPoolStats contains buffer pool statistics
type BufferPoolStats struct {
	Slots     int
	Free      int
	Acquires  uint64
	Exhausted uint64
	Releases  uint64
}
