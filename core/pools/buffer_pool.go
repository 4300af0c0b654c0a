package pools

import (
	"sync"
	"sync/atomic"
)

// Response buffer tiers
var bufferTiers = [...]int{
	1 << 10,  // status-only and short text replies
	8 << 10,  // typical message listings
	64 << 10, // large listings
}

// BufferPool recycles serialization buffers in a few capacity tiers.
// Buffers larger than the biggest tier are left to the GC.
type BufferPool struct {
	tiers [len(bufferTiers)]sync.Pool

	gets      atomic.Uint64
	puts      atomic.Uint64
	oversized atomic.Uint64
}

// NewBufferPool creates a new buffer pool
func NewBufferPool() *BufferPool {
	bp := &BufferPool{}
	for i, size := range bufferTiers {
		size := size
		bp.tiers[i].New = func() any {
			buf := make([]byte, 0, size)
			return &buf
		}
	}
	return bp
}

// Get returns an empty buffer with capacity for at least size bytes
func (bp *BufferPool) Get(size int) *[]byte {
	bp.gets.Add(1)
	for i, limit := range bufferTiers {
		if size <= limit {
			return bp.tiers[i].Get().(*[]byte)
		}
	}
	bp.oversized.Add(1)
	buf := make([]byte, 0, size)
	return &buf
}

// Put returns a buffer to the tier matching its capacity
func (bp *BufferPool) Put(buf *[]byte) {
	if buf == nil {
		return
	}
	*buf = (*buf)[:0]
	c := cap(*buf)
	for i := len(bufferTiers) - 1; i >= 0; i-- {
		if c >= bufferTiers[i] {
			if i == len(bufferTiers)-1 && c > bufferTiers[i] {
				return
			}
			bp.puts.Add(1)
			bp.tiers[i].Put(buf)
			return
		}
	}
}

// Stats returns buffer pool statistics
func (bp *BufferPool) Stats() BufferStats {
	return BufferStats{
		Gets:      bp.gets.Load(),
		Puts:      bp.puts.Load(),
		Oversized: bp.oversized.Load(),
	}
}

// BufferStats contains buffer pool statistics
type BufferStats struct {
	Gets      uint64 `json:"gets"`
	Puts      uint64 `json:"puts"`
	Oversized uint64 `json:"oversized"`
}
