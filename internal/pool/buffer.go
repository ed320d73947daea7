package pool

import (
	"sync"
)

const (
	// SmallBufferSize is used for parts up to 64KB (4KB)
	SmallBufferSize = 4 * 1024
	// MediumBufferSize is used for parts up to 1MB (64KB)
	MediumBufferSize = 64 * 1024
	// LargeBufferSize is used for everything bigger (1MB)
	LargeBufferSize = 1024 * 1024
)

// BufferPool hands out full-length copy buffers in three tiers.
type BufferPool struct {
	tiers [3]*sync.Pool
}

var tierSizes = [3]int{SmallBufferSize, MediumBufferSize, LargeBufferSize}

// NewBufferPool creates a new buffer pool.
func NewBufferPool() *BufferPool {
	bp := &BufferPool{}
	for i, size := range tierSizes {
		bp.tiers[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, size)
				return &buf
			},
		}
	}
	return bp
}

// tierFor picks the buffer tier for copying n bytes. Small payloads get a
// small buffer so that hashing many tiny parts does not pin megabytes.
func tierFor(n int64) int {
	switch {
	case n <= 16*SmallBufferSize:
		return 0
	case n <= 16*MediumBufferSize:
		return 1
	default:
		return 2
	}
}

// Get returns a buffer suited to copying n bytes.
// The returned slice has len == cap; the caller must hand it back with Put.
func (bp *BufferPool) Get(n int64) *[]byte {
	buf := bp.tiers[tierFor(n)].Get().(*[]byte)
	*buf = (*buf)[:cap(*buf)]
	return buf
}

// Put returns a buffer obtained from Get. Foreign buffers are dropped.
func (bp *BufferPool) Put(buf *[]byte) {
	if buf == nil {
		return
	}
	for i, size := range tierSizes {
		if cap(*buf) == size {
			bp.tiers[i].Put(buf)
			return
		}
	}
}

var global = NewBufferPool()

// Get returns a buffer from the global pool.
func Get(n int64) *[]byte {
	return global.Get(n)
}

// Put returns a buffer to the global pool.
func Put(buf *[]byte) {
	global.Put(buf)
}
