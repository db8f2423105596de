package pool

import "sync"

// maxPooledCapacity keeps a single huge line from pinning memory in the pool.
const maxPooledCapacity = 64 * 1024

// BufferPool implements a pool of byte slices for efficient memory reuse
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool creates a new buffer pool with buffers of the specified size
func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				buffer := make([]byte, 0, size)
				return &buffer
			},
		},
	}
}

// Get retrieves an empty buffer with room for at least size bytes.
func (bp *BufferPool) Get(size int) *[]byte {
	buffer := bp.pool.Get().(*[]byte)
	if cap(*buffer) < size {
		*buffer = make([]byte, 0, size)
	}
	*buffer = (*buffer)[:0]
	return buffer
}

// Put returns a buffer to the pool for reuse. Oversized buffers are dropped.
func (bp *BufferPool) Put(buffer *[]byte) {
	if cap(*buffer) > maxPooledCapacity {
		return
	}
	*buffer = (*buffer)[:0]
	bp.pool.Put(buffer)
}
