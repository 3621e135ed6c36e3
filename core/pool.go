package core

import "sync"

// BufferPool hands out reusable byte slices of chunkSize capacity. Callers
// Get a buffer sized to at least n bytes and Put it back once the last
// holder is done with it. dvcman.Manager holds one pool; neither the TPKT
// read path nor the DVC send path takes buffers from it, so each frame
// and chunk is still allocated separately.
type BufferPool struct {
	chunkSize int
	pool      sync.Pool
}

// NewBufferPool creates a pool of buffers sized to chunkSize.
func NewBufferPool(chunkSize int) *BufferPool {
	return &BufferPool{
		chunkSize: chunkSize,
		pool: sync.Pool{
			New: func() interface{} {
				return make([]byte, 0, chunkSize)
			},
		},
	}
}

// Get returns a buffer with at least n bytes of capacity and length n.
func (p *BufferPool) Get(n int) []byte {
	buf := p.pool.Get().([]byte)
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}

// Put returns buf to the pool. Callers must not use buf afterwards.
func (p *BufferPool) Put(buf []byte) {
	if cap(buf) < p.chunkSize {
		return
	}
	p.pool.Put(buf[:0]) //nolint:staticcheck // reset length, keep backing array
}
