package merge

import "sync"

// rowPool recycles row-sized byte buffers across ReadRow calls, in the
// same spirit as a sync.Pool of reusable scratch buffers: a merge over
// many inputs allocates one row buffer per input per call without it,
// which dominates allocator traffic on a busy tile server.
type rowPool struct {
	pool sync.Pool
}

func newRowPool() *rowPool {
	return &rowPool{}
}

// get returns a []byte of exactly size bytes, zeroed, reused from the
// pool when a large-enough buffer is available.
func (p *rowPool) get(size int) []byte {
	if v := p.pool.Get(); v != nil {
		buf := v.([]byte)
		if cap(buf) >= size {
			buf = buf[:size]
			for i := range buf {
				buf[i] = 0
			}
			return buf
		}
	}
	return make([]byte, size)
}

// put returns buf to the pool for reuse.
func (p *rowPool) put(buf []byte) {
	p.pool.Put(buf) //nolint:staticcheck // intentional: pooled []byte, not a pointer
}
