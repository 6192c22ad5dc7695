package volume

import "sync"

// bufferPool recycles the fixed-size buffers DeviceIoControl reads
// FSCTL_ENUM_USN_DATA/FSCTL_READ_USN_JOURNAL output into, avoiding a
// fresh allocation on every IOCTL round trip during a full-volume
// enumeration.
type bufferPool struct {
	size int
	pool sync.Pool
}

func newBufferPool(size int) *bufferPool {
	size = BufferSize(size)
	return &bufferPool{
		size: size,
		pool: sync.Pool{New: func() any {
			b := make([]byte, size)
			return &b
		}},
	}
}

func (p *bufferPool) get() []byte {
	return *(p.pool.Get().(*[]byte))
}

func (p *bufferPool) put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	buf = buf[:p.size]
	p.pool.Put(&buf)
}
