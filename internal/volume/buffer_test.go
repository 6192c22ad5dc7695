package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferSizeClamping(t *testing.T) {
	assert.Equal(t, 64*1024, BufferSize(1))
	assert.Equal(t, 4*1024*1024, BufferSize(100*1024*1024))
	assert.Equal(t, 100*1024, BufferSize(100*1024))
}

func TestBufferPoolReuse(t *testing.T) {
	p := newBufferPool(DefaultBufferSize)
	buf := p.get()
	assert.Len(t, buf, DefaultBufferSize)
	p.put(buf)
	buf2 := p.get()
	assert.Len(t, buf2, DefaultBufferSize)
}
