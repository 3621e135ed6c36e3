package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadWriteLERoundTrip(t *testing.T) {
	var buf bytes.Buffer
	WriteLE(&buf, uint32(0x11223344))
	var got uint32
	ReadLE(&buf, &got)
	assert.Equal(t, uint32(0x11223344), got)
}

func TestReadWriteBERoundTrip(t *testing.T) {
	var buf bytes.Buffer
	WriteBE(&buf, uint16(0xABCD))
	assert.Equal(t, []byte{0xAB, 0xCD}, buf.Bytes())
	var got uint16
	ReadBE(&buf, &got)
	assert.Equal(t, uint16(0xABCD), got)
}

func TestReadFullShortReadPanics(t *testing.T) {
	buf := bytes.NewReader([]byte{0x01, 0x02})
	assert.Panics(t, func() {
		dst := make([]byte, 4)
		ReadFull(buf, dst)
	})
}

func TestBufferPoolGetPut(t *testing.T) {
	p := NewBufferPool(64)
	b := p.Get(32)
	assert.Len(t, b, 32)
	p.Put(b)
	b2 := p.Get(16)
	assert.Len(t, b2, 16)
}
