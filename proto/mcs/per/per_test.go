package per

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLengthRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	WriteLength(&buf, 42)
	assert.Equal(t, 42, ReadLength(&buf))
}

func TestLengthTwoOctetForm(t *testing.T) {
	var buf bytes.Buffer
	WriteLength(&buf, 300)
	assert.Equal(t, 300, ReadLength(&buf))
}

func TestChoiceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	WriteChoice(&buf, 0x68)
	assert.Equal(t, uint8(0x68), ReadChoice(&buf))
}

func TestEnumeratedRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	WriteEnumerated(&buf, 1)
	assert.Equal(t, uint8(1), ReadEnumerated(&buf))
}

func TestIntegerRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 0xff, 0x1234, 0x12345678} {
		var buf bytes.Buffer
		WriteInteger(&buf, v)
		assert.Equal(t, v, ReadInteger(&buf))
	}
}

func TestInteger16RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	WriteInteger16(&buf, 1003, 1001)
	assert.Equal(t, uint16(1003), ReadInteger16(&buf, 1001))
}

func TestOctetStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	data := []byte("hello world")
	WriteOctetString(&buf, data, 0)
	assert.Equal(t, data, ReadOctetString(&buf, 0))
}

func TestBooleanRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	WriteBoolean(&buf, true)
	WriteBoolean(&buf, false)
	assert.True(t, ReadBoolean(&buf))
	assert.False(t, ReadBoolean(&buf))
}
