// Package per implements the subset of ITU-T X.691 Packed Encoding Rules
// (PER, aligned variant) that T.125 MCS actually uses on the wire: short
// lengths, small integers biased against a known minimum, choice indices,
// and octet strings. It does not attempt general ASN.1 PER — only the
// handful of encodings MCS's Connect-Initial/Response and domain PDUs need.
package per

import (
	"io"

	"github.com/gordp-go/dvcmux/core"
)

// WriteLength writes a PER length determinant. Values below 0x80 fit in a
// single byte; larger values use the two-octet (0x8000 | length) form,
// which ReadLength decodes as well.
func WriteLength(w io.Writer, length int) {
	if length > 0x7f {
		core.WriteBE(w, uint16(length|0x8000))
		return
	}
	core.WriteBE(w, uint8(length))
}

// ReadLength reads a PER length determinant.
func ReadLength(r io.Reader) int {
	var b uint8
	core.ReadBE(r, &b)
	if b&0x80 != 0 {
		var b2 uint8
		core.ReadBE(r, &b2)
		return (int(b&0x7f) << 8) | int(b2)
	}
	return int(b)
}

// WriteChoice writes a CHOICE index as a single octet, the encoding MCS
// domain PDU headers use for (pduType<<2)|options.
func WriteChoice(w io.Writer, choice uint8) {
	core.WriteBE(w, choice)
}

// ReadChoice reads a CHOICE index octet.
func ReadChoice(r io.Reader) uint8 {
	var b uint8
	core.ReadBE(r, &b)
	return b
}

// WriteEnumerated writes an ENUMERATED value as a single octet.
func WriteEnumerated(w io.Writer, value uint8) {
	core.WriteBE(w, value)
}

// ReadEnumerated reads an ENUMERATED value, a single octet.
func ReadEnumerated(r io.Reader) uint8 {
	var b uint8
	core.ReadBE(r, &b)
	return b
}

// WriteInteger writes an unconstrained INTEGER: a length-prefixed,
// minimal big-endian encoding.
func WriteInteger(w io.Writer, value uint32) {
	switch {
	case value <= 0xff:
		WriteLength(w, 1)
		core.WriteBE(w, uint8(value))
	case value <= 0xffff:
		WriteLength(w, 2)
		core.WriteBE(w, uint16(value))
	default:
		WriteLength(w, 4)
		core.WriteBE(w, value)
	}
}

// ReadInteger reads an unconstrained INTEGER encoded the way WriteInteger
// produces it.
func ReadInteger(r io.Reader) uint32 {
	n := ReadLength(r)
	switch n {
	case 1:
		var v uint8
		core.ReadBE(r, &v)
		return uint32(v)
	case 2:
		var v uint16
		core.ReadBE(r, &v)
		return uint32(v)
	case 4:
		var v uint32
		core.ReadBE(r, &v)
		return v
	default:
		core.ThrowErrorf("per: unsupported integer length %d", n)
		return 0
	}
}

// WriteInteger16 writes a constrained INTEGER in the range
// [min, min+0xffff], encoded as (value-min) big-endian over 2 octets.
func WriteInteger16(w io.Writer, value, min uint16) {
	core.WriteBE(w, value-min)
}

// ReadInteger16 reads a constrained 16-bit INTEGER biased by min.
func ReadInteger16(r io.Reader, min uint16) uint16 {
	var v uint16
	core.ReadBE(r, &v)
	return v + min
}

// WriteOctetString writes a variable-length OCTET STRING constrained with
// lower bound min: the length determinant covers len(data)-min octets of
// payload, matching MCS's UserData/octet-string fields.
func WriteOctetString(w io.Writer, data []byte, min int) {
	WriteLength(w, len(data)-min)
	_, err := w.Write(data)
	core.ThrowError(err)
}

// ReadOctetString reads an OCTET STRING constrained with lower bound min.
func ReadOctetString(r io.Reader, min int) []byte {
	n := ReadLength(r) + min
	buf := make([]byte, n)
	core.ReadFull(r, buf)
	return buf
}

// WriteNumericString writes a NumericString padded to the nearest byte,
// BCD-packing two decimal digits per octet the way T.125 UserData
// numeric fields (e.g. the "1" channel count field) are encoded.
func WriteNumericString(w io.Writer, s string, min int) {
	WriteLength(w, len(s)-min)
	padded := s
	if len(padded)%2 != 0 {
		padded += "0"
	}
	buf := make([]byte, len(padded)/2)
	for i := 0; i < len(buf); i++ {
		hi := digitValue(padded[i*2])
		lo := digitValue(padded[i*2+1])
		buf[i] = (hi << 4) | lo
	}
	_, err := w.Write(buf)
	core.ThrowError(err)
}

func digitValue(c byte) byte {
	if c >= '0' && c <= '9' {
		return c - '0'
	}
	return 0
}

// WriteBoolean writes a BOOLEAN as a single octet, 0x00 or 0xff.
func WriteBoolean(w io.Writer, v bool) {
	if v {
		core.WriteBE(w, uint8(0xff))
		return
	}
	core.WriteBE(w, uint8(0x00))
}

// ReadBoolean reads a BOOLEAN octet.
func ReadBoolean(r io.Reader) bool {
	var b uint8
	core.ReadBE(r, &b)
	return b != 0
}
