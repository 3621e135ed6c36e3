package mcs

import (
	"io"

	"github.com/gordp-go/dvcmux/core"
)

// writeApplicationTag wraps body in a BER APPLICATION-class constructed
// tag, using the high-tag-number form for tag numbers above 30 (both
// Connect-Initial=101 and Connect-Response=102 need it), matching
// ber_write_application_tag in original_source/libfreerdp-core/ber.c.
func writeApplicationTag(w io.Writer, tagNumber uint8, body []byte) {
	core.WriteBE(w, uint8(0x7f)) // class=APPLICATION, constructed, high-tag-number marker
	core.WriteBE(w, tagNumber)
	writeBerLength(w, len(body))
	_, err := w.Write(body)
	core.ThrowError(err)
}

// readApplicationTag reads a BER APPLICATION-class tag, verifying the tag
// number matches expected, and returns its body.
func readApplicationTag(r io.Reader, expected uint8) []byte {
	var marker, tagNumber uint8
	core.ReadBE(r, &marker)
	core.ThrowIf(marker != 0x7f, "mcs: expected BER APPLICATION high-tag-number marker")
	core.ReadBE(r, &tagNumber)
	core.ThrowIf(tagNumber != expected, "mcs: unexpected BER application tag")

	length := readBerLength(r)
	body := make([]byte, length)
	core.ReadFull(r, body)
	return body
}

// writeBerLength writes a BER definite-length determinant: short form for
// lengths below 0x80, two-octet long form otherwise (ConnectInitial's
// UserData payload routinely exceeds 127 bytes).
func writeBerLength(w io.Writer, length int) {
	if length < 0x80 {
		core.WriteBE(w, uint8(length))
		return
	}
	core.WriteBE(w, uint8(0x82))
	core.WriteBE(w, uint16(length))
}

func readBerLength(r io.Reader) int {
	var b uint8
	core.ReadBE(r, &b)
	if b&0x80 == 0 {
		return int(b)
	}
	numOctets := int(b & 0x7f)
	var length int
	for i := 0; i < numOctets; i++ {
		var octet uint8
		core.ReadBE(r, &octet)
		length = length<<8 | int(octet)
	}
	return length
}

// Connect-Initial's scalar fields (UpwardFlag, the DomainParameters
// sequences) are handled by asn1ber directly; these helpers only cover the
// outer envelope that asn1ber doesn't model — a bare high-tag-number
// APPLICATION wrapper around fields that are otherwise standard BER/DER.
