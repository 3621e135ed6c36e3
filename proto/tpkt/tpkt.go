// Package tpkt implements the TPKT framing defined in ITU-T T.123: a
// 4-byte header (version, reserved, total length) in front of every X.224
// TPDU carried over the TCP connection.
package tpkt

import (
	"io"

	"github.com/gordp-go/dvcmux/core"
)

const (
	tpktVersion  = 3
	headerLen    = 4
	minPacketLen = 7 // header plus the smallest X.224 TPDU header
	maxPacketLen = 0xffff
)

// Header is the 4-byte TPKT header.
type Header struct {
	Version  uint8
	Reserved uint8
	Length   uint16
}

// Read decodes a TPKT header, panicking if the version byte isn't 3 or the
// stream ends before the header is complete.
func (h *Header) Read(r io.Reader) {
	core.ReadBE(r, &h.Version)
	core.ThrowIf(h.Version != tpktVersion, "tpkt: invalid version")
	core.ReadBE(r, &h.Reserved)
	core.ReadBE(r, &h.Length)
}

// Write encodes the header.
func (h *Header) Write(w io.Writer) {
	core.WriteBE(w, h.Version)
	core.WriteBE(w, h.Reserved)
	core.WriteBE(w, h.Length)
}

// Read reads one complete TPKT packet and returns its payload (the bytes
// after the 4-byte header).
func Read(r io.Reader) []byte {
	h := &Header{}
	h.Read(r)
	core.ThrowIf(int(h.Length) < minPacketLen, "tpkt: length smaller than minimum packet")
	payload := make([]byte, int(h.Length)-headerLen)
	core.ReadFull(r, payload)
	return payload
}

// Write wraps data in a TPKT header and writes the complete packet.
func Write(w io.Writer, data []byte) {
	total := len(data) + headerLen
	core.ThrowIf(total > maxPacketLen, "tpkt: packet too large")
	h := &Header{Version: tpktVersion, Length: uint16(total)}
	h.Write(w)
	_, err := w.Write(data)
	core.ThrowError(err)
}
