// Package x224 implements the class-0 X.224 TPDUs RDP runs over (ITU-T
// X.224 §8): Connection Request/Confirm carrying the RDP_NEG_* security
// negotiation, and Data TPDUs that simply carry an MCS PDU payload.
package x224

import (
	"bytes"
	"io"

	"github.com/gordp-go/dvcmux/core"
	"github.com/gordp-go/dvcmux/proto/tpkt"
)

// TPDU codes, X.224 §8 Table 5.
const (
	TPDU_CONNECTION_REQUEST = 0xE0
	TPDU_CONNECTION_CONFIRM = 0xD0
	TPDU_DISCONNECT_REQUEST = 0x80
	TPDU_DATA               = 0xF0
	TPDU_ERROR              = 0x70
)

// Header is the fixed 7-byte X.224 header used by Connection Request,
// Connection Confirm and Disconnect Request TPDUs: LI, code, DST-REF,
// SRC-REF and a one-byte class/options field.
type Header struct {
	Length  uint8
	PduType uint8
	DstRef  uint16
	SrcRef  uint16
	Flags   uint8
}

// Read decodes the fixed header fields, panicking on a short read.
func (h *Header) Read(r io.Reader) {
	core.ReadBE(r, &h.Length)
	core.ReadBE(r, &h.PduType)
	core.ReadBE(r, &h.DstRef)
	core.ReadBE(r, &h.SrcRef)
	core.ReadBE(r, &h.Flags)
}

// Write encodes the fixed header fields.
func (h *Header) Write(w io.Writer) {
	core.WriteBE(w, h.Length)
	core.WriteBE(w, h.PduType)
	core.WriteBE(w, h.DstRef)
	core.WriteBE(w, h.SrcRef)
	core.WriteBE(w, h.Flags)
}

// readFrame reads one TPKT-framed TPDU and returns its code and payload,
// handling the two header shapes X.224 class 0 actually uses here: a
// 1-byte EOT trailer for DATA TPDUs, and DST-REF/SRC-REF/Class for
// CR/CC/DR (tpdu_read_header in original_source/libfreerdp-core/tpdu.c).
func readFrame(r io.Reader) (code uint8, payload []byte) {
	frame := tpkt.Read(r)
	br := bytes.NewReader(frame)

	var li uint8
	core.ReadBE(br, &li)
	core.ThrowIf(int(li) > len(frame), "x224: length indicator exceeds TPKT frame")
	core.ReadBE(br, &code)

	if code == TPDU_DATA {
		var eot uint8
		core.ReadBE(br, &eot)
	} else {
		skip := make([]byte, 5) // DST-REF(2) + SRC-REF(2) + Class(1)
		core.ReadFull(br, skip)
	}

	payload = make([]byte, br.Len())
	core.ReadFull(br, payload)
	return code, payload
}

// writeFrame wraps payload in a TPDU with the given code and a TPKT frame.
func writeFrame(w io.Writer, code uint8, payload []byte) {
	var buf bytes.Buffer
	if code == TPDU_DATA {
		core.WriteBE(&buf, uint8(2)) // LI
		core.WriteBE(&buf, code)
		core.WriteBE(&buf, uint8(0x80)) // EOT
	} else {
		core.WriteBE(&buf, uint8(6)) // LI
		core.WriteBE(&buf, code)
		core.WriteBE(&buf, uint16(0)) // DST-REF
		core.WriteBE(&buf, uint16(0)) // SRC-REF
		core.WriteBE(&buf, uint8(0))  // Class 0
	}
	_, err := buf.Write(payload)
	core.ThrowError(err)
	tpkt.Write(w, buf.Bytes())
}

// Read reads one TPKT-framed X.224 Data TPDU and returns its payload, the
// form every MCS PDU is carried in once the connection is established.
func Read(r io.Reader) []byte {
	code, payload := readFrame(r)
	core.ThrowIf(code != TPDU_DATA, "x224: expected data TPDU")
	return payload
}

// ReadAny reads one TPKT-framed TPDU of any class-0 code, used by the
// negotiation handshake to read a Connection Confirm.
func ReadAny(r io.Reader) (code uint8, payload []byte) {
	return readFrame(r)
}

// Write wraps data in a Data TPDU and a TPKT frame and writes it.
func Write(w io.Writer, data []byte) {
	writeFrame(w, TPDU_DATA, data)
}
