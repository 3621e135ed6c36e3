// Package drdynvc implements the DRDYNVC (Dynamic Virtual Channel) PDU
// wire format carried inside the "drdynvc" static virtual channel
// (MS-RDPEDYC): a one-byte header packing a command nibble, a 2-bit
// length-of-length selector, and a 2-bit channel-ID-width selector, in
// front of each of the five PDU shapes the protocol defines.
package drdynvc

import (
	"io"

	"github.com/gordp-go/dvcmux/core"
)

// Cmd is the upper nibble of the DRDYNVC header byte.
type Cmd uint8

const (
	CmdCreateRequest     Cmd = 0x01
	CmdDataFirst         Cmd = 0x02
	CmdData              Cmd = 0x03
	CmdCloseRequest      Cmd = 0x04
	CmdCapabilityRequest Cmd = 0x05
)

// splitHeader unpacks a DRDYNVC header byte into (Cmd, Sp, cbChId), the
// layout confirmed by drdynvc_order_recv in
// original_source/channels/drdynvc/client/drdynvc_main.c:
// value = (Cmd<<4) | (Sp<<2) | cbChId.
func splitHeader(value uint8) (cmd Cmd, sp, cbChId uint8) {
	return Cmd((value & 0xf0) >> 4), (value & 0x0c) >> 2, value & 0x03
}

func packHeader(cmd Cmd, sp, cbChId uint8) uint8 {
	return uint8(cmd)<<4 | (sp&0x03)<<2 | (cbChId & 0x03)
}

// cblenToWidth maps the 2-bit selector to the byte width of the
// corresponding variable-length field (drdynvc_cblen_to_bytes).
func cblenToWidth(code uint8) int {
	switch code {
	case 0:
		return 1
	case 1:
		return 2
	default:
		return 4
	}
}

// widthToCblen picks the narrowest selector that can hold value.
func widthToCblen(value uint32) uint8 {
	switch {
	case value <= 0xff:
		return 0
	case value <= 0xffff:
		return 1
	default:
		return 2
	}
}

// readVarUint reads a little-endian unsigned integer whose width is
// selected by code (0=1 byte, 1=2 bytes, else 4 bytes).
func readVarUint(r io.Reader, code uint8) uint32 {
	switch cblenToWidth(code) {
	case 1:
		var v uint8
		core.ReadLE(r, &v)
		return uint32(v)
	case 2:
		var v uint16
		core.ReadLE(r, &v)
		return uint32(v)
	default:
		var v uint32
		core.ReadLE(r, &v)
		return v
	}
}

// writeVarUint writes value in the width selected by code.
func writeVarUint(w io.Writer, value uint32, code uint8) {
	switch cblenToWidth(code) {
	case 1:
		core.WriteLE(w, uint8(value))
	case 2:
		core.WriteLE(w, uint16(value))
	default:
		core.WriteLE(w, value)
	}
}

// CreateRequest opens a new dynamic channel by name, sent by the server
// and echoed back unmodified by the client in the teacher's flow (a
// client-initiated open mirrors this same shape per spec.md §4.7).
type CreateRequest struct {
	ChannelId uint32
	Name      string
}

func (p *CreateRequest) Write(w io.Writer) {
	cblen := widthToCblen(p.ChannelId)
	core.WriteBE(w, packHeader(CmdCreateRequest, 0, cblen))
	writeVarUint(w, p.ChannelId, cblen)
	_, err := w.Write(append([]byte(p.Name), 0))
	core.ThrowError(err)
}

// ReadCreateRequest reads the body of a CreateRequest given the header's
// cbChId selector (the header byte itself must already be consumed).
func ReadCreateRequest(r io.Reader, cbChId uint8) *CreateRequest {
	p := &CreateRequest{ChannelId: readVarUint(r, cbChId)}
	p.Name = readCString(r)
	return p
}

func readCString(r io.Reader) string {
	var buf []byte
	for {
		var b [1]byte
		core.ReadFull(r, b[:])
		if b[0] == 0 {
			break
		}
		buf = append(buf, b[0])
	}
	return string(buf)
}

// DataFirst is the first fragment of a multi-fragment DVC data message,
// carrying the total reassembled Length.
type DataFirst struct {
	ChannelId uint32
	Length    uint32
	Data      []byte
}

func (p *DataFirst) Write(w io.Writer) {
	cbChId := widthToCblen(p.ChannelId)
	sp := widthToCblen(p.Length)
	core.WriteBE(w, packHeader(CmdDataFirst, sp, cbChId))
	writeVarUint(w, p.ChannelId, cbChId)
	writeVarUint(w, p.Length, sp)
	_, err := w.Write(p.Data)
	core.ThrowError(err)
}

// ReadDataFirst reads the body of a DataFirst PDU; the remainder of r is
// the first fragment's payload.
func ReadDataFirst(r io.Reader, sp, cbChId uint8) (channelId, length uint32, payload []byte) {
	channelId = readVarUint(r, cbChId)
	length = readVarUint(r, sp)
	payload = readRest(r)
	return
}

// Data carries one non-initial fragment (or a whole unfragmented
// message).
type Data struct {
	ChannelId uint32
	Data      []byte
}

func (p *Data) Write(w io.Writer) {
	cbChId := widthToCblen(p.ChannelId)
	core.WriteBE(w, packHeader(CmdData, 0, cbChId))
	writeVarUint(w, p.ChannelId, cbChId)
	_, err := w.Write(p.Data)
	core.ThrowError(err)
}

// ReadData reads the body of a Data PDU.
func ReadData(r io.Reader, cbChId uint8) (channelId uint32, payload []byte) {
	channelId = readVarUint(r, cbChId)
	payload = readRest(r)
	return
}

// CloseRequest tears down a dynamic channel.
type CloseRequest struct {
	ChannelId uint32
}

func (p *CloseRequest) Write(w io.Writer) {
	cbChId := widthToCblen(p.ChannelId)
	core.WriteBE(w, packHeader(CmdCloseRequest, 0, cbChId))
	writeVarUint(w, p.ChannelId, cbChId)
}

// ReadCloseRequest reads the body of a CloseRequest PDU.
func ReadCloseRequest(r io.Reader, cbChId uint8) (channelId uint32) {
	return readVarUint(r, cbChId)
}

// CapabilityRequest negotiates the DRDYNVC protocol version at the start
// of the channel's lifetime. Versions 2 and 3 additionally carry a pad
// byte and four priority charges (drdynvc_process_capability_request);
// version 1 is header+version only.
type CapabilityRequest struct {
	Version         uint16
	PriorityCharges [4]uint32
}

func (p *CapabilityRequest) Write(w io.Writer) {
	core.WriteBE(w, packHeader(CmdCapabilityRequest, 0, 0))
	core.WriteLE(w, p.Version)
	if p.Version == 2 || p.Version == 3 {
		core.WriteBE(w, uint8(0)) // pad
		core.WriteLE(w, p.PriorityCharges)
	}
}

// lenReader is satisfied by both *bytes.Reader and *bytes.Buffer, the
// two reader shapes DecodePDU is handed in practice.
type lenReader interface {
	Len() int
}

// ReadCapabilityRequest reads the body of a CapabilityRequest PDU: the
// version field, then, only for versions that define them and only when
// the remaining bytes actually carry them, a pad byte and four priority
// charges.
func ReadCapabilityRequest(r io.Reader) *CapabilityRequest {
	p := &CapabilityRequest{}
	core.ReadLE(r, &p.Version)
	if p.Version != 2 && p.Version != 3 {
		return p
	}
	if lr, ok := r.(lenReader); ok && lr.Len() < 17 {
		return p
	}
	var pad uint8
	core.ReadBE(r, &pad)
	core.ReadLE(r, &p.PriorityCharges)
	return p
}

// CapabilityResponse is the client's reply to CapabilityRequest: header
// plus version only, regardless of the request's version (the client
// never echoes priority charges back).
type CapabilityResponse struct {
	Version uint16
}

func (p *CapabilityResponse) Write(w io.Writer) {
	core.WriteBE(w, packHeader(CmdCapabilityRequest, 0, 0))
	core.WriteLE(w, p.Version)
}

func readRest(r io.Reader) []byte {
	buf, err := io.ReadAll(r)
	core.ThrowError(err)
	return buf
}

// DecodePDU reads the header byte and dispatches to the matching decoder,
// returning one of *CreateRequest, *CloseRequest, *CapabilityRequest, or
// the (channelId, length, payload)/(channelId, payload) tuples for the
// data PDUs wrapped in DataFirstMessage/DataMessage so callers get a
// single consistent return type.
func DecodePDU(r io.Reader) interface{} {
	var h uint8
	core.ReadBE(r, &h)
	cmd, sp, cbChId := splitHeader(h)

	switch cmd {
	case CmdCreateRequest:
		return ReadCreateRequest(r, cbChId)
	case CmdDataFirst:
		channelId, length, payload := ReadDataFirst(r, sp, cbChId)
		return &DataFirstMessage{ChannelId: channelId, Length: length, Payload: payload}
	case CmdData:
		channelId, payload := ReadData(r, cbChId)
		return &DataMessage{ChannelId: channelId, Payload: payload}
	case CmdCloseRequest:
		return &CloseRequest{ChannelId: ReadCloseRequest(r, cbChId)}
	case CmdCapabilityRequest:
		return ReadCapabilityRequest(r)
	default:
		core.ThrowErrorf("drdynvc: unknown command 0x%x", cmd)
		return nil
	}
}

// DataFirstMessage is DecodePDU's return shape for CmdDataFirst.
type DataFirstMessage struct {
	ChannelId uint32
	Length    uint32
	Payload   []byte
}

// DataMessage is DecodePDU's return shape for CmdData.
type DataMessage struct {
	ChannelId uint32
	Payload   []byte
}
