package virtualchannel

import (
	"bytes"
	"io"

	"github.com/gordp-go/dvcmux/core"
	"github.com/gordp-go/dvcmux/glog"
)

// Header is the CHANNEL_PDU_HEADER (MS-RDPBCGR 2.2.6.1.1): total
// reassembled length plus per-chunk flags.
type Header struct {
	Length uint32
	Flags  uint32
}

func (h *Header) Read(r io.Reader) {
	core.ReadLE(r, &h.Length)
	core.ReadLE(r, &h.Flags)
}

func (h *Header) Write(w io.Writer) {
	core.WriteLE(w, h.Length)
	core.WriteLE(w, h.Flags)
}

// Router reassembles chunked static-channel data per channel ID and
// dispatches complete messages to cb (MS-RDPBCGR 2.2.6.1). Outgoing
// chunking is done by ChunkWriter, not by the Router.
type Router struct {
	table     *Table
	chunkSize int
	cb        Callback

	partial map[uint16]*bytes.Buffer
}

// NewRouter builds a router over table that reassembles chunks and
// delivers full messages to cb. chunkSize is stored but does not limit
// reassembly.
func NewRouter(table *Table, chunkSize int, cb Callback) *Router {
	return &Router{table: table, chunkSize: chunkSize, cb: cb, partial: make(map[uint16]*bytes.Buffer)}
}

// HandleChunk processes one received chunk (channel ID already resolved
// by the caller from the MCS SendDataIndication) together with its
// CHANNEL_PDU_HEADER-prefixed payload.
func (rt *Router) HandleChunk(channelID uint16, r io.Reader) {
	h := &Header{}
	h.Read(r)
	chunk, err := io.ReadAll(r)
	core.ThrowError(err)

	buf, ok := rt.partial[channelID]
	if !ok || h.Flags&CHANNEL_FLAG_FIRST != 0 {
		buf = bytes.NewBuffer(make([]byte, 0, h.Length))
		rt.partial[channelID] = buf
	}
	buf.Write(chunk)

	if h.Flags&CHANNEL_FLAG_LAST == 0 {
		return
	}
	delete(rt.partial, channelID)

	ch, ok := rt.table.ByID(channelID)
	if !ok {
		glog.Warnf("virtualchannel: data for unknown channel id %d dropped", channelID)
		return
	}
	rt.cb.OnDataReceived(ch.Name, buf.Bytes())
}

// ChunkWriter splits data into CHANNEL_FLAG_FIRST/LAST-tagged chunks no
// larger than chunkSize and invokes send once per chunk, in the form each
// one needs wrapping in an MCS SendDataRequest before going on the wire.
func ChunkWriter(data []byte, chunkSize int, send func(chunk []byte)) {
	total := len(data)
	for offset := 0; offset < total || total == 0; {
		end := offset + chunkSize
		if end > total {
			end = total
		}
		var flags uint32
		if offset == 0 {
			flags |= CHANNEL_FLAG_FIRST
		}
		if end == total {
			flags |= CHANNEL_FLAG_LAST
		}

		var buf bytes.Buffer
		h := &Header{Length: uint32(total), Flags: flags}
		h.Write(&buf)
		buf.Write(data[offset:end])
		send(buf.Bytes())

		if total == 0 {
			return
		}
		offset = end
	}
}
