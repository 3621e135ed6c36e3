package mcs

import (
	"bytes"
	"io"

	"github.com/gordp-go/dvcmux/proto/mcs/per"
	"github.com/gordp-go/dvcmux/proto/x224"
)

// SendDataRequest is MCS-SEND-DATA-REQUEST: the client-to-server envelope
// around application data (security headers, DRDYNVC PDUs, etc.), the
// mirror image of ReceiveDataResponse (MCS-SEND-DATA-INDICATION).
type SendDataRequest struct {
	UserId    uint16
	ChannelId uint16
	Data      []byte
}

func (s *SendDataRequest) Write(w io.Writer) {
	WriteMcsPduHeader(w, MCS_PDUTYPE_SEND_DATA_REQUEST, 0)
	per.WriteInteger16(w, s.UserId, MCS_CHANNEL_USERID_BASE)
	per.WriteInteger16(w, s.ChannelId, 0)
	per.WriteEnumerated(w, 0x70) // dataPriority|segmentation, both segments present
	per.WriteOctetString(w, s.Data, 0)
}

func (s *SendDataRequest) Serialize() []byte {
	buf := new(bytes.Buffer)
	s.Write(buf)
	return buf.Bytes()
}

// Send wraps the given channel data in a SendDataRequest and writes it out
// as one X.224 Data TPDU.
func Send(w io.Writer, userId, channelId uint16, data []byte) {
	x224.Write(w, (&SendDataRequest{UserId: userId, ChannelId: channelId, Data: data}).Serialize())
}
