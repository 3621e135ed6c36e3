package mcs

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gordp-go/dvcmux/core"
	"github.com/gordp-go/dvcmux/glog"
	"github.com/gordp-go/dvcmux/proto/mcs/per"
	"github.com/gordp-go/dvcmux/proto/x224"
)

// ClientAttachUserRequest is sent right after ClientErectDomain to obtain
// a UserId; it carries no body (mcs_send_attach_user_request).
type ClientAttachUserRequest struct{}

func (c *ClientAttachUserRequest) Write(w io.Writer) {
	WriteMcsPduHeader(w, MCS_PDUTYPE_ATTACH_USER_REQUEST, 0)
}

func (c *ClientAttachUserRequest) Serialize() []byte {
	buf := new(bytes.Buffer)
	c.Write(buf)
	return buf.Bytes()
}

// ClientChannelJoinRequest asks the server to join the given channel on
// behalf of userId.
type ClientChannelJoinRequest struct {
	UserId    uint16
	ChannelId uint16
}

func (c *ClientChannelJoinRequest) Write(w io.Writer) {
	WriteMcsPduHeader(w, MCS_PDUTYPE_CHANNEL_JOIN_REQUEST, 0)
	per.WriteInteger16(w, c.UserId, MCS_CHANNEL_USERID_BASE)
	per.WriteInteger16(w, c.ChannelId, 0)
}

func (c *ClientChannelJoinRequest) Serialize() []byte {
	buf := new(bytes.Buffer)
	c.Write(buf)
	return buf.Bytes()
}

// ServerChannelJoinConfirm is the server's reply to a channel join
// request.
type ServerChannelJoinConfirm struct {
	Result    uint8
	Initiator uint16
	Requested uint16
	ChannelId uint16
}

func (c *ServerChannelJoinConfirm) Read(r io.Reader) {
	core.ThrowIf(ReadMcsPduHeader(r) != MCS_PDUTYPE_CHANNEL_JOIN_CONFIRM, "invalid pdu type")
	c.Result = per.ReadEnumerated(r)
	c.Initiator = per.ReadInteger16(r, MCS_CHANNEL_USERID_BASE)
	c.Requested = per.ReadInteger16(r, 0)
	c.ChannelId = per.ReadInteger16(r, 0)
	glog.Debugf("channel join confirm: %+v", c)
}

// SendAttachUserRequest writes the request and reads back the assigned
// UserId, driving the single round trip over an already-established
// MCS connection (the caller supplies read/write access to the transport
// via r/w, typically the same core.Stream wrapped by x224.Read/Write).
func SendAttachUserRequest(w io.Writer, r io.Reader) uint16 {
	x224.Write(w, (&ClientAttachUserRequest{}).Serialize())
	confirm := &ServerAttachUserConfirm{}
	data := x224.Read(r)
	confirm.Read(bytes.NewReader(data))
	return confirm.UserId
}

// JoinChannel sends a join request for channelId and validates the
// confirm echoes it back, panicking otherwise.
func JoinChannel(w io.Writer, r io.Reader, userId, channelId uint16) {
	x224.Write(w, (&ClientChannelJoinRequest{UserId: userId, ChannelId: channelId}).Serialize())
	confirm := &ServerChannelJoinConfirm{}
	data := x224.Read(r)
	confirm.Read(bytes.NewReader(data))
	core.ThrowIf(confirm.ChannelId != channelId,
		fmt.Errorf("mcs: join confirm channel %d does not match requested %d", confirm.ChannelId, channelId))
}
