package mcs

import (
	"bytes"
	"testing"

	"github.com/gordp-go/dvcmux/proto/mcs/per"
	"github.com/gordp-go/dvcmux/proto/x224"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMcsPduHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	WriteMcsPduHeader(&buf, MCS_PDUTYPE_ERECT_DOMAIN_REQUEST, 0)
	assert.Equal(t, uint8(MCS_PDUTYPE_ERECT_DOMAIN_REQUEST), ReadMcsPduHeader(&buf))
}

func TestClientErectDomainSerialize(t *testing.T) {
	pdu := &ClientErectDomain{}
	data := pdu.Serialize()
	require.NotEmpty(t, data)
	assert.Equal(t, uint8(MCS_PDUTYPE_ERECT_DOMAIN_REQUEST), ReadMcsPduHeader(bytes.NewReader(data)))
}

func serverFrame(t *testing.T, build func(w *bytes.Buffer)) []byte {
	t.Helper()
	var body bytes.Buffer
	build(&body)
	var frame bytes.Buffer
	x224.Write(&frame, body.Bytes())
	return frame.Bytes()
}

// TestChannelJoinSequence exercises the end-to-end channel-join round
// trip: attach-user, user channel, global channel, one static channel.
func TestChannelJoinSequence(t *testing.T) {
	const userId = uint16(1005)
	const staticChannelId = uint16(1007)

	var wire bytes.Buffer

	wire.Write(serverFrame(t, func(w *bytes.Buffer) {
		WriteMcsPduHeader(w, MCS_PDUTYPE_ATTACH_USER_CONFIRM, 2)
		per.WriteEnumerated(w, 0)
		// ServerAttachUserConfirm.Read adds MCS_CHANNEL_USERID_BASE itself
		// after an unbiased read, so the wire value is pre-biased here.
		per.WriteInteger16(w, userId, MCS_CHANNEL_USERID_BASE)
	}))
	wire.Write(serverFrame(t, func(w *bytes.Buffer) {
		WriteMcsPduHeader(w, MCS_PDUTYPE_CHANNEL_JOIN_CONFIRM, 2)
		per.WriteEnumerated(w, 0)
		per.WriteInteger16(w, userId, MCS_CHANNEL_USERID_BASE)
		per.WriteInteger16(w, userId, 0)
		per.WriteInteger16(w, userId, 0)
	}))
	wire.Write(serverFrame(t, func(w *bytes.Buffer) {
		WriteMcsPduHeader(w, MCS_PDUTYPE_CHANNEL_JOIN_CONFIRM, 2)
		per.WriteEnumerated(w, 0)
		per.WriteInteger16(w, userId, MCS_CHANNEL_USERID_BASE)
		per.WriteInteger16(w, GlobalChannelId, 0)
		per.WriteInteger16(w, GlobalChannelId, 0)
	}))
	wire.Write(serverFrame(t, func(w *bytes.Buffer) {
		WriteMcsPduHeader(w, MCS_PDUTYPE_CHANNEL_JOIN_CONFIRM, 2)
		per.WriteEnumerated(w, 0)
		per.WriteInteger16(w, userId, MCS_CHANNEL_USERID_BASE)
		per.WriteInteger16(w, staticChannelId, 0)
		per.WriteInteger16(w, staticChannelId, 0)
	}))

	var sent bytes.Buffer
	table := JoinAll(&sent, &wire, []NamedChannel{{Name: "drdynvc", ID: staticChannelId}})

	assert.Equal(t, userId, table.UserId)
	assert.Equal(t, staticChannelId, table.ByName["drdynvc"])
	assert.Equal(t, []string{"drdynvc"}, table.Names())
}

func TestServerNetworkDataRead(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xeb, 0x03})             // McsChannelId LE
	buf.Write([]byte{0x02, 0x00})             // ChannelCount LE = 2
	buf.Write([]byte{0xef, 0x03, 0xf0, 0x03}) // two channel IDs LE

	d := &ServerNetworkData{}
	d.Read(&buf)
	assert.Equal(t, uint16(2), d.ChannelCount)
	assert.Equal(t, []uint16{0x3ef, 0x3f0}, d.ChannelIdArray)
}
