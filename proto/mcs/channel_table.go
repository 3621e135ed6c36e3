package mcs

import (
	"io"

	"github.com/gordp-go/dvcmux/glog"
)

// GlobalChannelId is the fixed I/O channel every MCS domain assigns
// (MS-RDPBCGR 2.2.1.4), joined right after the user channel.
const GlobalChannelId = 1003

// NamedChannel pairs a negotiated static channel name with the ID the
// server assigned it in ServerNetworkData, preserving negotiation order.
type NamedChannel struct {
	Name string
	ID   uint16
}

// ChannelTable tracks the UserId and the channel IDs joined during the
// MCS connection sequence: the user channel, the global channel, and
// each statically negotiated channel in order (spec.md §4.5 step 5).
type ChannelTable struct {
	UserId uint16
	ByName map[string]uint16
	order  []string
}

// JoinAll drives the full join loop: user channel, global channel, then
// each entry of staticChannels in the order the server listed them in
// ServerNetworkData.
func JoinAll(w io.Writer, r io.Reader, staticChannels []NamedChannel) *ChannelTable {
	userId := SendAttachUserRequest(w, r)
	JoinChannel(w, r, userId, userId)
	glog.Debugf("joined own user channel %d", userId)

	JoinChannel(w, r, userId, GlobalChannelId)
	glog.Debugf("joined global channel %d", GlobalChannelId)

	table := &ChannelTable{UserId: userId, ByName: make(map[string]uint16, len(staticChannels))}
	for _, ch := range staticChannels {
		JoinChannel(w, r, userId, ch.ID)
		table.ByName[ch.Name] = ch.ID
		table.order = append(table.order, ch.Name)
		glog.Debugf("joined static channel %q (%d)", ch.Name, ch.ID)
	}
	return table
}

// Names returns the joined static channel names in join order.
func (t *ChannelTable) Names() []string {
	return append([]string(nil), t.order...)
}
