// Package rdpmux implements the DVC (Dynamic Virtual Channel) multiplexer
// and the MCS/X.224/TPKT protocol stack it rides on: a client establishes
// one reliable transport connection, negotiates a security protocol,
// performs the MCS connection sequence, joins its static channels, and
// from then on multiplexes any number of dynamic channels over the
// "drdynvc" static channel.
//
// Example usage:
//
//	client := rdpmux.NewClient(config.DefaultConfig())
//	if err := client.Connect(); err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//	client.Run()
package rdpmux

import (
	"fmt"

	"github.com/gordp-go/dvcmux/config"
	"github.com/gordp-go/dvcmux/core"
	"github.com/gordp-go/dvcmux/dvcman"
	"github.com/gordp-go/dvcmux/glog"
	"github.com/gordp-go/dvcmux/proto/mcs"
	"github.com/gordp-go/dvcmux/proto/virtualchannel"
	"github.com/gordp-go/dvcmux/proto/x224"
)

// Client drives one RDP connection's worth of protocol stack: the
// negotiation/MCS handshake, the static channel table, and the dynamic
// virtual channel manager riding on top of it.
type Client struct {
	cfg    *config.Config
	stream *core.Stream

	selectedProtocol x224.Protocol
	userId           uint16

	channels *virtualchannel.Table
	router   *virtualchannel.Router
	dvc      *dvcman.Manager
	Facade   *dvcman.Facade

	gccSource mcs.GCCBlockSource
	gccSink   mcs.GCCBlockSink
	serverNet *mcs.ServerNetworkData

	quit chan struct{}
}

// dialAddr joins the configured host and port the way every re-dial
// during negotiation fallback needs to (spec.md §4.4: "the TCP
// connection is torn down and re-established" between attempts).
func (c *Client) dialAddr() string {
	if c.cfg.Connection.Port == 0 {
		return c.cfg.Connection.Address
	}
	return fmt.Sprintf("%s:%d", c.cfg.Connection.Address, c.cfg.Connection.Port)
}

// SetGCCBlockSource registers the callback that builds the GCC
// Conference-Create-Request blob embedded in Connect-Initial's UserData;
// GCC encoding itself sits outside this module's scope (spec.md's
// Non-goals), so callers that need it supply their own encoder.
func (c *Client) SetGCCBlockSource(source mcs.GCCBlockSource) {
	c.gccSource = source
}

// SetGCCBlockSink registers the callback that receives the raw
// Conference-Create-Response blob out of Connect-Response's UserData.
func (c *Client) SetGCCBlockSink(sink mcs.GCCBlockSink) {
	c.gccSink = sink
}

// NewClient builds a client from cfg, not yet connected.
func NewClient(cfg *config.Config) *Client {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := &Client{
		cfg:  cfg,
		quit: make(chan struct{}),
	}
	c.channels = virtualchannel.NewTable()
	c.dvc = dvcman.NewManager(cfg.VirtualChannels.ChunkSize, c.writeDynamicChannel)
	c.router = virtualchannel.NewRouter(c.channels, cfg.VirtualChannels.ChunkSize, c)
	c.Facade = dvcman.NewFacade(c.dvc, c.channels, c.writeStaticChannel)
	c.dvc.Start()
	return c
}

// OnDataReceived implements virtualchannel.Callback, dispatching
// reassembled static-channel payloads: the "drdynvc" channel's data goes
// to the DVC manager; data on any other static channel is logged and
// dropped, and is not delivered to facade opens.
func (c *Client) OnDataReceived(channelName string, data []byte) {
	if channelName == virtualchannel.CHANNEL_NAME_DRDYNVC {
		c.dvc.OnStaticChannelData(channelName, data)
		return
	}
	glog.Debugf("rdpmux: %d bytes on static channel %q with no registered consumer", len(data), channelName)
}

// writeDynamicChannel is the DVC manager's send callback: it hands a
// fully-framed drdynvc PDU to writeStaticChannel, which chunks it with
// virtualchannel.ChunkWriter per VirtualChannelChunkSize and wraps each
// chunk in an MCS SendDataRequest.
func (c *Client) writeDynamicChannel(pdu []byte) {
	c.writeStaticChannel(virtualchannel.CHANNEL_NAME_DRDYNVC, pdu)
}

func (c *Client) writeStaticChannel(name string, data []byte) {
	ch, ok := c.channels.ByName(name)
	if !ok {
		glog.Warnf("rdpmux: write to unknown static channel %q dropped", name)
		return
	}
	virtualchannel.ChunkWriter(data, c.cfg.VirtualChannels.ChunkSize, func(chunk []byte) {
		mcs.Send(c.stream, c.userId, ch.ID, chunk)
	})
}

// Connect dials the server and drives the full handshake: negotiation,
// the MCS connection sequence, and static channel join.
func (c *Client) Connect() error {
	return core.Try(func() {
		if c.cfg.Connection.Address == "" {
			core.ThrowError(fmt.Errorf("rdpmux: connection address is required"))
		}
		c.stream = core.NewStream(c.dialAddr(), c.cfg.Connection.ConnectTimeout)
		c.negotiation()
		c.basicSettingsExchange()
		c.channelConnect()
		glog.Infof("rdpmux: connected, user id %d, %d static channels joined", c.userId, len(c.channels.Names()))
		c.Facade.Connected(c.cfg.Connection.Address)
	})
}

// Close tears down the transport and notifies every open dynamic channel.
func (c *Client) Close() {
	close(c.quit)
	c.dvc.Stop()
	c.dvc.CloseAll(nil)
	c.Facade.Disconnected()
	if c.stream != nil {
		c.stream.Close()
	}
}
