package rdpmux

import (
	"bytes"

	"github.com/gordp-go/dvcmux/core"
	"github.com/gordp-go/dvcmux/glog"
	"github.com/gordp-go/dvcmux/proto/mcs"
	"github.com/gordp-go/dvcmux/proto/virtualchannel"
	"github.com/gordp-go/dvcmux/proto/x224"
)

// negotiation drives the X.224 security-protocol fallback ladder: try the
// strongest protocol the caller enabled, and on an RDP_NEG_FAILURE retry
// with the next weaker one over a freshly re-dialed transport, exactly as
// x224.NextState's ladder dictates.
func (c *Client) negotiation() {
	opts := x224.NegotiationOptions{
		RDP:    c.cfg.Security.OfferRDP,
		TLS:    c.cfg.Security.OfferSSL,
		Hybrid: c.cfg.Security.OfferHybrid,
	}
	core.ThrowIf(!opts.RDP && !opts.TLS && !opts.Hybrid,
		"rdpmux: no security protocol enabled in configuration")

	current := x224.StateInitial
	for {
		requested, attempting := firstAttempt(opts)
		if current != x224.StateInitial {
			requested, attempting = protocolFor(current)
		}

		x224.WriteConnectionRequest(c.stream, "", &x224.Request{RequestedProtocols: requested})
		resp, failure := x224.ReadConnectionConfirm(c.stream)
		if failure == nil {
			c.selectedProtocol = resp.SelectedProtocol
			glog.Infof("rdpmux: negotiation selected protocol %d", resp.SelectedProtocol)
			return
		}

		next := x224.NextState(attempting, failure, opts)
		core.ThrowIf(next == x224.StateFail, failure)

		glog.Warnf("rdpmux: server refused protocol %d (%v), falling back", requested, failure)
		c.stream.Close()
		c.stream = core.NewStream(c.dialAddr(), c.cfg.Connection.ConnectTimeout)
		current = next
	}
}

func firstAttempt(opts x224.NegotiationOptions) (x224.Protocol, x224.NegotiateState) {
	switch {
	case opts.Hybrid:
		return x224.PROTOCOL_HYBRID, x224.StateHybrid
	case opts.TLS:
		return x224.PROTOCOL_TLS, x224.StateTLS
	default:
		return x224.PROTOCOL_RDP, x224.StateRDP
	}
}

func protocolFor(state x224.NegotiateState) (x224.Protocol, x224.NegotiateState) {
	switch state {
	case x224.StateHybrid:
		return x224.PROTOCOL_HYBRID, x224.StateHybrid
	case x224.StateTLS:
		return x224.PROTOCOL_TLS, x224.StateTLS
	default:
		return x224.PROTOCOL_RDP, x224.StateRDP
	}
}

// basicSettingsExchange performs the T.125 Connect-Initial/Connect-Response
// round trip (spec.md §4.5 step 1-2). The GCC Conference-Create blob is an
// external collaborator: callers may supply one via SetGCCBlockSource, and
// the response blob is handed to SetGCCBlockSink if one was registered.
func (c *Client) basicSettingsExchange() {
	req := &mcs.ConnectInitial{
		CallingDomain: "\x01",
		CalledDomain:  "\x01",
		UpwardFlag:    true,
		Target:        mcs.DefaultClientDomainParameters(),
		Minimum:       mcs.DefaultClientDomainParameters(),
		Maximum:       mcs.DefaultClientDomainParameters(),
	}
	if c.gccSource != nil {
		req.UserData = c.gccSource()
	}
	var body bytes.Buffer
	req.Write(&body)
	x224.Write(c.stream, body.Bytes())
	glog.Debugf("rdpmux: sent connect initial")

	resp := &mcs.ConnectResponse{}
	resp.Read(bytes.NewReader(x224.Read(c.stream)))
	core.ThrowIf(resp.Result != 0, "rdpmux: mcs connect response result != 0")
	glog.Debugf("rdpmux: received connect response, negotiated domain parameters %+v", resp.Negotiated)

	if c.gccSink != nil {
		c.gccSink(resp.UserData)
	}

	// Full GCC Conference-Create-Response framing is out of scope; the
	// Server Network Data sub-block this module needs (the channel IDs it
	// must join) is read directly off the front of UserData.
	if len(resp.UserData) > 0 {
		netData := &mcs.ServerNetworkData{}
		core.TryCatch(func() {
			netData.Read(bytes.NewReader(resp.UserData))
		}, func(e any) {
			glog.Warnf("rdpmux: could not read server network data from connect response: %v", e)
		})
		if netData.ChannelCount > 0 {
			c.serverNet = netData
		}
	}
}

// channelConnect drives the erect-domain/attach-user/channel-join
// sequence (spec.md §4.5 steps 3-5), registering every negotiated static
// channel name the caller configured into c.channels.
func (c *Client) channelConnect() {
	x224.Write(c.stream, (&mcs.ClientErectDomain{}).Serialize())
	glog.Debugf("rdpmux: sent erect domain request")

	named := make([]mcs.NamedChannel, 0, len(c.cfg.VirtualChannels.StaticChannels))
	for i, name := range c.cfg.VirtualChannels.StaticChannels {
		id := mcs.GlobalChannelId + 1 + uint16(i)
		if c.serverNet != nil && i < len(c.serverNet.ChannelIdArray) {
			id = c.serverNet.ChannelIdArray[i]
		} else {
			glog.Warnf("rdpmux: no server-assigned id for static channel %q, guessing %d", name, id)
		}
		named = append(named, mcs.NamedChannel{Name: name, ID: id})
	}

	table := mcs.JoinAll(c.stream, c.stream, named)
	c.userId = table.UserId
	for _, name := range table.Names() {
		c.channels.Add(&virtualchannel.Channel{
			ChannelDef: virtualchannel.ChannelDef{Name: name},
			ID:         table.ByName[name],
		})
	}
}
