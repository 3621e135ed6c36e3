package dvcman

import (
	"bytes"

	"github.com/gordp-go/dvcmux/glog"
	"github.com/gordp-go/dvcmux/proto/drdynvc"
)

// OnStaticChannelData receives reassembled "drdynvc" static channel data,
// forwarded by the client's virtualchannel.Callback (OnDataReceived), and
// implements the receive dispatch table of
// spec.md §4.8, grounded on drdynvc_order_recv in
// original_source/channels/drdynvc/client/drdynvc_main.c.
func (m *Manager) OnStaticChannelData(channelName string, data []byte) {
	decoded := drdynvc.DecodePDU(bytes.NewReader(data))

	if cap, ok := decoded.(*drdynvc.CapabilityRequest); ok {
		m.handleCapabilityRequest(cap)
		return
	}

	// Workaround for servers that skip the capability exchange entirely:
	// synthesize a version-3 response on the first non-capability PDU,
	// matching drdynvc_process_create_request's DRDYNVC_STATE_CAPABILITIES
	// branch. Logged explicitly per spec.md §4.11's design note.
	if m.State() != StateReady {
		m.mu.Lock()
		m.version = 3
		m.state = StateReady
		m.mu.Unlock()
		glog.Warnf("dvcman: server skipped capability exchange, forcing version 3 (observed server bug)")
		m.writeCapabilityResponse()
	}

	switch pdu := decoded.(type) {
	case *drdynvc.CreateRequest:
		m.handleCreateRequest(pdu)
	case *drdynvc.DataFirstMessage:
		m.handleDataFirst(pdu)
	case *drdynvc.DataMessage:
		m.handleData(pdu)
	case *drdynvc.CloseRequest:
		m.handleCloseRequest(pdu)
	default:
		glog.Warnf("dvcman: unhandled drdynvc PDU %T", decoded)
	}
}

func (m *Manager) handleCapabilityRequest(cap *drdynvc.CapabilityRequest) {
	version := cap.Version
	if version != 1 && version != 2 && version != 3 {
		glog.Warnf("dvcman: server offered unsupported capability version %d, replying with version 3", version)
		version = 3
	}
	m.mu.Lock()
	m.version = version
	m.priorityCharges = cap.PriorityCharges
	m.state = StateReady
	m.mu.Unlock()
	m.writeCapabilityResponse()
}

func (m *Manager) writeCapabilityResponse() {
	m.mu.Lock()
	version := m.version
	if version == 0 {
		version = 3
	}
	m.mu.Unlock()
	var buf bytes.Buffer
	(&drdynvc.CapabilityResponse{Version: version}).Write(&buf)
	m.send(buf.Bytes())
}

// handleCreateRequest implements spec.md §4.8's CREATE_REQUEST dispatch:
// look up the listener, ask it to accept, and reply with a status that
// mirrors drdynvc_process_create_request's retStatus switch.
func (m *Manager) handleCreateRequest(pdu *drdynvc.CreateRequest) {
	glog.Debugf("dvcman: CREATE_REQUEST channel=%d name=%q", pdu.ChannelId, pdu.Name)

	if _, exists := m.channelByID(pdu.ChannelId); exists {
		glog.Warnf("dvcman: CREATE_REQUEST for already-open channel %d ignored", pdu.ChannelId)
		return
	}

	listener, ok := m.lookupListener(pdu.Name)
	if !ok {
		glog.Debugf("dvcman: no listener for %q", pdu.Name)
		m.writeCreateResponse(pdu.ChannelId, statusUnsuccessful)
		return
	}

	ch := &Channel{ID: pdu.ChannelId, Name: pdu.Name, mgr: m, state: ChannelInit}
	accept, cb := listener.Accept(ch)
	if !accept || cb == nil {
		glog.Debugf("dvcman: listener %q rejected channel %d", pdu.Name, pdu.ChannelId)
		m.writeCreateResponse(pdu.ChannelId, statusUnsuccessful)
		return
	}

	ch.mu.Lock()
	ch.callback = cb
	ch.state = ChannelRunning
	ch.mu.Unlock()
	m.addChannel(ch)

	m.writeCreateResponse(pdu.ChannelId, statusSuccess)

	if oc, ok := cb.(OpenCallback); ok {
		oc.OnOpen()
	}
}

// handleDataFirst starts (or restarts, with a warning) a reassembly
// buffer sized to the PDU's declared total length.
func (m *Manager) handleDataFirst(pdu *drdynvc.DataFirstMessage) {
	ch, ok := m.channelByID(pdu.ChannelId)
	if !ok {
		glog.Warnf("dvcman: DATA_FIRST for unknown channel %d dropped", pdu.ChannelId)
		return
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.state != ChannelRunning {
		return
	}
	if ch.reassembly != nil {
		glog.Warnf("dvcman: channel %d received DATA_FIRST while a reassembly was in progress, resetting", ch.ID)
	}
	ch.reassembly = bytes.NewBuffer(make([]byte, 0, pdu.Length))
	ch.reassemblyTotal = pdu.Length
	ch.reassembly.Write(pdu.Payload)

	if uint32(ch.reassembly.Len()) >= ch.reassemblyTotal {
		m.deliver(ch)
	}
}

// handleData appends to an in-progress reassembly, or delivers the
// payload directly when there is none.
func (m *Manager) handleData(pdu *drdynvc.DataMessage) {
	ch, ok := m.channelByID(pdu.ChannelId)
	if !ok {
		glog.Warnf("dvcman: DATA for unknown channel %d dropped", pdu.ChannelId)
		return
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.state != ChannelRunning {
		return
	}

	if ch.reassembly == nil {
		cb := ch.callback
		ch.mu.Unlock()
		cb.OnDataReceived(pdu.Payload)
		ch.mu.Lock()
		return
	}

	if uint32(ch.reassembly.Len()+len(pdu.Payload)) > ch.reassemblyTotal {
		glog.Errorf("dvcman: channel %d reassembly overflow, closing", ch.ID)
		ch.reassembly = nil
		ch.state = ChannelClosed
		ch.mu.Unlock()
		m.releaseRef(ch)
		ch.mu.Lock()
		return
	}

	ch.reassembly.Write(pdu.Payload)
	if uint32(ch.reassembly.Len()) >= ch.reassemblyTotal {
		m.deliver(ch)
	}
}

// deliver must be called with ch.mu held; it hands the completed buffer
// to the channel's callback and clears reassembly state.
func (m *Manager) deliver(ch *Channel) {
	buf := ch.reassembly
	cb := ch.callback
	ch.reassembly = nil
	ch.reassemblyTotal = 0
	ch.mu.Unlock()
	cb.OnDataReceived(buf.Bytes())
	ch.mu.Lock()
}

// handleCloseRequest implements the server-initiated close of spec.md
// §4.8: mark Closed and drop the map's own ref, deferring the actual
// OnClose/removal to releaseRef in case a write is concurrently
// in-flight on this channel (spec.md §4.11).
func (m *Manager) handleCloseRequest(pdu *drdynvc.CloseRequest) {
	ch, ok := m.channelByID(pdu.ChannelId)
	if !ok {
		glog.Warnf("dvcman: CLOSE_REQUEST for unknown channel %d dropped", pdu.ChannelId)
		return
	}

	ch.mu.Lock()
	if ch.state == ChannelClosed {
		ch.mu.Unlock()
		return
	}
	ch.state = ChannelClosed
	ch.mu.Unlock()

	var buf bytes.Buffer
	(&drdynvc.CloseRequest{ChannelId: ch.ID}).Write(&buf)
	m.send(buf.Bytes())

	m.releaseRef(ch)

	glog.Debugf("dvcman: channel %d closed", ch.ID)
}
