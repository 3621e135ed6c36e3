// Package dvcman implements the Dynamic Virtual Channel manager: the
// state machine layered on top of the "drdynvc" static channel
// (proto/drdynvc) that multiplexes many logical sub-channels, each with
// its own open/close/data/fragmentation lifecycle, listener registration,
// reference counting, and send-side chunking, grounded on
// original_source/channels/drdynvc/client/dvcman.c and drdynvc_main.c's
// drdynvc_order_recv dispatch table.
package dvcman

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordp-go/dvcmux/core"
	"github.com/gordp-go/dvcmux/glog"
	"github.com/gordp-go/dvcmux/proto/drdynvc"
)

// State is the capability-negotiation state of the drdynvc channel
// itself (spec.md §4.8 step 1: "Starts in Initial").
type State int

const (
	StateInitial State = iota
	StateCapabilities
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "Initial"
	case StateCapabilities:
		return "Capabilities"
	case StateReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

// ChannelState is a DvcChannel's lifecycle stage.
type ChannelState int

const (
	ChannelInit ChannelState = iota
	ChannelRunning
	ChannelClosed
)

// Callback is what a plugin implements to receive data and close
// notifications for one dynamic channel, the Go expression of the
// IWTSVirtualChannelCallback function-pointer struct.
type Callback interface {
	OnDataReceived(data []byte)
	OnClose()
}

// OpenCallback additionally receives an OnOpen notification once the
// channel transitions to Running, mirroring IWTSVirtualChannelCallback's
// optional OnOpen member.
type OpenCallback interface {
	Callback
	OnOpen()
}

// Listener is a named registration accepting inbound CREATE_REQUESTs.
// Accept is invoked with the new channel in Init state; returning false
// rejects the channel (the manager replies STATUS_UNSUCCESSFUL).
type Listener struct {
	Name   string
	Accept func(channel *Channel) (accept bool, cb Callback)
}

// Channel is one dynamic virtual channel (spec.md §3's DvcChannel).
type Channel struct {
	ID    uint32
	Name  string
	mgr   *Manager
	mu    sync.Mutex
	state ChannelState
	refs  int32

	callback Callback

	reassembly      *bytes.Buffer
	reassemblyTotal uint32
}

func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) addRef() int32  { return atomic.AddInt32(&c.refs, 1) }
func (c *Channel) release() int32 { return atomic.AddInt32(&c.refs, -1) }
func (c *Channel) refCount() int32 { return atomic.LoadInt32(&c.refs) }

// Write enqueues data for asynchronous delivery on this channel, the
// convenience path a Callback uses to talk back without going through
// the facade's OpenHandle indirection.
func (c *Channel) Write(data []byte) error {
	return c.mgr.VirtualChannelWrite(c.ID, data, nil, nil)
}

// Manager is the receive/send hub for every dynamic channel riding one
// "drdynvc" static channel, adapted from DVCMAN in dvcman.c.
type Manager struct {
	mu        sync.Mutex
	listeners map[string]*Listener
	channels  map[uint32]*Channel

	state           State
	version         uint16
	priorityCharges [4]uint32

	chunkSize int
	pool      *core.BufferPool

	// send writes one fully-framed drdynvc PDU to the "drdynvc" static
	// channel (via virtualchannel.ChunkWriter on the caller's side).
	send func(pdu []byte)

	queue *sendQueue
}

// NewManager builds a manager that writes outgoing drdynvc PDUs via send
// and fragments writes to chunkSize bytes (spec.md's VirtualChannelChunkSize,
// default 1600).
func NewManager(chunkSize int, send func(pdu []byte)) *Manager {
	if chunkSize <= 0 {
		chunkSize = 1600
	}
	m := &Manager{
		listeners: make(map[string]*Listener),
		channels:  make(map[uint32]*Channel),
		state:     StateInitial,
		chunkSize: chunkSize,
		pool:      core.NewBufferPool(chunkSize),
		send:      send,
	}
	m.queue = newSendQueue(m)
	return m
}

// State reports the drdynvc capability-negotiation state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Version reports the negotiated DRDYNVC protocol version (0 before
// capability negotiation completes).
func (m *Manager) Version() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// PriorityCharges reports the four per-priority send-charges the server
// offered in its CAPABILITY_REQUEST (version 2/3 only; zero otherwise).
func (m *Manager) PriorityCharges() [4]uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.priorityCharges
}

// RegisterListener registers a named listener that accepts inbound
// CREATE_REQUESTs, the client's "willing to accept dynamic channels for
// this name" set (spec.md §3's DvcListener).
func (m *Manager) RegisterListener(name string, accept func(channel *Channel) (bool, Callback)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.listeners[name]; exists {
		return fmt.Errorf("dvcman: listener %q already registered", name)
	}
	m.listeners[name] = &Listener{Name: name, Accept: accept}
	return nil
}

func (m *Manager) lookupListener(name string) (*Listener, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listeners[name]
	return l, ok
}

func (m *Manager) channelByID(id uint32) (*Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	return ch, ok
}

// addChannel registers ch with ref_count 1, the map's own reference
// (spec.md §3: "the channel is removed from the id→channel map when
// ref_count reaches zero").
func (m *Manager) addChannel(ch *Channel) {
	ch.refs = 1
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.ID] = ch
}

func (m *Manager) removeChannel(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, id)
}

// acquireRunning looks a channel up under the manager lock and takes a
// dispatch ref on it before releasing the lock, then re-checks its state
// once unlocked (spec.md §4.11: "a found channel's ref_count is
// incremented while dispatching; state is re-checked before
// enqueueing"). Call releaseRef exactly once for every acquireRunning
// that returns ok.
func (m *Manager) acquireRunning(id uint32) (ch *Channel, found, running bool) {
	m.mu.Lock()
	ch, found = m.channels[id]
	if found {
		ch.addRef()
	}
	m.mu.Unlock()
	if !found {
		return nil, false, false
	}
	if ch.State() != ChannelRunning {
		m.releaseRef(ch)
		return ch, true, false
	}
	return ch, true, true
}

// releaseRef drops a dispatch ref taken by acquireRunning (or the map's
// own ref, dropped by closeChannel/handleCloseRequest/CloseAll on the
// Running→Closed transition). If this release observes ref_count
// reaching zero, it finalizes the close here: the channel may already
// be gone from the map by the time the last concurrent dispatcher lets
// go of it, so whichever caller sees the 0 does the cleanup.
func (m *Manager) releaseRef(ch *Channel) {
	if ch.release() == 0 {
		m.finalizeClosed(ch)
	}
}

// finalizeClosed removes ch from the map and invokes its OnClose
// callback. ch.state is already Closed by the time ref_count reaches
// zero, and the atomic decrement in releaseRef guarantees only one
// caller ever observes the transition, so OnClose fires exactly once.
func (m *Manager) finalizeClosed(ch *Channel) {
	ch.mu.Lock()
	cb := ch.callback
	ch.mu.Unlock()
	m.removeChannel(ch.ID)
	if cb != nil {
		cb.OnClose()
	}
}

// Start launches the manager's send-queue goroutine. Callers own this
// lifetime explicitly (NewManager does not start it itself, so tests can
// drain the queue synchronously) and must call Stop on shutdown.
func (m *Manager) Start() {
	m.queue.Start()
}

// Stop posts the queue's quit sentinel and waits for it to drain any
// pending writes as CANCELLED (spec.md §5's shutdown sequence, step 1-2).
func (m *Manager) Stop() {
	m.queue.Stop()
}

// CloseAll transitions every Running channel to Closed and invokes its
// OnClose callback, the shutdown step of spec.md §5's cancellation
// sequence ("invokes OnClose for every channel in Running").
func (m *Manager) CloseAll(cause error) {
	m.mu.Lock()
	channels := make([]*Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	m.mu.Unlock()

	for _, ch := range channels {
		ch.mu.Lock()
		wasRunning := ch.state == ChannelRunning
		if wasRunning {
			ch.state = ChannelClosed
		}
		ch.mu.Unlock()
		if wasRunning {
			m.releaseRef(ch)
		}
	}
	if cause != nil {
		glog.Warnf("dvcman: closed all channels: %v", cause)
	}
}

// writeCreateResponse replies to a CREATE_REQUEST with status 0 on
// success or the STATUS_UNSUCCESSFUL/STATUS_NO_MEMORY codes of
// spec.md §4.7.
func (m *Manager) writeCreateResponse(channelID uint32, status uint32) {
	var buf bytes.Buffer
	cbChId := widthTagFor(channelID)
	core.WriteBE(&buf, packCreateHeader(cbChId))
	writeVarUintLE(&buf, channelID, cbChId)
	core.WriteLE(&buf, status)
	m.send(buf.Bytes())
}

const (
	statusSuccess          uint32 = 0
	statusUnsuccessful     uint32 = 0xC0000001
	statusNoMemory         uint32 = 0xC0000017
)

func packCreateHeader(cbChId uint8) uint8 {
	return uint8(drdynvc.CmdCreateRequest)<<4 | (cbChId & 0x03)
}

func widthTagFor(value uint32) uint8 {
	switch {
	case value <= 0xff:
		return 0
	case value <= 0xffff:
		return 1
	default:
		return 2
	}
}

func writeVarUintLE(w *bytes.Buffer, value uint32, cbChId uint8) {
	switch cbChId {
	case 0:
		core.WriteLE(w, uint8(value))
	case 1:
		core.WriteLE(w, uint16(value))
	default:
		core.WriteLE(w, value)
	}
}
