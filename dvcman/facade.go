package dvcman

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/gordp-go/dvcmux/glog"
	"github.com/gordp-go/dvcmux/proto/drdynvc"
	"github.com/gordp-go/dvcmux/proto/virtualchannel"
)

// MaxStaticChannels is the limit VirtualChannelInit enforces, mirroring
// CHANNEL_MAX_COUNT in the original WTS-style ABI (spec.md §4.10).
const MaxStaticChannels = 31

// WTS_CHANNEL_OPTION_DYNAMIC marks a VirtualChannelOpenEx request as
// opening a dynamic (as opposed to static) channel.
const WTSChannelOptionDynamic = 0x00000001

// InitEvent is one of the ordered lifecycle events of spec.md §4.10:
// "INITIALIZED -> CONNECTED(hostname) -> DATA_RECEIVED(...)* ->
// DISCONNECTED -> TERMINATED, plus ATTACHED/DETACHED pairs".
type InitEvent int

const (
	EventInitialized InitEvent = iota
	EventConnected
	EventDisconnected
	EventTerminated
	EventAttached
	EventDetached
)

// InitEventProc receives the facade's connection lifecycle events.
type InitEventProc func(event InitEvent, data interface{})

// OpenHandle identifies one plugin's open binding to a channel, static or
// dynamic, independent of which kind it is (spec.md §4.10: "independent
// of whether the underlying channel is static or dynamic").
type OpenHandle uint32

type openBinding struct {
	handle    OpenHandle
	name      string
	dynamic   bool
	channelID uint32 // valid when dynamic
	eventProc EventProc
}

// Facade is the WTS-style plugin entry point: VirtualChannelInit/Open/
// OpenEx/Write/Close, exposed to plugins independent of whether the
// channel they bind to is static or dynamic (spec.md §4.10).
type Facade struct {
	mu sync.Mutex

	initialized bool
	channelDefs []virtualchannel.ChannelDef
	staticTable *virtualchannel.Table

	mgr *Manager

	initEventProc InitEventProc

	opens      map[OpenHandle]*openBinding
	byName     map[string]OpenHandle
	nextHandle uint32

	sendStatic func(channelName string, data []byte)
}

// NewFacade builds a facade bound to a dynamic-channel manager and a
// function that writes data to a named static channel (the static
// channel router's chunked send path, proto/virtualchannel).
func NewFacade(mgr *Manager, staticTable *virtualchannel.Table, sendStatic func(name string, data []byte)) *Facade {
	return &Facade{
		mgr:         mgr,
		staticTable: staticTable,
		sendStatic:  sendStatic,
		opens:       make(map[OpenHandle]*openBinding),
		byName:      make(map[string]OpenHandle),
	}
}

// VirtualChannelInit registers up to MaxStaticChannels static channel
// definitions. Must be called once, before any Open call (spec.md
// §4.10's "must be called from the plugin's entry function, not later").
func (f *Facade) VirtualChannelInit(channelDefs []virtualchannel.ChannelDef, initEventProc InitEventProc) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.initialized {
		return ErrAlreadyConnected
	}
	if len(channelDefs) > MaxStaticChannels {
		return ErrTooManyChannels
	}

	f.channelDefs = append([]virtualchannel.ChannelDef(nil), channelDefs...)
	f.initEventProc = initEventProc
	f.initialized = true

	if initEventProc != nil {
		initEventProc(EventInitialized, nil)
	}
	return nil
}

// Connected signals that the MCS/static-channel handshake completed; the
// facade posts CONNECTED(hostname) per spec.md §4.10. The facade records
// no connected state and neither VirtualChannelOpen nor
// VirtualChannelOpenEx checks for it, so opens made before this fires are
// not rejected.
func (f *Facade) Connected(hostname string) {
	f.mu.Lock()
	proc := f.initEventProc
	f.mu.Unlock()
	if proc != nil {
		proc(EventConnected, hostname)
	}
}

// Disconnected posts DISCONNECTED then TERMINATED, the tail of spec.md
// §4.10's event sequence.
func (f *Facade) Disconnected() {
	f.mu.Lock()
	proc := f.initEventProc
	f.mu.Unlock()
	if proc == nil {
		return
	}
	proc(EventDisconnected, nil)
	proc(EventTerminated, nil)
}

func (f *Facade) allocHandle() OpenHandle {
	return OpenHandle(atomic.AddUint32(&f.nextHandle, 1))
}

// VirtualChannelOpen binds the plugin to a previously-registered static
// channel.
func (f *Facade) VirtualChannelOpen(name string, eventProc EventProc) (OpenHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.initialized {
		return 0, ErrBadInitHandle
	}
	if _, exists := f.byName[name]; exists {
		return 0, ErrAlreadyOpen
	}

	found := false
	for _, def := range f.channelDefs {
		if def.Name == name {
			found = true
			break
		}
	}
	if !found {
		return 0, ErrUnknownChannelName
	}

	handle := f.allocHandle()
	f.opens[handle] = &openBinding{handle: handle, name: name, eventProc: eventProc}
	f.byName[name] = handle
	return handle, nil
}

// VirtualChannelOpenEx issues a CREATE_REQUEST over drdynvc for a
// dynamic channel and returns a handle immediately with the channel in
// Init. A server CREATE_REQUEST for the id already registered here is
// ignored, so the channel does not leave Init and VirtualChannelWrite on
// it returns ErrNotOpen.
func (f *Facade) VirtualChannelOpenEx(name string, flags uint32, eventProc EventProc) (OpenHandle, error) {
	if flags&WTSChannelOptionDynamic == 0 {
		return f.VirtualChannelOpen(name, eventProc)
	}

	f.mu.Lock()
	if !f.initialized {
		f.mu.Unlock()
		return 0, ErrBadInitHandle
	}
	if _, exists := f.byName[name]; exists {
		f.mu.Unlock()
		return 0, ErrAlreadyOpen
	}
	channelID := atomic.AddUint32(&f.nextHandle, 1)
	handle := OpenHandle(channelID)
	f.opens[handle] = &openBinding{handle: handle, name: name, dynamic: true, channelID: channelID, eventProc: eventProc}
	f.byName[name] = handle
	f.mu.Unlock()

	ch := &Channel{ID: channelID, Name: name, mgr: f.mgr, state: ChannelInit}
	f.mgr.addChannel(ch)

	var buf bytes.Buffer
	(&drdynvc.CreateRequest{ChannelId: channelID, Name: name}).Write(&buf)
	f.mgr.send(buf.Bytes())
	glog.Debugf("dvcman: VirtualChannelOpenEx issued CREATE_REQUEST for %q (channel %d)", name, channelID)

	return handle, nil
}

// VirtualChannelWrite is asynchronous; ownership of data transfers to
// the facade until eventProc's EventWriteComplete/EventWriteCancelled
// fires (spec.md §4.10).
func (f *Facade) VirtualChannelWrite(handle OpenHandle, data []byte, userData interface{}) error {
	f.mu.Lock()
	binding, ok := f.opens[handle]
	f.mu.Unlock()
	if !ok {
		return ErrUnknownChannel
	}

	if binding.dynamic {
		return f.mgr.VirtualChannelWrite(binding.channelID, data, userData, binding.eventProc)
	}

	f.sendStatic(binding.name, data)
	if binding.eventProc != nil {
		binding.eventProc(EventWriteComplete, userData)
	}
	return nil
}

// VirtualChannelClose synchronously transitions the channel to Closed,
// writing a close confirm on the wire for dynamic channels.
func (f *Facade) VirtualChannelClose(handle OpenHandle) error {
	f.mu.Lock()
	binding, ok := f.opens[handle]
	if ok {
		delete(f.opens, handle)
		delete(f.byName, binding.name)
	}
	f.mu.Unlock()
	if !ok {
		return ErrUnknownChannel
	}

	if binding.dynamic {
		if ch, exists := f.mgr.channelByID(binding.channelID); exists {
			f.mgr.closeChannel(ch)
		}
	}
	return nil
}
