// Package virtualchannel implements the static virtual channel wire
// format (MS-RDPBCGR 2.2.6): fixed 8-byte-named channels joined during
// the MCS handshake, each carrying chunked PDUs tagged with
// CHANNEL_FLAG_FIRST/LAST. The "drdynvc" channel is the one that in turn
// carries the DRDYNVC multiplexer's own PDUs (proto/drdynvc).
package virtualchannel

import (
	"fmt"
	"sync"

	"github.com/gordp-go/dvcmux/glog"
)

// Channel flags, CHANNEL_PDU_HEADER.flags (MS-RDPBCGR 2.2.6.1.1).
const (
	CHANNEL_FLAG_FIRST             = 0x00000001
	CHANNEL_FLAG_LAST              = 0x00000002
	CHANNEL_FLAG_SHOW_PROTOCOL     = 0x00000010
	CHANNEL_FLAG_SUSPEND           = 0x00000020
	CHANNEL_FLAG_RESUME            = 0x00000040
	CHANNEL_FLAG_SHADOW_PERSISTENT = 0x00000080
)

// Common static channel names.
const (
	CHANNEL_NAME_CLIPRDR = "cliprdr"
	CHANNEL_NAME_RDPDR   = "rdpdr"
	CHANNEL_NAME_RDPSND  = "rdpsnd"
	CHANNEL_NAME_DRDYNVC = "drdynvc"
)

// ChannelDef is a CHANNEL_DEF entry offered in the client's Client Network
// Data (MS-RDPBCGR 2.2.1.3.4): an 8-byte name plus option flags.
type ChannelDef struct {
	Name    string
	Options uint32
}

// Channel is a negotiated static channel: its definition plus the MCS
// channel ID the server assigned it.
type Channel struct {
	ChannelDef
	ID uint16
}

// Callback receives reassembled data for one channel.
type Callback interface {
	OnDataReceived(channelName string, data []byte)
}

// Table maps negotiated static channels by name and by ID, preserving the
// order they were offered in (the order CHANNEL_NAME_* entries are sent
// in Client Network Data, which the server's ID assignment mirrors).
type Table struct {
	mu      sync.RWMutex
	byName  map[string]*Channel
	byID    map[uint16]*Channel
	order   []string
}

// NewTable builds an empty channel table.
func NewTable() *Table {
	return &Table{byName: make(map[string]*Channel), byID: make(map[uint16]*Channel)}
}

// Add registers a negotiated channel.
func (t *Table) Add(ch *Channel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byName[ch.Name] = ch
	t.byID[ch.ID] = ch
	t.order = append(t.order, ch.Name)
	glog.Debugf("static channel registered: %s (id %d)", ch.Name, ch.ID)
}

// ByName looks up a channel by name.
func (t *Table) ByName(name string) (*Channel, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ch, ok := t.byName[name]
	return ch, ok
}

// ByID looks up a channel by its MCS channel ID.
func (t *Table) ByID(id uint16) (*Channel, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ch, ok := t.byID[id]
	return ch, ok
}

// Names returns the registered channel names in negotiation order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.order...)
}

func (t *Table) String() string {
	return fmt.Sprintf("virtualchannel.Table{%v}", t.Names())
}
