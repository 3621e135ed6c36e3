package dvcman

import (
	"bytes"
	"testing"

	"github.com/gordp-go/dvcmux/proto/drdynvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *[][]byte) {
	t.Helper()
	var sent [][]byte
	mgr := NewManager(1600, func(pdu []byte) {
		sent = append(sent, append([]byte(nil), pdu...))
	})
	return mgr, &sent
}

// TestCapabilityNegotiation covers spec.md §8 scenario 4: the server's
// CAPABILITY_REQUEST (cmd=CAPABILITY, version=2, four priority charges)
// is answered with a version-echoing response and the manager reaches
// Ready.
func TestCapabilityNegotiation(t *testing.T) {
	mgr, sent := newTestManager(t)

	capReq := []byte{0x50, 0x02, 0x00, 0x00, 0x64, 0x00, 0x00, 0x00, 0xc8, 0x00, 0x00, 0x00, 0x2c, 0x01, 0x00, 0x00, 0x90, 0x01, 0x00, 0x00}
	mgr.OnStaticChannelData("drdynvc", capReq)

	assert.Equal(t, StateReady, mgr.State())
	assert.Equal(t, uint16(2), mgr.Version())
	require.Len(t, *sent, 1)
	assert.Equal(t, []byte{0x50, 0x02, 0x00}, (*sent)[0])
}

// TestCapabilityNegotiationForcesVersion3ForUnsupportedVersion covers the
// "unrecognized version accepted with a forced version-3 response"
// edge case of spec.md §4.11.
func TestCapabilityNegotiationForcesVersion3ForUnsupportedVersion(t *testing.T) {
	mgr, sent := newTestManager(t)

	capReq := []byte{0x50, 0x00, 0x09, 0x00}
	mgr.OnStaticChannelData("drdynvc", capReq)

	assert.Equal(t, uint16(3), mgr.Version())
	require.Len(t, *sent, 1)
	assert.Equal(t, []byte{0x50, 0x03, 0x00}, (*sent)[0])
}

// TestCreateRequestWithoutCapabilityExchange covers the server-skips-
// capabilities workaround of spec.md §4.8 step 3 / §4.11's design note.
func TestCreateRequestWithoutCapabilityExchange(t *testing.T) {
	mgr, sent := newTestManager(t)
	require.NoError(t, mgr.RegisterListener("ECHO", func(ch *Channel) (bool, Callback) {
		return true, &echoCallback{}
	}))

	var buf bytes.Buffer
	(&drdynvc.CreateRequest{ChannelId: 5, Name: "ECHO"}).Write(&buf)
	mgr.OnStaticChannelData("drdynvc", buf.Bytes())

	assert.Equal(t, StateReady, mgr.State())
	assert.Equal(t, uint16(3), mgr.Version())
	require.Len(t, *sent, 2, "expected an implicit capability response followed by the create response")
	assert.Equal(t, []byte{0x50, 0x03, 0x00}, (*sent)[0])

	ch, ok := mgr.channelByID(5)
	require.True(t, ok)
	assert.Equal(t, ChannelRunning, ch.State())
}

type echoCallback struct {
	received []byte
	closed   bool
}

func (e *echoCallback) OnDataReceived(data []byte) { e.received = append(e.received, data...) }
func (e *echoCallback) OnClose()                   { e.closed = true }

// TestCreateRequestNoListenerRejected covers the no-listener branch of
// drdynvc_process_create_request's retStatus switch.
func TestCreateRequestNoListenerRejected(t *testing.T) {
	mgr, sent := newTestManager(t)
	mgr.mu.Lock()
	mgr.state = StateReady
	mgr.version = 3
	mgr.mu.Unlock()

	var buf bytes.Buffer
	(&drdynvc.CreateRequest{ChannelId: 7, Name: "UNKNOWN"}).Write(&buf)
	mgr.OnStaticChannelData("drdynvc", buf.Bytes())

	require.Len(t, *sent, 1)
	var status uint32
	resp := bytes.NewReader((*sent)[0][2:])
	require.NoError(t, binaryReadUint32(resp, &status))
	assert.Equal(t, statusUnsuccessful, status)

	_, ok := mgr.channelByID(7)
	assert.False(t, ok)
}

func binaryReadUint32(r *bytes.Reader, v *uint32) error {
	b := make([]byte, 4)
	if _, err := r.Read(b); err != nil {
		return err
	}
	*v = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return nil
}

// TestFragmentedSend covers spec.md §8 scenario 5: a 3000-byte write at
// chunk size 1600 produces exactly one DATA_FIRST followed by one DATA
// PDU whose payloads concatenate back to the original buffer.
func TestFragmentedSend(t *testing.T) {
	mgr, sent := newTestManager(t)
	mgr.mu.Lock()
	mgr.state = StateReady
	mgr.mu.Unlock()
	mgr.addChannel(&Channel{ID: 5, Name: "ECHO", mgr: mgr, state: ChannelRunning})

	payload := make([]byte, 3000)
	for i := range payload {
		payload[i] = byte(i)
	}

	done := make(chan Event, 1)
	require.NoError(t, mgr.VirtualChannelWrite(5, payload, nil, func(event Event, _ interface{}) {
		done <- event
	}))
	mgr.queue.process(<-mgr.queue.ch, false)

	assert.Equal(t, EventWriteComplete, <-done)
	require.Len(t, *sent, 2)

	first, ok := drdynvc.DecodePDU(bytes.NewReader((*sent)[0])).(*drdynvc.DataFirstMessage)
	require.True(t, ok)
	assert.Equal(t, uint32(5), first.ChannelId)
	assert.Equal(t, uint32(3000), first.Length)

	second, ok := drdynvc.DecodePDU(bytes.NewReader((*sent)[1])).(*drdynvc.DataMessage)
	require.True(t, ok)
	assert.Equal(t, uint32(5), second.ChannelId)

	reassembled := append(append([]byte(nil), first.Payload...), second.Payload...)
	assert.Equal(t, payload, reassembled)
}

// TestUnknownChannelDataDropped covers spec.md §4.8's "A received PDU
// addressed to an unknown ChannelId is logged and silently ignored."
func TestUnknownChannelDataDropped(t *testing.T) {
	mgr, sent := newTestManager(t)
	mgr.mu.Lock()
	mgr.state = StateReady
	mgr.mu.Unlock()

	var buf bytes.Buffer
	(&drdynvc.Data{ChannelId: 99, Data: []byte("orphan")}).Write(&buf)
	assert.NotPanics(t, func() {
		mgr.OnStaticChannelData("drdynvc", buf.Bytes())
	})
	assert.Empty(t, *sent)
}

// TestCloseRequestClosesChannelAndConfirms covers the CLOSE_REQUEST
// dispatch branch of spec.md §4.8.
func TestCloseRequestClosesChannelAndConfirms(t *testing.T) {
	mgr, sent := newTestManager(t)
	mgr.mu.Lock()
	mgr.state = StateReady
	mgr.mu.Unlock()
	cb := &echoCallback{}
	mgr.addChannel(&Channel{ID: 5, Name: "ECHO", mgr: mgr, state: ChannelRunning, callback: cb})

	var buf bytes.Buffer
	(&drdynvc.CloseRequest{ChannelId: 5}).Write(&buf)
	mgr.OnStaticChannelData("drdynvc", buf.Bytes())

	assert.True(t, cb.closed)
	_, ok := mgr.channelByID(5)
	assert.False(t, ok)
	require.Len(t, *sent, 1)
	closeConfirm, ok := drdynvc.DecodePDU(bytes.NewReader((*sent)[0])).(*drdynvc.CloseRequest)
	require.True(t, ok)
	assert.Equal(t, uint32(5), closeConfirm.ChannelId)
}

// TestConcurrentWriteDuringCloseWaitsForRefCount covers spec.md §4.11:
// a write that already holds its dispatch ref when a CLOSE_REQUEST
// arrives on the reader thread must release it before the channel is
// actually finalized (removed from the map, OnClose invoked).
func TestConcurrentWriteDuringCloseWaitsForRefCount(t *testing.T) {
	mgr, sent := newTestManager(t)
	mgr.mu.Lock()
	mgr.state = StateReady
	mgr.mu.Unlock()
	cb := &echoCallback{}
	mgr.addChannel(&Channel{ID: 5, Name: "ECHO", mgr: mgr, state: ChannelRunning, callback: cb})

	// Simulate a write in flight: it has already acquired its dispatch
	// ref, as VirtualChannelWrite does before enqueueing.
	inFlight, found, running := mgr.acquireRunning(5)
	require.True(t, found)
	require.True(t, running)
	assert.Equal(t, int32(2), inFlight.refCount())

	var buf bytes.Buffer
	(&drdynvc.CloseRequest{ChannelId: 5}).Write(&buf)
	mgr.OnStaticChannelData("drdynvc", buf.Bytes())

	// The close PDU went out and the map's own ref dropped, but the
	// in-flight write still holds one: not finalized yet.
	assert.False(t, cb.closed)
	assert.Equal(t, int32(1), inFlight.refCount())
	require.Len(t, *sent, 1)
	_, ok := mgr.channelByID(5)
	assert.True(t, ok, "channel stays reachable until the last ref releases")

	// Once the in-flight write releases its ref, finalization happens.
	mgr.releaseRef(inFlight)
	assert.True(t, cb.closed)
	_, ok = mgr.channelByID(5)
	assert.False(t, ok)
}

// TestReassemblyOverflowClosesChannel covers the protocol-error branch
// of spec.md §4.8's DATA dispatch: "Appending beyond the declared total
// length is a protocol error: drop the buffer, close the channel."
func TestReassemblyOverflowClosesChannel(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.mu.Lock()
	mgr.state = StateReady
	mgr.mu.Unlock()
	cb := &echoCallback{}
	mgr.addChannel(&Channel{ID: 5, Name: "ECHO", mgr: mgr, state: ChannelRunning, callback: cb})

	var first bytes.Buffer
	(&drdynvc.DataFirst{ChannelId: 5, Length: 4, Data: []byte("ab")}).Write(&first)
	mgr.OnStaticChannelData("drdynvc", first.Bytes())

	var overflow bytes.Buffer
	(&drdynvc.Data{ChannelId: 5, Data: []byte("cdefgh")}).Write(&overflow)
	mgr.OnStaticChannelData("drdynvc", overflow.Bytes())

	assert.True(t, cb.closed)
	_, ok := mgr.channelByID(5)
	assert.False(t, ok)
}
