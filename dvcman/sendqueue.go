package dvcman

import (
	"bytes"

	"github.com/gordp-go/dvcmux/glog"
	"github.com/gordp-go/dvcmux/proto/drdynvc"
)

// EventProc receives the WRITE_COMPLETE/WRITE_CANCELLED events of
// spec.md §4.9, posted back to the plugin that issued the write.
type EventProc func(event Event, userData interface{})

// Event is one of the facade's posted event kinds.
type Event int

const (
	EventWriteComplete Event = iota
	EventWriteCancelled
)

// writeRequest carries an already-acquired dispatch ref on channel (taken
// by VirtualChannelWrite's acquireRunning call), held until process
// releases it, so a close racing in from the reader thread cannot free
// the channel out from under a write still sitting in the queue
// (spec.md §4.11).
type writeRequest struct {
	channel   *Channel
	data      []byte
	userData  interface{}
	eventProc EventProc
}

// sendQueue is the single-writer, single-consumer queue of spec.md §4.9
// step 3: "Enqueues ... onto a single-writer queue drained by the event
// loop." One goroutine drains it so writes on a single channel are
// emitted to the wire in submission order (spec.md §5's ordering
// guarantee).
type sendQueue struct {
	mgr  *Manager
	ch   chan writeRequest
	quit chan struct{}
	done chan struct{}
}

func newSendQueue(mgr *Manager) *sendQueue {
	return &sendQueue{
		mgr:  mgr,
		ch:   make(chan writeRequest, 64),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start launches the draining goroutine. Callers own its lifetime and
// must call Stop on shutdown.
func (q *sendQueue) Start() {
	go q.run()
}

// Stop posts the QUIT sentinel of spec.md §5 and waits for the worker to
// drain remaining writes as CANCELLED before returning.
func (q *sendQueue) Stop() {
	close(q.quit)
	<-q.done
}

func (q *sendQueue) run() {
	defer close(q.done)
	for {
		select {
		case req := <-q.ch:
			q.process(req, false)
		case <-q.quit:
			q.drainAsCancelled()
			return
		}
	}
}

func (q *sendQueue) drainAsCancelled() {
	for {
		select {
		case req := <-q.ch:
			q.process(req, true)
		default:
			return
		}
	}
}

// process dispatches one queued write, then releases the dispatch ref
// acquireRunning took in VirtualChannelWrite. Releasing last (via defer)
// means a channel closed while this write sat in the queue still isn't
// finalized (OnClose/map removal) until this call lets go of it.
func (q *sendQueue) process(req writeRequest, cancelled bool) {
	defer q.mgr.releaseRef(req.channel)

	if cancelled {
		if req.eventProc != nil {
			req.eventProc(EventWriteCancelled, req.userData)
		}
		return
	}

	if req.channel.State() != ChannelRunning {
		if req.eventProc != nil {
			req.eventProc(EventWriteCancelled, req.userData)
		}
		return
	}

	if len(req.data) == 0 {
		// An empty write is a request to close the channel (spec.md §4.9
		// step 5).
		q.mgr.closeChannel(req.channel)
		if req.eventProc != nil {
			req.eventProc(EventWriteComplete, req.userData)
		}
		return
	}

	q.mgr.fragmentAndSend(req.channel.ID, req.data)
	if req.eventProc != nil {
		req.eventProc(EventWriteComplete, req.userData)
	}
}

// fragmentAndSend implements spec.md §4.9 step 4: a single DATA_PDU when
// the payload plus header fits in one chunk, otherwise one DATA_FIRST_PDU
// carrying the total length followed by as many DATA_PDUs as needed.
func (m *Manager) fragmentAndSend(channelID uint32, data []byte) {
	const dataFirstHeaderBudget = 1 + 4 + 4 // header + widest channel id + widest length
	if len(data)+dataFirstHeaderBudget <= m.chunkSize {
		var buf bytes.Buffer
		(&drdynvc.Data{ChannelId: channelID, Data: data}).Write(&buf)
		m.send(buf.Bytes())
		return
	}

	budget := m.chunkSize - dataFirstHeaderBudget
	if budget <= 0 {
		budget = 1
	}
	first := data[:budget]
	rest := data[budget:]

	var buf bytes.Buffer
	(&drdynvc.DataFirst{ChannelId: channelID, Length: uint32(len(data)), Data: first}).Write(&buf)
	m.send(buf.Bytes())

	const dataHeaderBudget = 1 + 4
	chunkBudget := m.chunkSize - dataHeaderBudget
	if chunkBudget <= 0 {
		chunkBudget = 1
	}
	for len(rest) > 0 {
		n := chunkBudget
		if n > len(rest) {
			n = len(rest)
		}
		var dbuf bytes.Buffer
		(&drdynvc.Data{ChannelId: channelID, Data: rest[:n]}).Write(&dbuf)
		m.send(dbuf.Bytes())
		rest = rest[n:]
	}
}

// closeChannel marks ch Closed and drops the map's own ref_count
// reference (spec.md §3: removal happens when ref_count reaches zero,
// which may be later than this call if a concurrent dispatch still
// holds a ref).
func (m *Manager) closeChannel(ch *Channel) {
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
}

// VirtualChannelWrite enqueues an asynchronous write, transferring
// ownership of data to the manager until eventProc fires with
// EventWriteComplete or EventWriteCancelled (spec.md §4.9/§4.10). The
// channel is looked up and ref-counted under the manager lock per
// spec.md §4.11, so a CLOSE_REQUEST observed concurrently on the reader
// thread cannot free it out from under this write before the queue
// drains it.
func (m *Manager) VirtualChannelWrite(channelID uint32, data []byte, userData interface{}, eventProc EventProc) error {
	ch, found, running := m.acquireRunning(channelID)
	if !found {
		return ErrUnknownChannel
	}
	if !running {
		return ErrNotOpen
	}

	req := writeRequest{channel: ch, data: data, userData: userData, eventProc: eventProc}
	select {
	case m.queue.ch <- req:
		return nil
	default:
		glog.Warnf("dvcman: send queue full, blocking on channel %d", channelID)
		m.queue.ch <- req
		return nil
	}
}
