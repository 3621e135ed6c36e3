package core

import (
	"bufio"
	"net"
	"time"
)

// Stream is the single reliable byte-stream transport every layer above
// it (TPKT, X.224, MCS, DRDYNVC) reads from and writes to. TLS/CredSSP
// negotiation is an external collaborator per the system scope: Stream
// never speaks TLS itself, it only exposes Upgrade so a caller that
// already performed that handshake can swap the underlying net.Conn in
// place without the core needing to know about it.
type Stream struct {
	c net.Conn
	b *bufio.ReadWriter

	r func([]byte) (int, error)
	w func([]byte) (int, error)
}

func (s *Stream) Read(b []byte) (n int, err error) {
	return s.r(b)
}

func (s *Stream) Write(b []byte) (n int, err error) {
	return s.w(b)
}

// Peek returns the next n bytes without advancing the read position.
func (s *Stream) Peek(n int) []byte {
	if s.b == nil {
		s.b = bufio.NewReadWriter(bufio.NewReader(s.c), bufio.NewWriter(s.c))
		s.r = func(b []byte) (int, error) { return s.b.Read(b) }
		s.w = func(b []byte) (int, error) {
			n, err := s.b.Write(b)
			if err == nil {
				err = s.b.Flush()
			}
			return n, err
		}
	}
	d, err := s.b.Peek(n)
	ThrowError(err)
	return d
}

// Upgrade replaces the underlying connection, e.g. after an external TLS
// or CredSSP handshake has wrapped the original net.Conn. Any buffered
// reader/writer is dropped so the next Peek re-wraps the new conn.
func (s *Stream) Upgrade(conn net.Conn) {
	s.c = conn
	s.b = nil
	s.r = func(b []byte) (int, error) { return s.c.Read(b) }
	s.w = func(b []byte) (int, error) { return s.c.Write(b) }
}

func (s *Stream) Close() {
	_ = s.c.Close()
}

// NewStream dials addr and wraps the resulting TCP connection.
func NewStream(addr string, timeout time.Duration) *Stream {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	ThrowError(err)
	s := &Stream{c: conn}
	s.r = func(b []byte) (int, error) { return s.c.Read(b) }
	s.w = func(b []byte) (int, error) { return s.c.Write(b) }
	return s
}

// NewStreamFromConn wraps an already-established connection, e.g. one
// handed off by an external TLS/CredSSP negotiator that dialed and
// upgraded it before the DVC core ever sees it.
func NewStreamFromConn(conn net.Conn) *Stream {
	s := &Stream{c: conn}
	s.r = func(b []byte) (int, error) { return s.c.Read(b) }
	s.w = func(b []byte) (int, error) { return s.c.Write(b) }
	return s
}
